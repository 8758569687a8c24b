package api

const (
	TimelineServiceName   = "storyweave.v1.TimelineService"
	GenerationServiceName = "storyweave.v1.GenerationService"
	UniverseServiceName   = "storyweave.v1.UniverseService"
	SegmentServiceName    = "storyweave.v1.SegmentService"
	HealthServiceName     = "storyweave.v1.HealthService"
)

const (
	TimelineGetGraphProcedure     = "/" + TimelineServiceName + "/GetGraph"
	TimelineGetSnapshotProcedure  = "/" + TimelineServiceName + "/GetSnapshot"
	TimelineGetLeavesProcedure    = "/" + TimelineServiceName + "/GetLeaves"
	TimelineCreateNodeProcedure   = "/" + TimelineServiceName + "/CreateNode"
	TimelineSubmitCanvasProcedure = "/" + TimelineServiceName + "/SubmitCanvas"

	GenerationStartSessionProcedure  = "/" + GenerationServiceName + "/StartSession"
	GenerationGetSessionProcedure    = "/" + GenerationServiceName + "/GetSession"
	GenerationWaitSessionProcedure   = "/" + GenerationServiceName + "/WaitSession"
	GenerationGenerateImageProcedure = "/" + GenerationServiceName + "/GenerateImage"
	GenerationGenerateVideoProcedure = "/" + GenerationServiceName + "/GenerateVideo"
	GenerationCommitProcedure        = "/" + GenerationServiceName + "/Commit"
	GenerationExportSegmentProcedure = "/" + GenerationServiceName + "/ExportSegment"
	GenerationCloseSessionProcedure  = "/" + GenerationServiceName + "/CloseSession"
	GenerationListModelsProcedure    = "/" + GenerationServiceName + "/ListModels"

	UniverseListProcedure   = "/" + UniverseServiceName + "/ListUniverses"
	UniverseGetProcedure    = "/" + UniverseServiceName + "/GetUniverse"
	UniversePutProcedure    = "/" + UniverseServiceName + "/PutUniverse"
	UniverseDeleteProcedure = "/" + UniverseServiceName + "/DeleteUniverse"

	SegmentAppendProcedure = "/" + SegmentServiceName + "/Append"
	SegmentMoveProcedure   = "/" + SegmentServiceName + "/Move"
	SegmentSwapProcedure   = "/" + SegmentServiceName + "/Swap"
	SegmentRemoveProcedure = "/" + SegmentServiceName + "/Remove"
	SegmentTotalProcedure  = "/" + SegmentServiceName + "/Total"

	HealthCheckProcedure = "/" + HealthServiceName + "/Check"
)

// Session stream and media routes served next to the RPC services.
const (
	SessionStreamPath = "/ws/sessions"
	MediaPathPrefix   = "/media/"
)
