package generation

import (
	"fmt"
	"slices"
	"strings"
)

// VideoModel describes what a video model accepts. Durations are in seconds.
type VideoModel struct {
	ID           string   `json:"id"`
	Provider     string   `json:"provider"`
	Durations    []int    `json:"durations"`
	Default      int      `json:"defaultSeconds"`
	AspectRatios []string `json:"aspectRatios"`
}

func (m VideoModel) Supports(seconds int) bool {
	return slices.Contains(m.Durations, seconds)
}

const (
	ProviderGemini = "gemini"
	ProviderSora   = "sora"
	ProviderKling  = "kling"
)

var videoModels = []VideoModel{
	{ID: "sora-2", Provider: ProviderSora, Durations: []int{4, 8, 12}, Default: 4, AspectRatios: []string{"16:9", "9:16"}},
	{ID: "sora-2-pro", Provider: ProviderSora, Durations: []int{4, 8, 12}, Default: 4, AspectRatios: []string{"16:9", "9:16"}},
	{ID: "kling-v2.1", Provider: ProviderKling, Durations: []int{5, 10}, Default: 5, AspectRatios: []string{"16:9", "9:16", "1:1"}},
	{ID: "veo-3.0-generate-001", Provider: ProviderGemini, Durations: []int{4, 6, 8}, Default: 8, AspectRatios: []string{"16:9", "9:16"}},
	{ID: "veo-2.0-generate-001", Provider: ProviderGemini, Durations: []int{5, 6, 7, 8}, Default: 8, AspectRatios: []string{"16:9", "9:16"}},
}

// VideoModels returns a copy of the model catalog.
func VideoModels() []VideoModel {
	out := make([]VideoModel, 0, len(videoModels))
	for _, m := range videoModels {
		m.Durations = slices.Clone(m.Durations)
		m.AspectRatios = slices.Clone(m.AspectRatios)
		out = append(out, m)
	}
	return out
}

func LookupVideoModel(id string) (VideoModel, error) {
	id = strings.TrimSpace(id)
	for _, m := range videoModels {
		if m.ID == id {
			return m, nil
		}
	}
	return VideoModel{}, fmt.Errorf("%w: %q", ErrUnsupportedModel, id)
}

// NormalizeDuration maps seconds onto a duration the model accepts. Unsupported
// or unset values fall back to the model default; changed reports whether
// seconds was replaced.
func NormalizeDuration(model string, seconds int) (normalized int, changed bool, err error) {
	m, err := LookupVideoModel(model)
	if err != nil {
		return 0, false, err
	}
	if m.Supports(seconds) {
		return seconds, false, nil
	}
	return m.Default, true, nil
}

// ValidateAspectRatio returns the model's first ratio when ratio is empty.
func ValidateAspectRatio(model, ratio string) (string, error) {
	m, err := LookupVideoModel(model)
	if err != nil {
		return "", err
	}
	ratio = strings.TrimSpace(ratio)
	if ratio == "" {
		return m.AspectRatios[0], nil
	}
	if !slices.Contains(m.AspectRatios, ratio) {
		return "", fmt.Errorf("%w: %s does not support aspect ratio %q", ErrInvalidRequest, m.ID, ratio)
	}
	return ratio, nil
}
