package weavectl

import (
	"fmt"
	"strings"

	"storyweave/internal/api"
	"storyweave/internal/timeline"

	"github.com/spf13/cobra"
)

func graphCmd(e *env) *cobra.Command {
	var (
		asJSON bool
		layout string
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the narrative tree of a universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := e.universeID()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				res, err := e.client().GetGraph(cmd.Context(), &api.GetGraphRequest{UniverseID: id, Layout: layout, AddNode: true})
				if err != nil {
					return err
				}
				return printJSON(w, res)
			}
			res, err := e.client().GetSnapshot(cmd.Context(), &api.GetSnapshotRequest{UniverseID: id})
			if err != nil {
				return err
			}
			snap := res.Snapshot
			if len(snap.Nodes) == 0 {
				Subtle.Fprintln(w, "  (empty timeline)")
				return nil
			}
			fmt.Fprint(w, timeline.RenderTree(snap, colorLabel))
			g := timeline.Build(snap, timeline.Options{Layout: timeline.LayoutTree})
			fmt.Fprintf(w, "\n%s nodes=%d roots=%s leaves=%s canon=%s\n",
				Subtle.Sprint("summary"), len(snap.Nodes), joinIDs(g.Roots()), joinIDs(g.Leaves()), joinIDs(g.CanonIDs()))
			for _, is := range g.Issues {
				Subtle.Fprintf(w, "  issue %s node=%d %s\n", is.Kind, is.NodeID, is.Detail)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the flow graph as JSON")
	cmd.Flags().StringVar(&layout, "layout", "grid", "Layout for --json (grid, sequential, tree)")
	return cmd
}

func colorLabel(n timeline.Node) string {
	label := timeline.DefaultLabel(n)
	if n.Canon {
		return Canon.Sprint(label)
	}
	return label
}

func joinIDs(ids []uint64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = timeline.Key(id)
	}
	return strings.Join(parts, ",")
}

func leavesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "leaves",
		Short: "List the leaf node ids of a universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := e.universeID()
			if err != nil {
				return err
			}
			res, err := e.client().GetLeaves(cmd.Context(), &api.GetLeavesRequest{UniverseID: id})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), joinIDs(res.IDs))
			return nil
		},
	}
}

func modelsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List video models with their durations and aspect ratios",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client().ListModels(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Models))
			for _, m := range res.Models {
				secs := make([]string, len(m.Durations))
				for i, d := range m.Durations {
					secs[i] = fmt.Sprint(d)
				}
				rows = append(rows, []string{m.ID, m.Provider, strings.Join(secs, "/"), fmt.Sprint(m.Default), strings.Join(m.AspectRatios, " ")})
			}
			Table(cmd.OutOrStdout(), []string{"MODEL", "PROVIDER", "SECONDS", "DEFAULT", "ASPECT"}, rows)
			return nil
		},
	}
}
