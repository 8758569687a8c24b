// Package weavectl implements the operator CLI: graph inspection, universe
// registry, generation runs and the local segment list.
package weavectl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storyweave/internal/api"
	"storyweave/internal/gateway/repository/universe"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "0.3.0"

type env struct {
	profilePath string
	profile     *Profile
	gateway     string
	universe    string
	noColor     bool
	httpClient  *http.Client
}

func NewRootCmd() *cobra.Command {
	e := &env{httpClient: &http.Client{Timeout: 5 * time.Minute}}
	root := &cobra.Command{
		Use:           "weavectl",
		Short:         "Operate storyweave timelines",
		Long:          Brand.Sprint("weavectl") + ": inspect narrative graphs, manage universes and run scene generation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			p, err := LoadProfile(e.profilePath)
			if err != nil {
				return err
			}
			e.profile = p
			if e.noColor || !p.Color {
				color.NoColor = true
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.profilePath, "config", ProfilePath(), "Profile file")
	root.PersistentFlags().StringVar(&e.gateway, "gateway", "", "Gateway URL (overrides profile)")
	root.PersistentFlags().StringVarP(&e.universe, "universe", "u", "", "Universe id (overrides profile)")
	root.PersistentFlags().BoolVar(&e.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		graphCmd(e),
		leavesCmd(e),
		universeCmd(e),
		modelsCmd(e),
		generateCmd(e),
		segmentsCmd(e),
		profileCmd(e),
		healthCmd(e),
	)
	return root
}

func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		Bad.Fprintf(os.Stderr, "weavectl: %v\n", err)
	}
	return err
}

func (e *env) gatewayURL() string {
	if v := strings.TrimSpace(e.gateway); v != "" {
		return v
	}
	return e.profile.Gateway
}

func (e *env) client() *api.Client {
	return api.NewClient(e.httpClient, e.gatewayURL())
}

func (e *env) universeID() (string, error) {
	id := firstNonEmpty(e.universe, e.profile.Universe)
	if id == "" {
		return "", errors.New("no universe selected: pass --universe or set it with `weavectl profile set universe <id>`")
	}
	return id, nil
}

func (e *env) openStore() (*universe.Store, error) {
	path := e.profile.Store
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return universe.Open("sqlite:"+path, "")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func profileCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the CLI profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", Brand.Sprint("profile"), Subtle.Sprint(e.profilePath))
			Table(w, []string{"KEY", "VALUE"}, [][]string{
				{"gateway", e.profile.Gateway},
				{"universe", e.profile.Universe},
				{"color", fmt.Sprint(e.profile.Color)},
				{"store", e.profile.Store},
				{"segments", e.profile.Segments},
			})
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a profile key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.profile.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := SaveProfile(e.profilePath, e.profile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", StatusIcon(true), args[0], args[1])
			return nil
		},
	})
	return cmd
}

func healthCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res.AsMap())
		},
	}
}
