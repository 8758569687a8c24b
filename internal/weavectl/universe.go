package weavectl

import (
	"fmt"

	"storyweave/internal/api"
	"storyweave/internal/gateway/repository/universe"

	"github.com/spf13/cobra"
)

func universeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "universe",
		Aliases: []string{"universes"},
		Short:   "Manage the universe registry",
	}
	cmd.AddCommand(
		universeListCmd(e),
		universeAddCmd(e),
		universeRemoveCmd(e),
		universeSyncCmd(e),
	)
	return cmd
}

func printUniverses(cmd *cobra.Command, list []universe.Universe, current string) {
	rows := make([][]string, 0, len(list))
	for _, u := range list {
		mark := ""
		if u.ID == current {
			mark = "*"
		}
		rows = append(rows, []string{mark, u.ID, u.Name, u.Contract, u.Description})
	}
	Table(cmd.OutOrStdout(), []string{"", "ID", "NAME", "CONTRACT", "DESCRIPTION"}, rows)
}

func universeListCmd(e *env) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List universes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				res, err := e.client().ListUniverses(cmd.Context())
				if err != nil {
					return err
				}
				printUniverses(cmd, res.Universes, e.profile.Universe)
				return nil
			}
			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			printUniverses(cmd, list, e.profile.Universe)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "List the gateway's universes instead of the local store")
	return cmd
}

func universeAddCmd(e *env) *cobra.Command {
	var u universe.Universe
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a universe in the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			saved, err := store.Put(cmd.Context(), u)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", StatusIcon(true), saved.ID, Subtle.Sprint(saved.Contract))
			return nil
		},
	}
	cmd.Flags().StringVar(&u.ID, "id", "", "Universe id (generated when empty)")
	cmd.Flags().StringVar(&u.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&u.Description, "description", "", "Description")
	cmd.Flags().StringVar(&u.Contract, "contract", "", "Timeline contract address")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("contract")
	return cmd
}

func universeRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a universe from the local store",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed %s\n", StatusIcon(true), args[0])
			return nil
		},
	}
}

func universeSyncCmd(e *env) *cobra.Command {
	var push, pull bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Exchange universes between the local store and the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !push && !pull {
				push, pull = true, true
			}
			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			client := e.client()
			w := cmd.OutOrStdout()

			if pull {
				res, err := client.ListUniverses(cmd.Context())
				if err != nil {
					return fmt.Errorf("pull: %w", err)
				}
				for _, u := range res.Universes {
					if _, err := store.Put(cmd.Context(), u); err != nil {
						return fmt.Errorf("pull %s: %w", u.ID, err)
					}
				}
				fmt.Fprintf(w, "%s pulled %d\n", StatusIcon(true), len(res.Universes))
			}
			if push {
				local, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, u := range local {
					if _, err := client.PutUniverse(cmd.Context(), &api.PutUniverseRequest{Universe: u}); err != nil {
						return fmt.Errorf("push %s: %w", u.ID, err)
					}
				}
				fmt.Fprintf(w, "%s pushed %d\n", StatusIcon(true), len(local))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&push, "push", false, "Only push local universes")
	cmd.Flags().BoolVar(&pull, "pull", false, "Only pull gateway universes")
	return cmd
}
