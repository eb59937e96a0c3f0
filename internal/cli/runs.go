package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depfuse/depfuse/pkg/errors"
	"github.com/depfuse/depfuse/pkg/store"
)

// newRunsCmd creates the run store management command.
func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage persisted analysis runs",
		Long:  "Runs lists, inspects, and deletes analysis runs in the configured store backend.",
	}

	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsDeleteCmd())

	return cmd
}

// requireStore opens the configured store, failing when none is configured.
func requireStore(cmd *cobra.Command) (store.Store, error) {
	cfg := configFromContext(cmd.Context())
	st, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no store backend configured; set [store] in config.toml")
	}
	return st, nil
}

// newRunsListCmd creates the "runs list" subcommand.
func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := requireStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(cmd.Context(), st)

			summaries, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				printInfo("No runs in store")
				return nil
			}
			for _, s := range summaries {
				printKeyValue(s.ID[:min(len(s.ID), 12)], fmt.Sprintf("%s  %d projects  %s",
					s.StartedAt.Format("2006-01-02 15:04"), s.Projects, s.RootDir))
			}
			printNextStep("Serve a run", "depfuse serve --run <id>")
			return nil
		},
	}
}

// newRunsDeleteCmd creates the "runs delete" subcommand.
func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a persisted run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := requireStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(cmd.Context(), st)

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted run %s", args[0])
			return nil
		},
	}
}
