package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"github.com/MufengNiu/Paradisec/internal/ingest"
	"github.com/MufengNiu/Paradisec/internal/mapping"
)

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return withCode(exitUsage, err)
	}
	return nil
}

func newImportCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create datasets and places for the whole catalog",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(svc *ingest.Service) error {
				report, err := svc.Import(cmd.Context(), ingest.ImportOptions{Force: force})
				if err != nil {
					return err
				}
				return a.done(cmd, report)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing mapping files")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Refresh mapped datasets and places, adding anything new",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(svc *ingest.Service) error {
				report, err := svc.Update(cmd.Context())
				if err != nil {
					return err
				}
				return a.done(cmd, report)
			})
		},
	}
}

func newUndoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Delete everything the mapping files point at",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(svc *ingest.Service) error {
				report, err := svc.Undo(cmd.Context())
				if err != nil {
					return err
				}
				return a.done(cmd, report)
			})
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the mapping files record",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.service(nil).Status(cmd.Context())
			if err != nil {
				return err
			}
			switch {
			case !st.LedgerPresent:
				fmt.Fprintf(cmd.OutOrStdout(), "no mapping files in %s\n", a.cfg.Sync.MappingDir)
				return nil
			case st.Incomplete:
				fmt.Fprintf(cmd.OutOrStdout(), "incomplete mapping files in %s: one of %s, %s is missing\n",
					a.cfg.Sync.MappingDir, mapping.DatasetFileName, mapping.PlaceFileName)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d datasets, %d places mapped in %s\n", st.Datasets, st.Places, a.cfg.Sync.MappingDir)
			return nil
		},
	}
}

func (a *app) done(cmd *cobra.Command, report ingest.Report) error {
	a.log.Info("run finished",
		slog.String("mode", string(report.Mode)),
		slog.Int("datasets_created", report.DatasetsCreated),
		slog.Int("places_created", report.PlacesCreated),
	)
	fmt.Fprintln(cmd.OutOrStdout(), report.String())
	return nil
}
