package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/creditofacil/internal/secrets"
	"github.com/jask/creditofacil/internal/service"
)

func journalCmd(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the local journal of wizard runs",
	}
	cmd.AddCommand(journalListCmd(app), journalExportCmd(app), journalPurgeCmd(app))
	return cmd
}

func journalListCmd(app *appContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.openJournal()
			if err != nil {
				return err
			}
			sessions, err := repo.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				_, err := fmt.Fprintln(out, "journal is empty")
				return err
			}
			loc := app.cfg.Location()
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				finished := "-"
				if s.FinishedAt != nil {
					finished = s.FinishedAt.In(loc).Format(time.DateTime)
				}
				rows = append(rows, []string{s.ID, s.StartedAt.In(loc).Format(time.DateTime), finished, s.Outcome, fmt.Sprint(s.EntryCount)})
			}
			return printTable(out, []string{"Session", "Started", "Finished", "Outcome", "Steps"}, rows)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max sessions to show (0 for all)")
	return cmd
}

func journalExportCmd(app *appContext) *cobra.Command {
	var (
		formatName string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every session and step as json or yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.openJournal()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.OpenFile(output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
				if err != nil {
					return fmt.Errorf("open %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return service.ExportJournal(cmd.Context(), repo, w, formatName)
		},
	}
	cmd.Flags().StringVar(&formatName, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func journalPurgeCmd(app *appContext) *cobra.Command {
	var (
		olderThan time.Duration
		all       bool
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete old sessions; --all also rotates the digest key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.openJournal()
			if err != nil {
				return err
			}
			maint := &service.MaintenanceService{DB: app.db, Journal: repo}
			out := cmd.OutOrStdout()
			if all {
				if err := maint.Reset(cmd.Context()); err != nil {
					return err
				}
				// nothing is left to compare against, so start over with a fresh key
				if err := secrets.DeleteKey(journalKeyName); err != nil {
					app.log.Warn("digest key not rotated", zap.Error(err))
				}
				_, err := fmt.Fprintln(out, "journal cleared")
				return err
			}
			n, err := maint.PurgeOlderThan(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "removed %d sessions\n", n)
			return err
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "remove sessions started before now minus this")
	cmd.Flags().BoolVar(&all, "all", false, "remove every session")
	return cmd
}
