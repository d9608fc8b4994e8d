package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"alcyxob/strength-tracker/internal/app"
	"alcyxob/strength-tracker/internal/plan"
	"alcyxob/strength-tracker/internal/service"
	"alcyxob/strength-tracker/internal/stats"

	"github.com/spf13/cobra"
)

func exportCmd(flags *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every workout and measurement as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, tracker *app.App) error {
				if out == "" || out == "-" {
					return tracker.Transfer.WriteExport(ctx, cmd.OutOrStdout())
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				if err := tracker.Transfer.WriteExport(ctx, f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "export written to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	return cmd
}

func importCmd(flags *globalFlags) *cobra.Command {
	var fromArchive bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Upsert workouts and measurements from an export file",
		Long: `Upsert workouts and measurements from an export file. With --archive
the argument is an object key in the export bucket instead of a local path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, tracker *app.App) error {
				var (
					report *service.ImportReport
					err    error
				)
				if fromArchive {
					report, err = tracker.Transfer.ImportArchive(ctx, args[0])
				} else {
					var f *os.File
					f, err = os.Open(args[0])
					if err != nil {
						return fmt.Errorf("open %s: %w", args[0], err)
					}
					defer f.Close()
					report, err = tracker.Transfer.Import(ctx, f)
				}
				if report != nil {
					renderImportReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&fromArchive, "archive", false, "Read the export from the archive bucket")
	return cmd
}

func archiveCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Upload an export to the archive bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, tracker *app.App) error {
				result, err := tracker.Transfer.ArchiveExport(ctx)
				if err != nil {
					return err
				}
				renderKeyValues(cmd.OutOrStdout(), "Archive", [][2]string{
					{"Key", result.Key},
					{"Download URL", result.DownloadURL},
				})
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <key>",
		Short: "Delete an archived export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, tracker *app.App) error {
				if err := tracker.Transfer.DeleteArchive(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	})
	return cmd
}

func cleanupCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-duplicates",
		Short: "Merge duplicate sessions of the same day and date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, tracker *app.App) error {
				deleted, err := tracker.Workouts.CleanupDuplicateSessions(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d duplicate session(s)\n", deleted)
				return err
			})
		},
	}
}

func scheduleCmd(flags *globalFlags) *cobra.Command {
	var anchor string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the 12-week training calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, tracker *app.App) error {
				if anchor == "" {
					anchor = tracker.Workouts.Today()
				}
				start, err := plan.ParseDate(anchor, time.UTC)
				if err != nil {
					return service.ErrInvalidDate
				}
				workouts, err := tracker.Workouts.Workouts(ctx)
				if err != nil {
					return err
				}
				renderSchedule(cmd.OutOrStdout(), plan.Schedule(start), workouts)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&anchor, "anchor", "", "Any date of the first week, YYYY-MM-DD (today when empty)")
	return cmd
}

func statsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, tracker *app.App) error {
				workouts, err := tracker.Workouts.Workouts(ctx)
				if err != nil {
					return err
				}
				latest, err := tracker.Measurements.LatestMeasurement(ctx)
				if err != nil && !errors.Is(err, service.ErrNoMeasurements) {
					return err
				}
				today, err := plan.ParseDate(tracker.Workouts.Today(), time.UTC)
				if err != nil {
					return err
				}
				renderSummary(cmd.OutOrStdout(), stats.Summarize(workouts, latest, today))
				return nil
			})
		},
	}
}
