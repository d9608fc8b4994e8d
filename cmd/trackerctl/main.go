// Command trackerctl runs maintenance tasks against the tracker's store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"alcyxob/strength-tracker/internal/app"
	"alcyxob/strength-tracker/internal/config"
	"alcyxob/strength-tracker/internal/logging"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "trackerctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configDir string
	logLevel  string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Strength tracker maintenance CLI",
		Long: `trackerctl talks to the same store as the tracker server.

It can export and import the whole history, merge duplicate workout
sessions, print the 12-week schedule and print dashboard statistics.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configDir, "config", "c", ".", "Directory holding config.yaml")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		exportCmd(flags),
		importCmd(flags),
		archiveCmd(flags),
		cleanupCmd(flags),
		scheduleCmd(flags),
		statsCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// withApp loads the configuration, opens the store and runs fn. Logs go to
// stderr so command output stays clean.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, tracker *app.App) error) error {
	cfg, err := config.LoadConfig(flags.configDir)
	if err != nil {
		return err
	}
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.Log.File,
		LogToStdout:   false,
		LogLevel:      flags.logLevel,
		LogFormatJSON: cfg.Log.JSON,
	})
	if cfg.Log.File == "" {
		log.SetOutput(cmd.ErrOrStderr())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	tracker, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer tracker.Close()
	return fn(ctx, tracker)
}
