package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"rewatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rewatch",
	Short: "Watch files and directories, reconciling native notifications with periodic sweeps",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("config", "c", "rewatch.yaml", "Config file path")
	flags.IntP("interval", "i", 0, "Reconciliation interval in milliseconds (0 disables sweeps)")
	flags.Bool("validate", false, "Fingerprint file contents to suppress no-op changes")
	flags.Bool("full-name", true, "Report absolute paths")
	flags.StringP("state", "s", "", "State file path")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(watchCmd, statusCmd, snapshotCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errChanges) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file and lets explicitly set flags override it.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")

	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("interval") {
		loaded.Interval, _ = flags.GetInt("interval")
	}
	if flags.Changed("validate") {
		loaded.Validate, _ = flags.GetBool("validate")
	}
	if flags.Changed("full-name") {
		loaded.FullName, _ = flags.GetBool("full-name")
	}
	if flags.Changed("state") {
		loaded.StateFile, _ = flags.GetString("state")
	}
	if flags.Changed("log-level") {
		loaded.LogLevel, _ = flags.GetString("log-level")
	}

	level, err := loaded.Level()
	if err != nil {
		return err
	}
	setupLogger(level)

	cfg = loaded
	return nil
}

func setupLogger(level slog.Level) {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))
}
