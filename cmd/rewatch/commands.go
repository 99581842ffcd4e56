package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rewatch/internal/compare"
	"rewatch/internal/console"
	"rewatch/internal/metrics"
	"rewatch/internal/stat"
	"rewatch/internal/state"
	"rewatch/internal/walker"
	"rewatch/internal/watcher"
)

// errChanges makes status exit non-zero without printing an error.
var errChanges = errors.New("changes detected")

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Watch paths and print changes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), args)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report what changed since the state file was written",
	RunE: func(cmd *cobra.Command, args []string) error {
		update, _ := cmd.Flags().GetBool("update")
		return runStatus(update)
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [paths...]",
	Short: "Record the current state of paths to the state file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshot(args)
	},
}

func init() {
	statusCmd.Flags().BoolP("update", "u", false, "Write the current state back to the state file")
}

func watcherOptions(interval time.Duration, m *metrics.Metrics) watcher.Options {
	opts := watcher.DefaultOptions()
	opts.Interval = interval
	opts.Validate = cfg.Validate
	opts.FullName = cfg.FullName
	opts.Logger = slog.Default()
	opts.Metrics = m
	return opts
}

// filtered drops events for excluded paths before they reach cb.
func filtered(cb watcher.Callback) watcher.Callback {
	return func(kind watcher.EventKind, path string, st *stat.Stat) {
		if walker.Excluded(path, cfg.Exclude) {
			return
		}
		cb(kind, path, st)
	}
}

func expandPaths(args []string) ([]string, error) {
	patterns := append(append([]string{}, cfg.Paths...), args...)
	if len(patterns) == 0 {
		return nil, errors.New("no paths to watch: pass paths or set paths in the config file")
	}

	result, err := walker.Expand(patterns, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	for _, expandErr := range result.Errors {
		slog.Warn("skipping pattern", "error", expandErr)
	}
	return result.Paths, nil
}

func watchAll(w *watcher.Watcher, paths []string) error {
	for _, path := range paths {
		if err := w.Watch(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	store := state.NewStore(cfg.StateFile)
	if err := store.Lock(); err != nil {
		return err
	}
	defer store.Unlock()

	reg := prometheus.NewRegistry()
	printer := console.New(os.Stdout)

	w, err := watcher.New(watcherOptions(cfg.PollInterval(), metrics.New(reg)), filtered(printer.Event))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if store.Exists() {
		snap, err := store.Load()
		if err != nil {
			w.Close()
			return fmt.Errorf("failed to load state: %w", err)
		}
		if err := w.Restore(snap); err != nil {
			w.Close()
			return err
		}
		slog.Info("restored state", "file", store.Path(), "targets", len(snap))
	}

	if len(cfg.Paths) > 0 || len(args) > 0 {
		paths, err := expandPaths(args)
		if err != nil {
			w.Close()
			return err
		}
		if err := watchAll(w, paths); err != nil {
			w.Close()
			return err
		}
	}

	if w.Len() == 0 {
		w.Close()
		return errors.New("no paths to watch: pass paths or set paths in the config file")
	}
	slog.Info("watching", "targets", w.Len(), "interval", cfg.PollInterval(), "validate", cfg.Validate)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, reg)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	runErr := g.Wait()

	if err := store.Save(w.Save()); err != nil {
		slog.Error("failed to save state", "file", store.Path(), "error", err)
	}
	if err := w.Close(); err != nil {
		slog.Warn("closing watcher", "error", err)
	}
	printer.Finish()

	return runErr
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	slog.Info("serving metrics", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func runStatus(update bool) error {
	store := state.NewStore(cfg.StateFile)
	if !store.Exists() {
		return fmt.Errorf("no state file at %s: run rewatch snapshot first", store.Path())
	}

	if update {
		if err := store.Lock(); err != nil {
			return err
		}
		defer store.Unlock()
	}

	snap, serialized, err := state.Load(store.Path())
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	fmt.Printf("Loaded state from %s (%d targets, digest %.16s..., taken %s)\n",
		store.Path(), len(snap), serialized.Digest, serialized.Created.Local().Format("2006-01-02 15:04:05"))

	collector := compare.NewCollector()
	w, err := watcher.New(watcherOptions(0, nil), filtered(collector.Record))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	if err := w.Restore(snap); err != nil {
		return err
	}

	result := collector.Result()
	fmt.Println()
	fmt.Print(compare.FormatReport(result))
	fmt.Println()

	if update {
		if err := store.Save(w.Save()); err != nil {
			return fmt.Errorf("failed to save state: %w", err)
		}
		fmt.Printf("✓ State updated: %s\n", store.Path())
	}

	if result.HasChanges() {
		return errChanges
	}
	return nil
}

func runSnapshot(args []string) error {
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	w, err := watcher.New(watcherOptions(0, nil), nil)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	if err := watchAll(w, paths); err != nil {
		return err
	}

	store := state.NewStore(cfg.StateFile)
	if err := store.Lock(); err != nil {
		return err
	}
	defer store.Unlock()

	snap := w.Save()
	if err := store.Save(snap); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	digest, err := state.Digest(snap)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Snapshot saved\n")
	fmt.Printf("  Digest: %x\n", digest)
	fmt.Printf("  Targets: %d\n", len(snap))
	fmt.Printf("  Output: %s\n", store.Path())
	return nil
}
