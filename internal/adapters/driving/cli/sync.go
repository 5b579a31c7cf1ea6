package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/logger"
)

var (
	syncJSON  bool
	syncWatch bool
)

// watchDebounce collapses bursts of change notifications into one cycle.
const watchDebounce = 2 * time.Second

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronisation cycle",
	Long: `Runs one sync cycle: lists the configured source, diffs it against
the last synchronised state by content hash, and applies only the
changes to the index.

Exit codes: 0 clean, 1 aborted before any mutation, 2 completed with
per-document failures (failed documents retry next cycle).`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "print the cycle report as JSON")
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "keep running, syncing when the source changes")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if syncWatch {
		return runWatch(ctx, cmd, a)
	}

	report, err := runOneCycle(ctx, cmd, a)
	if err != nil {
		return err
	}
	if report.Status == domain.StatusPartial {
		exitCode = ExitPartial
	}
	return nil
}

// runOneCycle executes one cycle under the configured timeout and
// prints its report.
func runOneCycle(ctx context.Context, cmd *cobra.Command, a *app) (*domain.SyncReport, error) {
	if timeout := a.cfg.Sync.CycleTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := a.sync.RunCycle(ctx)
	if err != nil {
		// A nil report means the cycle aborted before any mutation. A
		// non-nil report means the index mutated but the state commit
		// failed; that is a partial outcome, not an abort.
		if report == nil {
			return nil, fmt.Errorf("sync aborted: %w", err)
		}
		logger.Error("sync cycle incomplete: %v", err)
	}

	if syncJSON {
		data, merr := json.MarshalIndent(report, "", "  ")
		if merr != nil {
			return nil, fmt.Errorf("serialising report: %w", merr)
		}
		cmd.Println(string(data))
		return report, nil
	}

	printReport(cmd, report)
	return report, nil
}

// printReport renders the human-readable cycle summary.
func printReport(cmd *cobra.Command, report *domain.SyncReport) {
	if report.Mutations() == 0 && !report.HasFailures() {
		cmd.Printf("Index up to date (%d documents unchanged).\n", report.Unchanged)
		return
	}

	cmd.Printf("Sync %s in %s: %d added, %d modified, %d deleted, %d unchanged\n",
		report.Status,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		len(report.Added), len(report.Modified), len(report.Deleted), report.Unchanged)

	for _, failure := range report.Failed {
		cmd.Printf("  failed %s: %s\n", failure.ID, failure.Reason)
	}
	if !report.StateCommitted {
		cmd.Println("  state not committed; this cycle's changes re-apply next run")
	}
}

// runWatch runs an initial cycle, then re-syncs whenever the source
// reports a change. Only watchable sources support this mode.
func runWatch(ctx context.Context, cmd *cobra.Command, a *app) error {
	watchable, ok := a.source.(driven.WatchableSource)
	if !ok {
		return fmt.Errorf("source type %q does not support --watch", a.source.Type())
	}

	if _, err := runOneCycle(ctx, cmd, a); err != nil {
		return err
	}

	events, err := watchable.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			// Let a burst of events settle before syncing.
			timer := time.NewTimer(watchDebounce)
			drain(events, timer.C)

			if _, err := runOneCycle(ctx, cmd, a); err != nil {
				// Fatal cycle errors in watch mode are logged, not
				// terminal; the next change gets a fresh attempt.
				logger.Error("sync cycle failed: %v", err)
			}
		}
	}
}

// drain discards notifications until the timer fires.
func drain(events <-chan struct{}, timer <-chan time.Time) {
	for {
		select {
		case <-events:
		case <-timer:
			return
		}
	}
}
