package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/questsync/internal/logsync"
	"github.com/abhisek/questsync/internal/logwatch"
)

var syncCmd = &cobra.Command{
	Use:   "sync [log]...",
	Short: "Apply quest events from game log files",
	Long: `Read quest notifications from game log files and apply them to saved progress.

Content already in a log when it is first read is treated as history and is
not applied unless --include-history is given. With --follow the files are
polled and newly appended lines are applied as they arrive.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("include-history", false, "Apply events already present in the logs")
	syncCmd.Flags().Bool("follow", false, "Keep polling the logs for new lines")
	syncCmd.Flags().Duration("interval", 0, "Polling interval with --follow (default from settings)")
	syncCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file after each sync")
}

func runSync(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	paths := args
	if len(paths) == 0 {
		paths = env.cfg.Sync.LogPaths
	}
	if len(paths) == 0 {
		return errors.New("no log files given and none configured in settings")
	}

	includeHistory, _ := cmd.Flags().GetBool("include-history")
	includeHistory = includeHistory || env.cfg.Sync.IncludeHistory
	follow, _ := cmd.Flags().GetBool("follow")
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = env.cfg.Sync.PollInterval()
	}
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	if metricsFile == "" {
		metricsFile = env.cfg.Sync.MetricsFile
	}

	orch := env.engine.Orchestrator()
	if includeHistory {
		for _, p := range paths {
			orch.Parser().MarkLive(p)
		}
	}

	w := cmd.OutOrStdout()
	report := func(res *logsync.Result) {
		printSyncResult(w, env.engine, env.cfg.Locale, res)
		if metricsFile != "" {
			if err := env.metrics.WriteTextfile(metricsFile); err != nil {
				env.logger.Warn("write metrics file failed", "path", metricsFile, "err", err)
			}
		}
	}

	if !follow {
		for _, p := range paths {
			lines, err := logwatch.NewTailer(p).Poll()
			if err != nil {
				return err
			}
			report(orch.ApplyLines(cmd.Context(), p, lines))
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	queue := logsync.NewQueue(orch, 16, report)
	go queue.Run(ctx)

	watcher := logwatch.NewWatcher(paths, interval, func(ctx context.Context, source string, lines []string) {
		if err := queue.Enqueue(ctx, logsync.Batch{Source: source, Lines: lines}); err != nil && ctx.Err() == nil {
			env.logger.Warn("enqueue sync batch failed", "source", source, "err", err)
		}
	}, env.logger)

	lipgloss.Fprintf(w, "watching %d log(s) every %s; press Ctrl+C to stop\n", len(paths), interval.Round(time.Millisecond))
	err = watcher.Run(ctx)
	queue.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
