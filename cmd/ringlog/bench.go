package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/philipp01105/ringlog/config"
	"github.com/philipp01105/ringlog/diag"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/logger"
	"github.com/philipp01105/ringlog/setup"
)

type benchOptions struct {
	producers   int
	messages    int
	output      string
	capacity    int
	policy      string
	metricsAddr string
}

func newBenchCmd(cfgPath *string) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run concurrent producers through the pipeline",
		Long: `Run concurrent producers through the async pipeline and report throughput
and pipeline statistics.

Each producer owns a diagnostic context and logs numbered INFO entries. Without
--config the entries go to a JSON file that "ringlog check" can verify.`,
		Example: `  ringlog bench --producers 8 --messages 100000
  ringlog bench --policy blocking --capacity 256 --output /tmp/bench.log
  ringlog check /tmp/bench.log --messages 100000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), cmd, *cfgPath, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.producers, "producers", "p", 4, "number of concurrent producers")
	f.IntVarP(&opts.messages, "messages", "n", 10000, "entries logged by each producer")
	f.StringVarP(&opts.output, "output", "o", "ringlog-bench.log", "JSON output file when no --config is given")
	f.IntVar(&opts.capacity, "capacity", 0, "ring capacity, a power of two (overrides the configuration)")
	f.StringVar(&opts.policy, "policy", "", "queue-full policy: blocking, discard or sync (overrides the configuration)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

func benchConfig(cfgPath string, opts *benchOptions) (*config.Config, error) {
	var cfg *config.Config
	if cfgPath != "" {
		loaded, err := config.LoadConfigWithEnvOverrides(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		cfg.Name = "bench"
		cfg.Handlers = []config.HandlerConfig{{Type: "file", Path: opts.output, Format: "json"}}
	}

	if opts.capacity > 0 {
		cfg.Pipeline.Capacity = opts.capacity
	}
	if opts.policy != "" {
		cfg.Pipeline.Policy = opts.policy
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = opts.metricsAddr
	}
	return cfg, nil
}

func runBench(ctx context.Context, cmd *cobra.Command, cfgPath string, opts *benchOptions) error {
	if opts.producers < 1 || opts.messages < 0 {
		return fmt.Errorf("invalid load: %d producers, %d messages", opts.producers, opts.messages)
	}
	cfg, err := benchConfig(cfgPath, opts)
	if err != nil {
		return err
	}

	sys, err := setup.New(cfg, setup.WithStdout(cmd.OutOrStdout()), setup.WithStderr(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	if addr := sys.MetricsAddr(); addr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "serving metrics on http://%s/metrics\n", addr)
	}

	start := time.Now()
	runErr := produce(ctx, sys.Logger, opts.producers, opts.messages)
	elapsed := time.Since(start)

	shutdownErr := sys.Shutdown(0)
	total := time.Since(start)

	interrupted := errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		return multierr.Append(runErr, shutdownErr)
	}

	var stats *handler.Snapshot
	if sys.Pipeline != nil {
		s := sys.Pipeline.Stats()
		stats = &s
	}
	renderBench(cmd.OutOrStdout(), opts, stats, elapsed, total, interrupted)
	return shutdownErr
}

// produce runs producers concurrently until each has logged messages
// entries or ctx is cancelled.
func produce(ctx context.Context, log *logger.Logger, producers, messages int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < producers; i++ {
		g.Go(func() error {
			dc := diag.New("producer-" + strconv.Itoa(i))
			dc.Put("producer", strconv.Itoa(i))
			l := log.Bind(dc)
			for n := 0; n < messages; n++ {
				if n&1023 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				l.Info("bench", logger.Int("n", n))
			}
			return nil
		})
	}
	return g.Wait()
}

func renderBench(w io.Writer, opts *benchOptions, stats *handler.Snapshot, elapsed, total time.Duration, interrupted bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"METRIC", "VALUE"})

	logged := opts.producers * opts.messages
	t.AppendRow(table.Row{"producers", opts.producers})
	t.AppendRow(table.Row{"entries", logged})
	t.AppendRow(table.Row{"producer time", elapsed.Round(time.Microsecond)})
	t.AppendRow(table.Row{"total time", total.Round(time.Microsecond)})
	if elapsed > 0 {
		t.AppendRow(table.Row{"entries/s", int64(float64(logged) / elapsed.Seconds())})
	}
	if interrupted {
		t.AppendRow(table.Row{"interrupted", true})
	}

	if stats != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"enqueued", stats.EnqueuedTotal})
		t.AppendRow(table.Row{"processed", stats.ProcessedTotal})
		t.AppendRow(table.Row{"dropped", stats.Dropped()})
		t.AppendRow(table.Row{"blocked", stats.BlockedTotal})
		t.AppendRow(table.Row{"claim timeouts", stats.ClaimTimeouts})
		t.AppendRow(table.Row{"sync dispatched", stats.SyncDispatched})
		t.AppendRow(table.Row{"dispatch errors", stats.DispatchErrors})
	}
	t.Render()
}
