package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	mcpserver "github.com/sanonone/kektorsnb/internal/mcp"
	"github.com/sanonone/kektorsnb/internal/server"
	"github.com/sanonone/kektorsnb/pkg/driver"
	"github.com/sanonone/kektorsnb/pkg/loader"
	"github.com/sanonone/kektorsnb/pkg/ops"
	"github.com/spf13/cobra"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var pprof bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := g.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			srv, err := server.NewServer(eng, cfg.HTTPAddr, server.Options{
				AuthToken:       cfg.AuthToken,
				Tuning:          cfg.Tuning,
				LoaderBatchSize: cfg.Loader.BatchSize,
				DriverWorkers:   cfg.Driver.Workers,
				EnablePprof:     pprof,
			})
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Run() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			srv.Shutdown()
			return nil
		},
	}
	cmd.Flags().BoolVar(&pprof, "pprof", false, "Mount the profiling handlers under /debug/pprof/")
	return cmd
}

func newLoadCmd(g *globalFlags) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "load DATASET",
		Short: "Bulk load an LDBC CSV dataset",
		Long: `Load a dataset generated with the LDBC Datagen CsvBasic serializer.
DATASET must contain the static/ and dynamic/ directories.

Examples:
  kektorsnb load ./social_network --data-dir ./data
  kektorsnb load ./social_network --batch-size 10000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := g.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			if !cmd.Flags().Changed("batch-size") {
				batchSize = cfg.Loader.BatchSize
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			l := loader.New(eng, batchSize)
			if err := l.LoadAll(ctx, args[0]); err != nil {
				return err
			}
			if eng.Persistent() {
				if _, err := eng.SaveSnapshot(); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), l.Counts())
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", loader.DefaultBatchSize, "Rows committed per transaction")
	return cmd
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "run WORKLOAD",
		Short: "Run a JSON lines workload and print the latency report",
		Long: `Run every operation of WORKLOAD, one JSON object per line:
  {"kind":"IC13","params":{"person1Id":1,"person2Id":2}}

Examples:
  kektorsnb run workload.jsonl --workers 8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			workload, err := driver.ReadWorkload(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			eng, cfg, err := g.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			if !cmd.Flags().Changed("workers") {
				workers = cfg.Driver.Workers
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			report, err := driver.New(ops.NewDispatcher(eng, cfg.Tuning), workers).Run(ctx, workload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 1, "Concurrent workers")
	return cmd
}

func newQueryCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query KIND [PARAMS]",
		Short: "Run a single operation",
		Long: `Run one operation by code or name with JSON parameters.

Examples:
  kektorsnb query IS1 '{"personId":933}'
  kektorsnb query shortest_path '{"person1Id":1,"person2Id":2}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := ops.ParseKind(args[0])
			if err != nil {
				return err
			}
			var params []byte
			if len(args) == 2 {
				params = []byte(args[1])
			}
			op, err := ops.Decode(kind, params)
			if err != nil {
				return err
			}

			eng, cfg, err := g.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			res, err := ops.NewDispatcher(eng, cfg.Tuning).Execute(cmd.Context(), op)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newStatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print vertex and edge counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := g.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(eng)
			return printJSON(cmd.OutOrStdout(), eng.Stats())
		},
	}
}

func newSnapshotCmd(g *globalFlags) *cobra.Command {
	var rewrite bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a snapshot of the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := g.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			if rewrite {
				if err := eng.RewriteAOF(); err != nil {
					return err
				}
			}
			meta, err := eng.SaveSnapshot()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), meta)
		},
	}
	cmd.Flags().BoolVar(&rewrite, "rewrite-aof", false, "Compact the transaction log first")
	return cmd
}

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the graph as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := g.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			slog.Info("MCP server running on stdio", "version", mcpserver.Version)
			s := mcpserver.NewMCPServer(ops.NewDispatcher(eng, cfg.Tuning))
			if err := s.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
