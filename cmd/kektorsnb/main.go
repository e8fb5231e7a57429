// Command kektorsnb serves, loads and benchmarks an LDBC SNB Interactive
// social network graph.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sanonone/kektorsnb/pkg/config"
	"github.com/sanonone/kektorsnb/pkg/engine"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every subcommand. Flags
// explicitly set on the command line override the config file.
type globalFlags struct {
	configPath string
	dataDir    string
	inMemory   bool
	httpAddr   string
	authToken  string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "kektorsnb",
		Short: "LDBC SNB Interactive graph engine",
		Long: `KektorSNB stores an LDBC Social Network Benchmark graph and runs the
Interactive workload against it: short reads (IS1-IS7), complex reads
(IC1-IC14) and inserts (INS1-INS8).

Examples:
  kektorsnb load ./sf1 --data-dir ./data
  kektorsnb serve --http-addr :9091
  kektorsnb query IC13 '{"person1Id":1,"person2Id":2}'
  kektorsnb run workload.jsonl --workers 8`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to the YAML config file")
	pf.StringVar(&g.dataDir, "data-dir", "", "Directory for the transaction log and snapshots")
	pf.BoolVar(&g.inMemory, "in-memory", false, "Run without persistence")
	pf.StringVar(&g.httpAddr, "http-addr", "", "HTTP listen address (e.g. :9091)")
	pf.StringVar(&g.authToken, "auth-token", "", "Bearer token required by the HTTP API")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: text, json")

	rootCmd.AddCommand(
		newServeCmd(g),
		newLoadCmd(g),
		newRunCmd(g),
		newQueryCmd(g),
		newStatsCmd(g),
		newSnapshotCmd(g),
		newMCPCmd(g),
	)
	return rootCmd
}

// load reads the config file, applies the flags the user set and installs
// the default logger on stderr.
func (g *globalFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = g.dataDir
	}
	if g.inMemory {
		cfg.DataDir = ""
	}
	if flags.Changed("http-addr") {
		cfg.HTTPAddr = g.httpAddr
	}
	if flags.Changed("auth-token") {
		cfg.AuthToken = g.authToken
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	slog.SetDefault(cfg.NewLogger(cmd.ErrOrStderr()))
	return cfg, nil
}

// openEngine loads the config and opens the engine it describes.
func (g *globalFlags) openEngine(cmd *cobra.Command) (*engine.Engine, config.Config, error) {
	cfg, err := g.load(cmd)
	if err != nil {
		return nil, cfg, err
	}
	eng, err := engine.Open(cfg.EngineOptions())
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to open engine: %w", err)
	}
	return eng, cfg, nil
}

func closeEngine(eng *engine.Engine) {
	if err := eng.Close(); err != nil {
		slog.Error("Failed to close engine", "error", err)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
