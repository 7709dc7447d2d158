package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/leapstack-labs/layerlint/internal/cli/config"
	"github.com/leapstack-labs/layerlint/internal/cli/output"
	depfile "github.com/leapstack-labs/layerlint/internal/config"
	"github.com/leapstack-labs/layerlint/internal/loader"
	"github.com/leapstack-labs/layerlint/internal/state"
	"github.com/leapstack-labs/layerlint/pkg/analysis"
	"github.com/leapstack-labs/layerlint/pkg/collector"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// NewAnalyser creates an analyser using the context's logger and worker count.
func (c *CommandContext) NewAnalyser() *analysis.Analyser {
	return analysis.NewAnalyser(
		analysis.WithLogger(c.Logger),
		analysis.WithWorkers(c.Cfg.Workers),
	)
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	workers, _ := strconv.Atoi(os.Getenv("LAYERLINT_WORKERS"))
	return &config.Config{
		Depfile:         getEnvOrDefault("LAYERLINT_DEPFILE", depfile.ConfigFileName),
		Graph:           getEnvOrDefault("LAYERLINT_GRAPH", config.DefaultGraphFile),
		Workers:         workers,
		ReportUntracked: os.Getenv("LAYERLINT_REPORT_UNTRACKED") == "true",
		OutputFormat:    os.Getenv("LAYERLINT_OUTPUT"),
		Verbose:         os.Getenv("LAYERLINT_VERBOSE") == "true",
		LogLevel:        getEnvOrDefault("LAYERLINT_LOG_LEVEL", config.DefaultLogLevel),
		StatePath:       getEnvOrDefault("LAYERLINT_STATE_PATH", config.DefaultStateFile),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadConfiguration reads the depfile and graph file named by cfg and
// assembles them into an analysis configuration.
func loadConfiguration(cfg *config.Config, logger *slog.Logger) (*analysis.Configuration, error) {
	deps, err := depfile.LoadDepfile(cfg.Depfile)
	if err != nil {
		return nil, fmt.Errorf("failed to load depfile: %w", err)
	}

	graph, err := loader.LoadGraph(cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	logger.Debug("loaded project",
		slog.String("depfile", cfg.Depfile),
		slog.String("graph", cfg.Graph),
		slog.Int("layers", len(deps.Layers)),
		slog.Int("entities", len(graph.Entities)))

	return deps.Assemble(collector.DefaultRegistry(), graph.CoreEntities(), graph.CoreEdges(), cfg.ReportUntracked)
}

// openStore opens the run history database. The caller must close it.
func openStore(cfg *config.Config) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}
	return store, nil
}
