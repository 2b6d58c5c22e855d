package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cnoret/retail-data-analysis/pkg/config"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
	"github.com/cnoret/retail-data-analysis/pkg/logger"
	"github.com/cnoret/retail-data-analysis/pkg/metrics"
	"github.com/cnoret/retail-data-analysis/pkg/pipeline"
	"github.com/cnoret/retail-data-analysis/pkg/runlog"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "retail",
	Short:         "Retail sales data preparation and sales modeling",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "retail.yaml", "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd, prepareCmd, trainCmd, predictCmd, exploreCmd)
}

// app is what every subcommand needs, built from the config.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	runs    *runlog.Store
	runner  *pipeline.Runner
}

var current *app

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	if cfg.RunLog.Path != "" {
		if a.runs, err = runlog.Open(cfg.RunLog.Path); err != nil {
			log.Warn("run log disabled", "path", cfg.RunLog.Path, "error", err.Error())
		}
	}
	a.runner = pipeline.NewRunner(cfg, log, a.metrics, a.runs)
	current = a
	return a, nil
}

func (a *app) close() {
	if a.runs != nil {
		_ = a.runs.Close()
	}
	a.log.Sync()
}

// printJSON writes v indented to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe prefixes a failure with its kind for the terminal.
func describe(err error) error {
	if k := failure.KindOf(err); k != failure.Unknown {
		return fmt.Errorf("%s: %w", k, err)
	}
	return err
}
