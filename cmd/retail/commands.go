package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/model"
	"github.com/cnoret/retail-data-analysis/pkg/pipeline"
	"github.com/cnoret/retail-data-analysis/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(a.runner, a.log, a.metrics).Run(ctx, a.cfg.Server)
	},
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Load, clean and merge the inputs, then write the merged dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		res, err := a.runner.RunProcessing(cmd.Context())
		if res != nil {
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
		}
		if err != nil {
			return describe(err)
		}
		return nil
	},
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Summarize the input and merged datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		res, err := a.runner.RunExploration(cmd.Context())
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

// trainFlags are shared by train and predict.
type trainFlags struct {
	model     string
	trees     int
	seed      int64
	testRatio float64
	missing   string
}

func (f *trainFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model to fit: linear or forest (default from config)")
	cmd.Flags().IntVar(&f.trees, "trees", 0, "Number of forest trees (default from config)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Split and forest seed (default from config)")
	cmd.Flags().Float64Var(&f.testRatio, "test-ratio", 0, "Held-out share of rows (default from config)")
	cmd.Flags().StringVar(&f.missing, "missing", "", "Absent model inputs: drop or error (default from config)")
}

func (f *trainFlags) request(cmd *cobra.Command) (pipeline.TrainRequest, error) {
	req := pipeline.TrainRequest{
		Trees:     f.trees,
		TestRatio: f.testRatio,
		Missing:   dataprep.MissingPolicy(f.missing),
	}
	if cmd.Flags().Changed("seed") {
		req.Seed = pipeline.Seed(f.seed)
	}
	if f.model != "" {
		kind, err := model.ParseKind(f.model)
		if err != nil {
			return req, err
		}
		req.Kind = kind
	}
	switch req.Missing {
	case "", dataprep.MissingDrop, dataprep.MissingError:
	default:
		return req, fmt.Errorf("unknown missing policy %q", f.missing)
	}
	return req, nil
}

var trainOpts trainFlags

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit and score a model on the merged dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := trainOpts.request(cmd)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		res, err := a.runner.RunModeling(cmd.Context(), req, nil)
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var (
	predictOpts trainFlags
	predictRow  dataprep.FeatureRow
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Fit a model and predict weekly sales for one input row",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := predictOpts.request(cmd)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		res, err := a.runner.RunModeling(cmd.Context(), req, &predictRow)
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s predicts weekly sales of %s\n", res.Model, res.Prediction.Formatted)
		return nil
	},
}

func init() {
	trainOpts.register(trainCmd)
	predictOpts.register(predictCmd)

	f := predictCmd.Flags()
	f.IntVar(&predictRow.Store, "store", 1, "Store number")
	f.IntVar(&predictRow.Dept, "dept", 1, "Department number")
	f.BoolVar(&predictRow.IsHoliday, "holiday", false, "Holiday week")
	f.Float64Var(&predictRow.Temperature, "temperature", 0, "Temperature")
	f.Float64Var(&predictRow.FuelPrice, "fuel-price", 0, "Fuel price")
	f.Float64Var(&predictRow.CPI, "cpi", 0, "Consumer price index")
	f.Float64Var(&predictRow.Unemployment, "unemployment", 0, "Unemployment rate")
	f.StringVar(&predictRow.Type, "type", "A", "Store type")
}
