package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"asthmapredict/config"
	"asthmapredict/logger"
	"asthmapredict/patient"
	"asthmapredict/predict"
	"asthmapredict/tui"
)

func predictCmd(configPath *string) *cobra.Command {
	var (
		sets   []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict from field values given on the command line",
		Long: "Predict from field values given as --set Field=Value. Fields that are " +
			"not set take their form default. Run `asthma fields` to list them.",
		Example: "  asthma predict --set Age=42 --set Gender=Female --set Wheezing=Yes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(loggerOptions(cfg))
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Model.RemoteTimeout+5*time.Second)
			defer cancel()
			return runPredict(ctx, a.service, sets, asJSON, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "Field value as Field=Value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

type predictor interface {
	Predict(ctx context.Context, record patient.Record, source string) (predict.Result, error)
}

// runPredict encodes the assignments, predicts and prints the result.
func runPredict(ctx context.Context, service predictor, sets []string, asJSON bool, out io.Writer) error {
	values, err := patient.ParseAssignments(sets)
	if err != nil {
		return err
	}
	record, err := patient.FromValues(values, true)
	if err != nil {
		return err
	}

	result, err := service.Predict(ctx, record, predict.SourceCLI)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			predict.Result
			Message string `json:"message"`
		}{result, result.Message()})
	}
	if !result.HasConfidence() {
		_, err = fmt.Fprintln(out, result.Message())
		return err
	}
	_, err = fmt.Fprintf(out, "%s (%.1f%% confidence)\n", result.Message(), result.Confidence*100)
	return err
}

func formCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Fill in the prediction form in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			opts := loggerOptions(cfg)
			opts.NoConsole = true
			log, err := logger.New(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			result, err := tui.Run(a.service)
			if err != nil {
				return err
			}
			if result != nil {
				fmt.Fprintln(cmd.OutOrStdout(), result.Message())
			}
			return nil
		},
	}
}
