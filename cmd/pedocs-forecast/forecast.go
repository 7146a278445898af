package main

import (
	"context"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/i474232898/pedocs-forecast/internal/config"
	"github.com/i474232898/pedocs-forecast/internal/logging"
)

func newForecastCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run the prediction pipeline on a CSV file and print the JSON response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			p := buildPipeline(cfg, logging.New(cfg.LogVerbosity))
			defer p.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout*time.Duration(cfg.WeatherMaxRetries+2))
			defer cancel()

			points, err := p.service.Predict(ctx, raw)
			if err != nil {
				return err
			}

			out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(points, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV with 'Hour' and 'PEDOCS Score' columns")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
