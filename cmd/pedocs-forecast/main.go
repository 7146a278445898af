package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "pedocs-forecast",
		Short:         "24-hour PEDOCS score forecasts from uploaded hourly history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := newServeCommand()
	root.AddCommand(serve, newForecastCommand())
	// Running without a subcommand starts the server.
	root.RunE = serve.RunE

	if err := root.Execute(); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}
