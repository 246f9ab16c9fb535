package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	telemetryLimit  int
	telemetryOutput string
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Show recent generative-stage token usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		records, err := st.ListTelemetry(cmd.Context(), telemetryLimit)
		if err != nil {
			return eris.Wrap(err, "list telemetry")
		}

		switch telemetryOutput {
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(records)
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		default:
			return eris.Errorf("unknown output format %q", telemetryOutput)
		}
	},
}

func init() {
	telemetryCmd.Flags().IntVar(&telemetryLimit, "limit", 50, "maximum records to show")
	telemetryCmd.Flags().StringVar(&telemetryOutput, "output", "json", "output format: json or yaml")
	rootCmd.AddCommand(telemetryCmd)
}
