package relay

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tzhsiao/eew-go/internal/conf"
	"github.com/tzhsiao/eew-go/internal/relay"
)

// Command creates the relay command that runs the full warning pipeline.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the warning relay",
		Long:  "Connect to the seismic alert feed and relay simplified warnings with generated countdown audio until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return relay.Run(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the relay command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Ingress.InfoURL, "infourl", viper.GetString("ingress.infourl"), "Endpoint returning the current feed broker host and port")
	cmd.Flags().StringVar(&settings.Egress.Broker, "egress", viper.GetString("egress.broker"), "Egress broker URL for outbound notifications")
	cmd.Flags().StringVar(&settings.Audio.SourcePath, "clippath", viper.GetString("audio.sourcepath"), "Directory holding the named source clips")
	cmd.Flags().StringVar(&settings.Audio.TargetPath, "target", viper.GetString("audio.targetpath"), "Output path of the rendered countdown file")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
