package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	audiocmd "github.com/tzhsiao/eew-go/cmd/audio"
	relaycmd "github.com/tzhsiao/eew-go/cmd/relay"
	"github.com/tzhsiao/eew-go/internal/conf"
	"github.com/tzhsiao/eew-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "eew-go",
		Short: "Earthquake early warning relay",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		logging.Fatal("error setting up flags", "error", err)
	}

	rootCmd.AddCommand(relaycmd.Command(settings), audiocmd.Command(settings))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.ParseLevel(settings.Main.Log.Level))
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().StringVar(&settings.Main.Log.Level, "loglevel", viper.GetString("main.log.level"), "Minimum log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&settings.Region.City, "city", viper.GetString("region.city"), "City of the fixed evaluation point")
	rootCmd.PersistentFlags().StringVar(&settings.Region.District, "district", viper.GetString("region.district"), "District of the fixed evaluation point")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
