// Package cmd wires the command line interface.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/verdanthq/plantid-go/cmd/export"
	"github.com/verdanthq/plantid-go/cmd/identify"
	"github.com/verdanthq/plantid-go/cmd/serve"
	"github.com/verdanthq/plantid-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "plantid",
		Short:   "PlantID-Go CLI",
		Version: conf.Version,
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		identify.Command(settings),
		export.Command(settings),
	)

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d",
		viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Camera.Source, "camera",
		viper.GetString("camera.source"), "Camera device path or stream URL")
	rootCmd.PersistentFlags().StringVar(&settings.History.Path, "history-db",
		viper.GetString("history.path"), "Path to the history database")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("camera.source", rootCmd.PersistentFlags().Lookup("camera"))
	_ = viper.BindPFlag("history.path", rootCmd.PersistentFlags().Lookup("history-db"))
}
