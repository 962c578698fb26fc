// Package cmd holds the floedash commands: serve runs the development server,
// build compiles the dashboard to WebAssembly, render prints a page as the
// dashboard would draw it.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/floeit/floedash/config"
)

var (
	configPath string
	envFiles   []string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "floedash",
	Short: "floedash serves and builds the floe dashboard",
	Long: `
		floedash is the command line tool for the floe dashboard.
		It runs a development server in front of a floe backend, builds the
		WebAssembly client and renders pages headlessly for inspection.
		`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "floedash.toml", "configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, ".env files to load before reading the configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the .env files then the configuration file.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	return config.Load(configPath)
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}
