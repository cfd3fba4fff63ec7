// Package cmd contains all CLI commands for gcpimg
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/gcpimg/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gcpimg",
	Short: "Google image CDN URLs and lazy picture markup",
	Long: `gcpimg builds Google image CDN URLs from image attributes and serves
lazily-loaded <picture> markup.

Example usage:
  gcpimg url src=https://lh3.googleusercontent.com/abc size=640 rotate=90
  gcpimg url src=... sizes="[{'screen':320,'size':320}]" --webp --ect 3g
  gcpimg serve --addr :8080 --base https://lh3.googleusercontent.com/abc
  gcpimg version`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.ErrOrStderr())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .gcpimg.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig loads the configuration and sets up the logger.
func initConfig(stderr io.Writer) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger = newLogger(stderr, cfg.Logging, verbose)
	slog.SetDefault(logger)

	logger.Debug("configuration loaded",
		"addr", cfg.Server.Addr,
		"convention", cfg.Image.Convention,
		"eager", cfg.Image.Eager,
	)
	return nil
}

func newLogger(w io.Writer, lc config.LoggingConfig, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
