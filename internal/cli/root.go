// Package cli provides the command-line interface for mediactl, the
// demonstration tool that exercises the encrypt/upload/download/retry core
// end to end against local files and a configured set of upload hosts.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rescale-labs/wa-media-core/internal/config"
	"github.com/rescale-labs/wa-media-core/internal/logging"
	"github.com/rescale-labs/wa-media-core/internal/version"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *logging.Logger

	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command for mediactl.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mediactl",
		Short: "Exercise the WhatsApp-compatible media crypto/transport core",
		Long: `mediactl ` + version.Version + ` - exercises key derivation, the
encrypt/upload and download/decrypt pipelines, and the media-retry
signaling protocol against local files and a configured upload host list.

This is a demonstration CLI, not a product surface: the higher-level
messaging/signal protocol that produces DownloadableMessage values lives
outside this module.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = logging.NewDefault()
			if verbose {
				logging.SetGlobalLevel(-1)
			}

			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "configuration file path (default: ~/.config/wa-media-core/config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI, cancelling the shared context on SIGINT/SIGTERM.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)
	return err
}

// AddCommands wires every mediactl subcommand onto rootCmd.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newEncryptCmd())
	rootCmd.AddCommand(newDecryptCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newRetryCmd())
}

// GetLogger returns the global CLI logger, initializing a default one if
// called before PersistentPreRunE (e.g. from tests).
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return logger
}

// GetConfig returns the loaded configuration, falling back to defaults if
// called before PersistentPreRunE.
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.New()
	}
	return cfg
}

// GetContext returns the signal-cancellable root context, falling back to
// context.Background() if called before Execute().
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
