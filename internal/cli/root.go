package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// errUnresolved signals a nonzero exit after the terminal outcome has
// already been shown to the user.
var errUnresolved = errors.New("issue not resolved")

var (
	version = "0.1.0"
	cfgFile string
	logFile string
	verbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ppd",
	Short: "Self-correcting Python package installer",
	Long: `ppd installs Python packages and automatically resolves
dependency conflicts.

Two phases:
  analyze - Run the installs, diagnose failures, retry with fixes
  resolve - Walk escalating solution tiers until solved or exhausted

Get started:
  ppd analyze tensorflow==2.10 "numpy==1.24.*"
  ppd resolve
  ppd history`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		if logFile != "" {
			config.OutputPaths = []string{logFile}
			config.ErrorOutputPaths = []string{logFile}
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. The logger is flushed on every path,
// including commands that end in an error.
func Execute() error {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil && !errors.Is(err, errUnresolved) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .ppd/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log", "", "write structured logs to a file instead of stderr")
	rootCmd.SetVersionTemplate(fmt.Sprintf("ppd version %s\n", version))
}
