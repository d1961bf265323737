package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/analyzer"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/workspace"
)

var (
	analyzeRetries   int
	analyzeAutoApply bool
	analyzeNewEnv    bool
	analyzePip       string
	analyzeTimeout   int
	analyzeNoOracle  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [packages...]",
	Short: "Install packages and diagnose failures",
	Long: `Install the given packages and diagnose any failures.

Each failed install is analyzed, first from the captured output alone,
then with environment diagnostics. With --auto-apply the top proposed
fix is retried, up to the retry budget. If the conflict survives the
budget, the session hands off to 'ppd resolve'.

Examples:
  ppd analyze requests
  ppd analyze "tensorflow==2.10.*" "numpy==1.24.*" --auto-apply
  ppd analyze scipy --new-env`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(true)
		if err != nil {
			return err
		}

		if analyzePip != "" {
			sess.Executor.Config().PipBinary = analyzePip
		}
		if analyzeTimeout > 0 {
			sess.Executor.Config().Timeout = time.Duration(analyzeTimeout) * time.Second
		}

		ctx, cancel := signalContext()
		defer cancel()

		runner := sess.Executor
		if analyzeNewEnv {
			isolated, err := runner.CreateIsolatedEnv(ctx)
			if err != nil {
				return fmt.Errorf("failed to create isolated environment: %w", err)
			}
			sess.Display.Info("Environment", "installing into a fresh virtual environment")
			runner = isolated
		}

		client, err := sess.newOracle(analyzeNoOracle)
		if err != nil {
			sess.Display.Warning(err.Error() + ", continuing with static rules only")
			client = nil
		}

		retries := analyzeRetries
		if retries <= 0 {
			retries = sess.Config.Analyze.MaxRetries
		}

		sess.Display.Header("Analysis")
		start := time.Now()

		loop := analyzer.New(analyzer.Config{
			MaxRetries: retries,
			AutoApply:  analyzeAutoApply,
			Root:       sess.Root,
		}, runner, client, sess.Ledger, sess.Rules, sess.Display, logger)

		state, err := loop.Run(ctx, args)
		if err != nil {
			return err
		}

		if saveErr := workspace.SaveJSON(workspace.AnalysisPath(sess.Root), state); saveErr != nil {
			sess.Display.Warning("could not save analysis state: " + saveErr.Error())
		}

		sess.Display.Duration(time.Since(start))
		if state.Status == types.StatusSolved {
			sess.Display.Solved(state.Iterations, state.Consultations, state.WebSearches)
			return nil
		}

		sess.Display.Exhausted("analysis budget spent", state.Consultations, state.WebSearches)
		sess.Display.Info("Next", "run 'ppd resolve' to continue with escalating solution tiers")
		return errUnresolved
	},
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeRetries, "retries", "r", 0, "max analysis iterations (0 = config default)")
	analyzeCmd.Flags().BoolVar(&analyzeAutoApply, "auto-apply", false, "retry with proposed fixes automatically")
	analyzeCmd.Flags().BoolVar(&analyzeNewEnv, "new-env", false, "install into a fresh virtual environment")
	analyzeCmd.Flags().StringVar(&analyzePip, "pip", "", "pip binary to use")
	analyzeCmd.Flags().IntVar(&analyzeTimeout, "timeout", 0, "per-command timeout in seconds")
	analyzeCmd.Flags().BoolVar(&analyzeNoOracle, "no-oracle", false, "skip oracle consultations, static rules only")
	rootCmd.AddCommand(analyzeCmd)
}
