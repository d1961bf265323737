package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/resolver"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/utils"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/workspace"
)

var (
	resolveMaxConsults int
	resolveNoOracle    bool
	resolveAutoApply   bool
	resolveTimeout     int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [analysis-file]",
	Short: "Resolve an analyzed conflict through escalating solution tiers",
	Long: `Resolve a conflict left over from 'ppd analyze'.

Solutions are tried one at a time in escalating tiers: known fixes,
web-verified fixes, alternative packages, then environment-level
changes. Each applied solution must pass verification before the run
counts as solved. When a tier runs out, the web-search oracle is
consulted for a new strategy, up to the consultation budget.

Every run ends in a written report (.ppd/report.json) with an explicit
outcome.

Examples:
  ppd resolve
  ppd resolve --max-consultations 4
  ppd resolve --no-oracle`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(false)
		if err != nil {
			return err
		}

		if resolveTimeout > 0 {
			sess.Executor.Config().Timeout = time.Duration(resolveTimeout) * time.Second
		}

		statePath := workspace.AnalysisPath(sess.Root)
		if len(args) > 0 {
			// An explicitly named handoff file must exist.
			statePath = args[0]
			if !utils.FileExists(statePath) {
				return fmt.Errorf("analysis file not found: %s", statePath)
			}
		}

		var seed *types.ResolutionState
		if utils.FileExists(statePath) {
			var state types.ResolutionState
			if err := workspace.LoadJSON(statePath, &state); err != nil {
				return err
			}
			seed = &state
		}

		client, err := sess.newOracle(resolveNoOracle)
		if err != nil {
			sess.Display.Warning(err.Error() + ", continuing without the oracle")
			client = nil
		}

		maxConsults := resolveMaxConsults
		if maxConsults <= 0 {
			maxConsults = sess.Config.Resolve.MaxConsultations
		}

		var confirm resolver.ConfirmFunc
		if !resolveAutoApply {
			confirm = confirmPrompt
		}

		originalIssue := "resolve python package dependency conflict"
		if seed != nil {
			originalIssue = "resolve conflict from session " + seed.SessionID
		}

		ctx, cancel := signalContext()
		defer cancel()

		sess.Display.Header("Resolution")
		start := time.Now()

		loop := resolver.New(resolver.Config{
			MaxConsultations: maxConsults,
			Root:             sess.Root,
			OriginalIssue:    originalIssue,
			Confirm:          confirm,
		}, sess.Executor, client, sess.Ledger, sess.Display, logger)

		report, err := loop.Run(ctx, seed)
		if err != nil {
			return err
		}

		sess.Display.Duration(time.Since(start))
		if len(report.PreventionTips) > 0 {
			sess.Display.Box("Prevention", report.PreventionTips...)
		}
		if report.Solved() {
			sess.Display.Solved(len(report.SolutionHistory), report.AIConsultations, report.WebSearches)
			return nil
		}

		sess.Display.Exhausted(strings.ReplaceAll(string(report.Reason), "-", " "),
			report.AIConsultations, report.WebSearches)
		for _, alt := range report.Alternatives {
			sess.Display.Info("Alternative", alt.Alternative+" instead of "+alt.Original+": "+alt.Reason)
		}
		return errUnresolved
	},
}

func init() {
	resolveCmd.Flags().IntVarP(&resolveMaxConsults, "max-consultations", "m", 0, "max web-search consultations (0 = config default)")
	resolveCmd.Flags().BoolVar(&resolveNoOracle, "no-oracle", false, "skip oracle consultations")
	resolveCmd.Flags().BoolVar(&resolveAutoApply, "auto-apply", false, "apply solutions without confirmation")
	resolveCmd.Flags().IntVar(&resolveTimeout, "timeout", 0, "per-command timeout in seconds")
	rootCmd.AddCommand(resolveCmd)
}
