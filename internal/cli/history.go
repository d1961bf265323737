package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/display"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

var historyFailed bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the attempt history",
	Long: `Show every command attempted across all sessions, in
chronological order, with outcome and provenance.

The history is append-only and shared between sessions: it is what
prevents the same failed command from being retried blindly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(false)
		if err != nil {
			return err
		}

		records := sess.Ledger.Records()
		if len(records) == 0 {
			fmt.Println("No attempts recorded yet.")
			return nil
		}

		theme := sess.Display.Theme()
		dim := theme.Dim

		shown := 0
		for _, r := range records {
			if historyFailed && !r.Failed() {
				continue
			}
			shown++

			symbol := theme.Success("✓")
			switch r.Outcome {
			case types.OutcomeFailure:
				symbol = theme.Error("✗")
			case types.OutcomeVerifyFailed:
				symbol = theme.Warning("~")
			}

			fmt.Printf("%s %s  %s\n", symbol,
				r.Timestamp.Format("2006-01-02 15:04:05"),
				display.Truncate(r.Command, 70))
			fmt.Printf("    %s\n", dim(fmt.Sprintf("tier %d, %s, exit %d", r.Tier, r.IssuedBy, r.ExitStatus)))
			if r.Fingerprint != "" {
				fmt.Printf("    %s\n", dim("fingerprint "+r.Fingerprint))
			}
			if r.Reissue != "" {
				fmt.Printf("    %s\n", dim("reissue: "+r.Reissue))
			}
		}

		fmt.Println()
		fmt.Printf("%d attempt(s)", shown)
		if historyFailed {
			fmt.Printf(" (failed only, %d total)", len(records))
		}
		fmt.Println()

		if diagnoses := sess.Ledger.Diagnoses(); len(diagnoses) > 0 && !historyFailed {
			fmt.Println()
			fmt.Println("Diagnoses:")
			for _, d := range diagnoses {
				fmt.Printf("  • [%s] %s\n", d.ConflictKind, display.Truncate(d.RootCauseSummary, 90))
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "show failed attempts only")
	rootCmd.AddCommand(historyCmd)
}
