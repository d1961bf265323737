package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a ppd workspace",
	Long: `Initialize a ppd workspace in the current directory.

Creates .ppd/ with:
  - history.json     Append-only attempt history (on first attempt)
  - attempts/        Per-iteration analysis snapshots
  - consultations/   Web-search consultation records
  - config.yaml      Optional configuration overrides

'ppd analyze' initializes the workspace automatically; init exists for
setting up configuration ahead of the first run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		if err := workspace.Init(cwd); err != nil {
			return err
		}
		fmt.Printf("Initialized workspace in %s\n", workspace.Path(cwd))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
