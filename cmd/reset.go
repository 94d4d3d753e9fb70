package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget everything the client knows about synced items",
	Long: `Clear the local sync ledger and backup log.

This does not touch anything on the server. The next backup run will
re-fingerprint the whole library and rely on the server's duplicate-check
to avoid re-uploading, so a reset is safe but slow.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		fmt.Print("Clear the local sync ledger? The next run will re-scan everything. [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}
	if err := ctrl.ClearSyncState(); err != nil {
		return fmt.Errorf("failed to clear sync state: %w", err)
	}
	fmt.Println("Sync ledger cleared")
	return nil
}
