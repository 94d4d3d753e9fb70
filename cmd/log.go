package cmd

import (
	"fmt"
	"time"

	"github.com/famvault/cli/pkg/model"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent backup outcomes, newest first",
	RunE:  runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntP("limit", "n", 20, "maximum entries to show")
}

func runLog(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	entries, err := ctrl.BackupLogEntries()
	if err != nil {
		return fmt.Errorf("failed to load backup log: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("Backup log is empty")
		return nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	for _, entry := range entries {
		ts := time.UnixMicro(entry.Timestamp).Format("2006-01-02 15:04:05")
		name := entry.Filename
		if name == "" {
			name = "-"
		}
		line := fmt.Sprintf("%s  %-7s  %-30s  %s", ts, entry.Outcome, name, entry.Message)
		switch entry.Outcome {
		case model.OutcomeSuccess:
			color.Green("%s", line)
		case model.OutcomeSkip:
			fmt.Println(line)
		case model.OutcomeError:
			color.Red("%s", line)
		}
	}
	return nil
}
