package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/famvault/cli/pkg/mediasource"
	"github.com/famvault/cli/pkg/model"
	"github.com/famvault/cli/pkg/syncengine"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var backupCmd = &cobra.Command{
	Use:   "backup [media-dir]",
	Short: "Back up a media directory to the server",
	Long: `Scan a directory of photos and videos and upload everything the server
does not already store.

Items already known synced from the local ledger are skipped without any
network call; the rest are fingerprinted and reconciled against the
server's duplicate-check in bounded batches before uploading. Ctrl+C
pauses cooperatively: the in-flight transfer completes, nothing is lost,
and the next run resumes where this one stopped.

Examples:
  famvault backup ~/Pictures
  famvault backup --videos-only ~/Pictures
  famvault backup --taken-after=2024-01-01 ~/Pictures
  famvault backup --watch=15m ~/Pictures`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().Int("batch-size", 0, "fingerprints per duplicate-check request")
	backupCmd.Flags().Int("max-retries", 0, "upload attempts per item")
	backupCmd.Flags().Duration("retry-delay", 0, "base delay between upload retries")
	backupCmd.Flags().Bool("videos-only", false, "back up videos only")
	backupCmd.Flags().Bool("photos-only", false, "back up photos only")
	backupCmd.Flags().String("taken-after", "", "only items captured after this date (YYYY-MM-DD)")
	backupCmd.Flags().Duration("watch", 0, "keep running and re-sync at this interval")
}

func runBackup(cmd *cobra.Command, args []string) error {
	mediaDir := viper.GetString("media-dir")
	if len(args) == 1 {
		mediaDir = args[0]
	}
	if mediaDir == "" {
		return fmt.Errorf("no media directory given (argument or 'media-dir' config key)")
	}

	videosOnly, _ := cmd.Flags().GetBool("videos-only")
	photosOnly, _ := cmd.Flags().GetBool("photos-only")
	if videosOnly && photosOnly {
		return fmt.Errorf("--videos-only and --photos-only are mutually exclusive")
	}
	filter := mediasource.Filter{VideosOnly: videosOnly, PhotosOnly: photosOnly}
	if after, _ := cmd.Flags().GetString("taken-after"); after != "" {
		t, err := time.Parse("2006-01-02", after)
		if err != nil {
			return fmt.Errorf("invalid --taken-after date '%s': %w", after, err)
		}
		filter.TakenAfter = t
	}

	cfg := syncengine.Config{
		BatchSize:      viper.GetInt("batch-size"),
		MaxRetries:     viper.GetInt("max-retries"),
		RetryBaseDelay: viper.GetDuration("retry-delay"),
		LogCap:         viper.GetInt("log-cap"),
	}
	if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
		cfg.BatchSize = v
	}
	if v, _ := cmd.Flags().GetInt("max-retries"); v > 0 {
		cfg.MaxRetries = v
	}
	if v, _ := cmd.Flags().GetDuration("retry-delay"); v > 0 {
		cfg.RetryBaseDelay = v
	}

	controller, err := ctrl.NewBackupController(mediaDir, cfg)
	if err != nil {
		return err
	}

	// Ctrl+C pauses the run cooperatively: the in-flight call completes,
	// state is flushed, and the process exits on the paused summary.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	quit := make(chan struct{})
	go func() {
		<-sigChan
		fmt.Println("\nPausing after the current item...")
		controller.Pause()
		close(quit)
	}()

	interval, _ := cmd.Flags().GetDuration("watch")
	for {
		final, err := runOnce(controller, filter)
		if err != nil {
			return err
		}
		printBackupSummary(final)

		if interval <= 0 || final.State == model.BackupStatePaused {
			return backupExitError(final)
		}
		fmt.Printf("Next sync in %s\n", interval)
		select {
		case <-time.After(interval):
		case <-quit:
			return nil
		}
	}
}

// runOnce drives one backup run to a terminal state, rendering live
// progress.
func runOnce(controller *syncengine.Controller, filter mediasource.Filter) (model.BackupProgress, error) {
	if err := controller.Start(context.Background(), filter); err != nil {
		return model.BackupProgress{}, err
	}

	var final model.BackupProgress
	for progress := range controller.Events() {
		fmt.Printf("\r\033[K%s", renderProgress(progress))
		final = progress
		if progress.State.Terminal() {
			break
		}
	}
	fmt.Println()
	controller.Wait()
	return final, nil
}

// renderProgress formats one progress snapshot as a single status line.
func renderProgress(p model.BackupProgress) string {
	const barWidth = 30
	filled := int(p.FractionComplete() * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	status := fmt.Sprintf("[%d/%d] %-30s [%s] %.0f%%",
		p.ProcessedCount(), p.TotalCount,
		truncateFilename(p.CurrentItemName, 30),
		bar,
		p.FractionComplete()*100)

	if p.FailedCount > 0 {
		status += fmt.Sprintf(" | %d failed", p.FailedCount)
	}
	if p.SkippedCount > 0 {
		status += fmt.Sprintf(" | %d skipped", p.SkippedCount)
	}
	return status
}

// truncateFilename truncates a filename to the specified length
func truncateFilename(filename string, maxLen int) string {
	if len(filename) <= maxLen {
		return filename
	}
	if maxLen <= 3 {
		return filename[:maxLen]
	}
	return filename[:maxLen-3] + "..."
}

// backupExitError maps a terminal snapshot to the command's exit status,
// letting cobra unwind normally so the database still gets closed.
func backupExitError(p model.BackupProgress) error {
	if p.State == model.BackupStateError {
		return fmt.Errorf("backup failed: %s", p.ErrorMessage)
	}
	if p.FailedCount > 0 {
		return fmt.Errorf("%d items failed to upload", p.FailedCount)
	}
	return nil
}

// printBackupSummary prints the terminal-state summary
func printBackupSummary(p model.BackupProgress) {
	switch p.State {
	case model.BackupStateComplete:
		color.Green("Backup complete: %s", p.Summary())
	case model.BackupStatePaused:
		color.Yellow("Backup paused: %s (run again to resume)", p.Summary())
	case model.BackupStateError:
		color.Red("Backup failed: %s", p.ErrorMessage)
		fmt.Printf("Progress before the error: %s\n", p.Summary())
	}
}
