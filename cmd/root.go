package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/famvault/cli/internal/api"
	"github.com/famvault/cli/internal/logging"
	"github.com/famvault/cli/pkg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	ctrl    *pkg.ClICtrl
)

var rootCmd = &cobra.Command{
	Use:   "famvault",
	Short: "Back up your family photo library to a self-hosted FamVault server",
	Long: `famvault mirrors a local photo/video library onto a personal FamVault
server. Items are content-addressed, so nothing is ever uploaded twice:
the client keeps a durable ledger of what the server already stores and
reconciles the rest over a batch duplicate-check before transferring.`,
	SilenceUsage:      true,
	PersistentPreRunE: initCtrl,
}

// Execute runs the CLI. The database is closed here rather than in a
// PostRun hook, which cobra skips when a command returns an error.
func Execute() {
	err := rootCmd.Execute()
	if ctrl != nil {
		_ = ctrl.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.famvault/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("endpoint", "", "server base URL (overrides the stored account)")
	rootCmd.PersistentFlags().String("db-path", "", "path to the local state database")
	_ = viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag("db-path", rootCmd.PersistentFlags().Lookup("db-path"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".famvault"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetDefault("db-path", defaultDBPath())
	viper.SetDefault("media-dir", "")
	viper.SetDefault("batch-size", 50)
	viper.SetDefault("max-retries", 3)
	viper.SetDefault("retry-delay", "2s")
	viper.SetDefault("log-cap", 100)
	viper.SetDefault("timeout", "60s")

	viper.SetEnvPrefix("FAMVAULT")
	viper.AutomaticEnv()

	// A missing config file is fine; flags and defaults cover everything.
	_ = viper.ReadInConfig()
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "famvault.db"
	}
	return filepath.Join(home, ".famvault", "famvault.db")
}

func initCtrl(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewDefault(level)

	dbPath := viper.GetString("db-path")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := pkg.GetDB(dbPath)
	if err != nil {
		return err
	}

	ctrl, err = pkg.NewClICtrl(db, nil, logger)
	if err != nil {
		return err
	}

	endpoint := viper.GetString("endpoint")
	if endpoint == "" {
		endpoint, err = ctrl.Endpoint()
		if err != nil {
			return err
		}
	}
	if endpoint == "" {
		// Commands that need the server check for a nil client themselves.
		return nil
	}

	token, err := ctrl.Token()
	if err != nil {
		return err
	}
	deviceID, err := ctrl.EnsureDeviceID()
	if err != nil {
		return err
	}

	ctrl.Client = api.NewClient(api.Params{
		BaseURL:  endpoint,
		Token:    token,
		DeviceID: deviceID,
		Timeout:  viper.GetDuration("timeout"),
	})
	return nil
}
