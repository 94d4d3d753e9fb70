package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the server this client backs up to",
}

var accountSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the server endpoint and API token",
	Long: `Store the FamVault server endpoint and API token for this installation.

The token is kept in the OS keyring when one is available, otherwise in
the local state database. A stable device id is generated on first setup
and sent with every request so the server can attribute uploads.`,
	RunE: runAccountSet,
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configured server and device id",
	RunE:  runAccountShow,
}

var accountDevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices paired with the server",
	RunE:  runAccountDevices,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountSetCmd)
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountDevicesCmd)

	accountSetCmd.Flags().String("endpoint", "", "server base URL, e.g. https://photos.example.home")
}

func runAccountSet(cmd *cobra.Command, args []string) error {
	endpoint, _ := cmd.Flags().GetString("endpoint")
	reader := bufio.NewReader(os.Stdin)

	if endpoint == "" {
		fmt.Print("Server endpoint: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read endpoint: %w", err)
		}
		endpoint = strings.TrimSpace(line)
	}
	if endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}

	fmt.Print("API token (input hidden): ")
	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	if err := ctrl.SetEndpoint(endpoint); err != nil {
		return fmt.Errorf("failed to store endpoint: %w", err)
	}
	if err := ctrl.SetToken(token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	deviceID, err := ctrl.EnsureDeviceID()
	if err != nil {
		return err
	}

	color.Green("Account configured")
	fmt.Printf("  Endpoint:  %s\n", endpoint)
	fmt.Printf("  Device ID: %s\n", deviceID)
	return nil
}

func runAccountShow(cmd *cobra.Command, args []string) error {
	endpoint, err := ctrl.Endpoint()
	if err != nil {
		return err
	}
	if endpoint == "" {
		fmt.Println("No server configured. Run 'famvault account set'.")
		return nil
	}
	deviceID, _ := ctrl.EnsureDeviceID()
	fmt.Printf("Endpoint:  %s\n", endpoint)
	fmt.Printf("Device ID: %s\n", deviceID)
	return nil
}

func runAccountDevices(cmd *cobra.Command, args []string) error {
	if ctrl.Client == nil {
		return fmt.Errorf("no server configured. Run 'famvault account set' first")
	}
	devices, err := ctrl.Client.ListDevices(cmd.Context())
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No paired devices")
		return nil
	}

	ownID, _ := ctrl.EnsureDeviceID()
	for _, d := range devices {
		marker := " "
		if d.ID == ownID {
			marker = "*"
		}
		lastSeen := d.LastSeen
		if lastSeen == "" {
			lastSeen = "never"
		}
		fmt.Printf("%s %-24s %-8s last seen %s\n", marker, d.DeviceName, d.DeviceType, lastSeen)
	}
	return nil
}
