// Wanctl controls a home router's PPPoE WAN connection.
//
// It serves a small web page showing the router's current WAN address with a
// button that forces a reconnect (and so, usually, a new address). The same
// operations are available from the command line, either directly against
// the router or through a running wanctl server.
//
// Usage:
//
//	wanctl [command] [flags]
//
// See 'wanctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wanctl/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wanctl",
	Short: "Router WAN control surface",
	Long: `Control a router's PPPoE WAN connection.

'wanctl serve' runs a web page showing the current WAN address with a
reconnect button. The other commands talk to the router directly, or to a
running server with 'wanctl remote'.

Configuration is read from wanctl.yaml (see 'wanctl config path') and
WANCTL_* environment variables. The router password can be given with
WANCTL_PASSWORD.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Global flags
var (
	configPath string
	routerURL  string
	logLevel   string
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: search standard locations)")
	rootCmd.PersistentFlags().StringVar(&routerURL, "router-url", "", "Router base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wanctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
