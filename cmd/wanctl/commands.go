package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/wanctl/internal/config"
	"github.com/muurk/wanctl/internal/discovery"
	"github.com/muurk/wanctl/internal/jobs"
	"github.com/muurk/wanctl/internal/logging"
	"github.com/muurk/wanctl/internal/router"
	"github.com/muurk/wanctl/internal/server"
	"github.com/muurk/wanctl/internal/ui"
)

// Command flags
var (
	listenAddr     string
	enableMDNS     bool
	assumeYes      bool
	serverURL      string
	scanTimeout    time.Duration
	forceOverwrite bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ipCmd)
	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(configCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on (default \":8000\")")
	serveCmd.Flags().BoolVar(&enableMDNS, "mdns", false, "Advertise the server over mDNS")

	reconnectCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	remoteCmd.PersistentFlags().DurationVar(&scanTimeout, "scan-timeout", discovery.DefaultScanTimeout, "How long to listen for mDNS answers")
	remoteReconnectCmd.Flags().StringVar(&serverURL, "server", "", "URL of a running wanctl server (default: find one over mDNS)")
	remoteReconnectCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	remoteCmd.AddCommand(remoteReconnectCmd)
	remoteCmd.AddCommand(remoteDiscoverCmd)

	configInitCmd.Flags().BoolVar(&forceOverwrite, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// loadConfig reads the config file and environment, applies command-line
// overrides and, when needed, prompts for the router password.
func loadConfig(cmd *cobra.Command, needPassword bool) (*config.Config, error) {
	cfg, used, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if routerURL != "" {
		cfg.Router.URL = routerURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		cfg.Server.Listen = listenAddr
	}
	if f := cmd.Flags().Lookup("mdns"); f != nil && f.Changed {
		cfg.Server.MDNS = enableMDNS
	}

	if needPassword && cfg.Router.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := promptPassword(cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		cfg.Router.Password = password
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Debug("Configuration loaded",
		zap.String("file", used),
		zap.String("router", cfg.Router.URL),
	)
	return cfg, nil
}

func promptPassword(out io.Writer) (string, error) {
	_, _ = fmt.Fprint(out, "Router admin password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(password)), nil
}

func newRouterClient(cfg *config.Config) *router.Client {
	client := router.NewClient(cfg.Router.URL)
	if cfg.Router.Timeout > 0 {
		client.SetTimeout(cfg.Router.Timeout)
	}
	return client
}

// initCLILogging keeps zap silent unless asked for, so UI output stays clean
func initCLILogging() error {
	return logging.Initialize(logLevel)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// serveCmd runs the HTTP control surface
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web control surface",
	Long: `Start the HTTP server.

Routes:
  /                  page showing the current WAN address (logs in on every load)
  /api/reconnect     start a reconnect job, returns its id
  /api/echo/{id}     wait for the job and return "Done" or the error text
  /api/ws/echo/{id}  websocket variant of echo
  /api/status        version and number of unpolled jobs
  /healthz           liveness
  /metrics           Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
	Example: `  # Listen on the default :8000
  WANCTL_PASSWORD=secret wanctl serve

  # Custom address, advertised over mDNS
  wanctl serve --listen 127.0.0.1:9000 --mdns

  # Router on a different address
  wanctl serve --router-url http://10.0.0.1/`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if logLevel == "" && os.Getenv(logging.LogLevelEnvVar) != "" {
		level = ""
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	defer logging.Sync()

	client := newRouterClient(cfg)
	runner := jobs.NewRunner(jobs.NewRegistry(), client, cfg.Router.Password, cfg.JobDelays())

	srv, err := server.New(&server.Config{
		Listen:   cfg.Server.Listen,
		Password: cfg.Router.Password,
		MDNS:     cfg.Server.MDNS,
		MDNSName: cfg.Server.MDNSName,
	}, client, runner)
	if err != nil {
		return err
	}

	logging.Info("Starting wanctl",
		zap.String("router", cfg.Router.URL),
		zap.Duration("settle", cfg.Delays.Settle),
		zap.Duration("outage", cfg.Delays.Outage),
	)
	return srv.Start()
}

// ipCmd prints the WAN address
var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Print the router's current WAN address",
	Long: `Log in to the router and print the WAN IPv4 address.

Only the address is written to stdout, so the output can be used in scripts.`,
	Example: `  wanctl ip
  WANCTL_PASSWORD=secret wanctl ip --router-url http://192.168.1.1/`,
	RunE: runIP,
}

func runIP(cmd *cobra.Command, args []string) error {
	if err := initCLILogging(); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	ip, err := newRouterClient(cfg).CurrentIP(ctx, cfg.Router.Password)
	if err != nil {
		return errors.New(router.Message(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), ip)
	return nil
}

// reconnectCmd runs the reconnect sequence in this process
var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Disconnect and reconnect the WAN",
	Long: `Run the reconnect sequence directly against the router:

  1. wait the settle delay
  2. log in
  3. disconnect the PPPoE WAN
  4. wait the outage delay
  5. connect the PPPoE WAN

A failed step stops the sequence. Nothing is retried: if the disconnect
succeeded and the connect failed, the WAN stays down until reconnected.`,
	Example: `  wanctl reconnect
  wanctl reconnect --yes`,
	RunE: runReconnect,
}

func runReconnect(cmd *cobra.Command, args []string) error {
	if err := initCLILogging(); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !assumeYes && !confirmReconnect(cmd.InOrStdin(), out) {
		return errors.New("reconnect cancelled")
	}

	runner := jobs.NewRunner(jobs.NewRegistry(), newRouterClient(cfg), cfg.Router.Password, cfg.JobDelays())

	view := ui.NewReconnectView(out, cfg.JobDelays(),
		ui.Param{Key: "Router", Value: cfg.Router.URL},
		ui.Param{Key: "Outage", Value: cfg.Delays.Outage.String()},
	)

	ctx, stop := signalContext()
	defer stop()

	view.Begin()
	msg := runner.Reconnect(ctx, view.OnStep)
	if !view.Finish(msg) {
		return errors.New(msg)
	}
	return nil
}

func confirmReconnect(in io.Reader, out io.Writer) bool {
	return ui.Confirm(in, out, "Reconnect WAN",
		"Internet access drops until the reconnect finishes",
		"The router will most likely get a new WAN address",
	)
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Talk to a running wanctl server",
}

// remoteReconnectCmd starts a job on a server and waits for it
var remoteReconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Start a reconnect on a wanctl server and wait for the result",
	Long: `Call /api/reconnect on a running server, then long-poll /api/echo/{id}
until the job finishes. The command fails if the job reports an error.`,
	Example: `  wanctl remote reconnect --server http://wanctl.local:8000`,
	RunE:    runRemoteReconnect,
}

func runRemoteReconnect(cmd *cobra.Command, args []string) error {
	if err := initCLILogging(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !assumeYes && !confirmReconnect(cmd.InOrStdin(), out) {
		return errors.New("reconnect cancelled")
	}

	ctx, stop := signalContext()
	defer stop()

	target := serverURL
	if target == "" {
		scanner := discovery.NewScanner()
		scanner.Timeout = scanTimeout
		inst, err := scanner.FindFirst(ctx)
		if err != nil {
			return fmt.Errorf("%w (start the server with --mdns, or pass --server)", err)
		}
		target = inst.BaseURL()
	}

	printer := ui.NewPrinter(out)
	printer.PrintHeader("WAN reconnect", "wanctl remote reconnect", ui.Param{Key: "Server", Value: target})

	remote := server.NewRemote(target)
	id, err := remote.StartReconnect(ctx)
	if err != nil {
		printer.PrintFailure("Could not start reconnect", err.Error(), "Check that 'wanctl serve' is running at "+target)
		return err
	}
	logging.Debug("Reconnect job started", zap.String("job_id", id))

	msg, elapsed, err := ui.RunWait(ctx, out, "Reconnecting", "the router drops the line for a few seconds",
		func(ctx context.Context) (string, error) { return remote.Echo(ctx, id) })
	if err != nil {
		printer.PrintFailure("Lost track of the reconnect", err.Error())
		return err
	}

	if msg != jobs.DoneMessage {
		printer.PrintFailure("Reconnect failed", msg)
		return errors.New(msg)
	}
	printer.PrintSuccess("Reconnect complete",
		ui.Param{Key: "Job", Value: id},
		ui.Param{Key: "Duration", Value: elapsed.Round(time.Millisecond).String()},
	)
	return nil
}

// remoteDiscoverCmd lists servers advertising over mDNS
var remoteDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List wanctl servers on the local network",
	Long: `Browse mDNS for wanctl servers started with --mdns and print their URLs.`,
	Example: `  wanctl remote discover
  wanctl remote discover --scan-timeout 10s`,
	RunE: runRemoteDiscover,
}

func runRemoteDiscover(cmd *cobra.Command, args []string) error {
	if err := initCLILogging(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning for wanctl servers (timeout: %s)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	instances, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(instances) == 0 {
		fmt.Fprintln(out, "No servers found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Start the server with 'wanctl serve --mdns'")
		fmt.Fprintln(out, "  - Check that this machine is on the same network segment")
		fmt.Fprintln(out, "  - Try increasing --scan-timeout")
		return nil
	}

	fmt.Fprintf(out, "Found %d server(s):\n\n", len(instances))
	for i, inst := range instances {
		fmt.Fprintf(out, "%d. %s\n", i+1, inst.Name)
		fmt.Fprintf(out, "   URL:      %s\n", inst.BaseURL())
		fmt.Fprintf(out, "   Host:     %s\n", inst.Hostname)
		if inst.Version != "" {
			fmt.Fprintf(out, "   Version:  %s\n", inst.Version)
		}
		fmt.Fprintln(out)
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Long: `Write wanctl.yaml with every setting at its default. The password is
left empty unless WANCTL_PASSWORD is set. The file is created with mode 0600.`,
	Example: `  wanctl config init
  wanctl config init ./wanctl.yaml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath()
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !forceOverwrite {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.Router.Password = os.Getenv(config.PasswordEnvVar)
	if routerURL != "" {
		cfg.Router.URL = routerURL
	}

	if err := config.WriteFile(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show where configuration is read from",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if path, err := config.FindConfigFile(); err == nil {
			fmt.Fprintf(out, "Using: %s\n\n", path)
		} else {
			fmt.Fprintf(out, "No config file found; defaults and environment are used.\n\n")
		}
		fmt.Fprintln(out, "Search path:")
		for _, dir := range config.SearchPaths() {
			fmt.Fprintf(out, "  %s\n", dir)
		}
		return nil
	},
}
