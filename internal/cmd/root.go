package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/niels/staticd/pkg/config"
	"github.com/niels/staticd/pkg/logging"
	"github.com/niels/staticd/pkg/server"
	"github.com/niels/staticd/pkg/version"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	debug       bool
	readTimeout int
	maxConns    int
	showVersion bool
	noColor     bool
	cfg         *config.Config
)

// NewRootCmd creates the root command for staticd
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   version.AppName + " <port> <directory>",
		Short: version.Description,
		Long: fmt.Sprintf(`%s - %s

Serves the files beneath <directory> over plain HTTP on <port>. Each
connection carries exactly one GET exchange and is closed afterwards.
`, version.AppName, version.Description),
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration before initializing the logger so
			// the logging settings apply from the first message.
			if configPath != "" {
				cfg = config.LoadOrDefault(configPath)
			} else {
				cfg = config.LoadDefault()
			}

			logging.InitGlobalLogger(debug, cfg)
			logging.Info("Initializing staticd")
			if debug {
				logging.Debug("Debug logging enabled")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo())
				return nil
			}

			port, err := strconv.Atoi(args[0])
			if err != nil || port < 0 || port > 65535 {
				return fmt.Errorf("invalid port %q", args[0])
			}
			cfg.Server.Port = port
			cfg.Server.BaseDir = args[1]
			if cmd.Flags().Changed("read-timeout") {
				cfg.Server.ReadTimeout = readTimeout
			}
			if cmd.Flags().Changed("max-connections") {
				cfg.Server.MaxConnections = maxConns
			}

			color.NoColor = color.NoColor || noColor

			srv, err := server.New(cfg)
			if err != nil {
				logging.ErrorWith("Failed to create server", map[string]interface{}{
					"error": err.Error(),
				})
				return err
			}
			if err := srv.Start(); err != nil {
				logging.ErrorWith("Failed to start server", map[string]interface{}{
					"error": err.Error(),
				})
				return err
			}

			green := color.New(color.FgGreen)
			green.Fprintf(cmd.OutOrStdout(), "staticd listening on %s\n", srv.Addr())
			fmt.Fprintf(cmd.OutOrStdout(), "Serving directory: %s\n", cfg.Server.BaseDir)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			sig := <-sigCh

			logging.InfoWith("Signal received, shutting down", map[string]interface{}{
				"signal": sig.String(),
			})
			fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")

			if err := srv.Stop(); err != nil {
				yellow := color.New(color.FgYellow)
				yellow.Fprintf(cmd.OutOrStdout(), "Warning: %s\n", err)
				return err
			}
			green.Fprintln(cmd.OutOrStdout(), "Server stopped")
			return nil
		},
	}

	// Add flags
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Specify configuration file path")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable verbose output")
	rootCmd.Flags().IntVarP(&readTimeout, "read-timeout", "t", 60, "Per-connection read timeout in seconds")
	rootCmd.Flags().IntVarP(&maxConns, "max-connections", "m", 0, "Maximum concurrent connections (0 = unbounded)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Display version information")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable color output")

	return rootCmd
}
