package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/config"
)

var (
	configPath string
	logLevel   string
	actAs      string
	actAsAdmin bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "deskfs",
	Short:         "Virtual desktop file system",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// loadConfig reads the configuration and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if actAs != "" {
		cfg.Identity.Username = actAs
	}
	if actAsAdmin {
		cfg.Identity.Role = "admin"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	return cfg, nil
}

// withRuntime builds the runtime for one command invocation and closes it
// afterwards.
func withRuntime(fn func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := config.InitializeRuntime(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing: %w", err)
		}
		defer func() {
			if err := rt.Close(); err != nil {
				logger.Warn("%v", err)
			}
		}()

		return fn(ctx, cmd, rt, args)
	}
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if configPath != "" {
			if err := config.InitConfigToPath(configPath, force); err != nil {
				return err
			}
			fmt.Printf("Configuration written to %s\n", configPath)
			return nil
		}

		path, err := config.InitConfig(force)
		if err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("Store:       %s\n", cfg.Store.Type)
		fmt.Printf("Identity:    %s (%s)\n", cfg.Identity.Username, cfg.Identity.Role)
		fmt.Printf("Soft delete: %v\n", *cfg.Filesystem.SoftDelete)
		fmt.Printf("Lock TTL:    %s\n", cfg.Filesystem.LockTTL)
		fmt.Printf("Versions:    %d\n", *cfg.Filesystem.MaxVersions)
		fmt.Printf("Root mode:   %s\n", cfg.Filesystem.RootMode)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/deskfs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&actAs, "as", "", "Act as this username")
	rootCmd.PersistentFlags().BoolVar(&actAsAdmin, "admin", false, "Act with the admin role")

	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)

	registerFileCommands()
	registerTrashCommands()
	registerVersionCommands()
	registerLockCommands()
	registerShareCommands()
	registerClipboardCommands()
	registerSnapshotCommands()
	registerServeCommand()
}
