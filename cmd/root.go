// -- cmd/root.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/krellwind/tether/internal/config"
	"github.com/krellwind/tether/internal/observability"
	"github.com/krellwind/tether/internal/proc"
)

var (
	cfgFile string
	appCfg  *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Tether drives a persistent browser-automation daemon per session.",
	// Version is dynamically set at build time. See cmd/version.go.
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// This function runs before any command, setting up config and logging.
		if err := initializeConfig(); err != nil {
			return err
		}

		cfg, err := config.NewFromViper(viper.GetViper())
		if err != nil {
			// Initialize a fallback logger so the failure itself is visible.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "tether"})
			return err
		}
		appCfg = cfg

		observability.InitializeLogger(cfg.Logger)
		exportOwnerPID()

		observability.GetLogger().Debug("Starting tether",
			zap.String("version", Version),
			zap.String("session", cfg.Session.ID))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// GetLogger falls back to a stderr development logger when
		// initialization never ran, so the error is visible either way.
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("session", "", "session identity (default from "+config.EnvSession+" or \"default\")")
	_ = viper.BindPFlag("session.id", rootCmd.PersistentFlags().Lookup("session"))
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newStateCmd())
	rootCmd.AddCommand(newWatchdogCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TETHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars.
	}
	return nil
}

// exportOwnerPID pins the owning agent's PID into the environment once per
// process tree, so activity records and spawned watchdogs all attribute the
// session to the same owner.
func exportOwnerPID() {
	if os.Getenv(config.EnvOwnerPID) != "" {
		return
	}
	pid := proc.DetectOwnerPID()
	if pid <= 0 {
		return
	}
	if err := os.Setenv(config.EnvOwnerPID, strconv.Itoa(pid)); err != nil {
		observability.GetLogger().Debug("Owner PID export failed", zap.Error(err))
	}
}
