// cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formwalk/internal/config"
	"github.com/xkilldash9x/formwalk/internal/observability"
)

// envPrefix is the prefix of every environment override, e.g.
// FORMWALK_WALKER_WAIT_TIMEOUT.
const envPrefix = "FORMWALK"

// app carries the per-invocation configuration state shared by subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds the command tree with a fresh viper instance.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:           "formwalk",
		Short:         "formwalk walks hosted forms step by step and checks what they render.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeConfig(); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "formwalk"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(a.v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "formwalk"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			a.cfg = cfg

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting formwalk",
				zap.String("version", Version),
				zap.String("config_file", a.v.ConfigFileUsed()))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./formwalk.yaml or ~/.formwalk/formwalk.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(a),
		newValidateCmd(),
		newLocateCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command with ctx, which main ties to SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	return NewRootCmd().ExecuteContext(ctx)
}

// initializeConfig reads the config file and environment overrides.
func (a *app) initializeConfig() error {
	v := a.v
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".formwalk"))
		}
		v.SetConfigName("formwalk")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults, env vars and flags apply.
	}
	return nil
}
