package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
	"github.com/Riboost-Studio/kiosk-print-agent/internal/utils"
)

var (
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:          appName,
	Short:        "Kiosk receipt printing agent",
	Long:         "Bridges a kiosk page and the backend event stream to a local ESC/POS receipt printer.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := utils.LoadConfig(configFile)
		if err != nil {
			return err
		}
		if debug {
			cfg.Log.Level = "debug"
		}

		logger, err := utils.InitLogger(utils.LoggerOptions{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			File:   cfg.Log.File,
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = context.WithValue(ctx, model.ContextAppName, appName)
		ctx = context.WithValue(ctx, model.ContextAppVersion, appVersion)
		ctx = context.WithValue(ctx, model.ContextConfigFile, configFile)
		ctx = context.WithValue(ctx, model.ContextConfig, cfg)
		ctx = context.WithValue(ctx, model.ContextLogger, logger)
		cmd.SetContext(ctx)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func getConfigFromContext(cmd *cobra.Command) (*model.Config, error) {
	cfg, ok := cmd.Context().Value(model.ContextConfig).(*model.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

func getLoggerFromContext(cmd *cobra.Command) *logrus.Logger {
	if l, ok := cmd.Context().Value(model.ContextLogger).(*logrus.Logger); ok && l != nil {
		return l
	}
	return logrus.StandardLogger()
}

func mustConfig(cmd *cobra.Command) (*model.Config, *logrus.Logger, error) {
	cfg, err := getConfigFromContext(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, getLoggerFromContext(cmd), nil
}

// getAppInfoFromContext returns the name, version and config file recorded by
// the root command.
func getAppInfoFromContext(cmd *cobra.Command) (name, version, file string) {
	ctx := cmd.Context()
	name, _ = ctx.Value(model.ContextAppName).(string)
	version, _ = ctx.Value(model.ContextAppVersion).(string)
	file, _ = ctx.Value(model.ContextConfigFile).(string)
	if file == "" {
		file = "search path"
	}
	return name, version, file
}
