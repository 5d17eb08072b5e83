package cmd

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blinkbus/blink-go/cmd/capture"
	"github.com/blinkbus/blink-go/cmd/history"
	"github.com/blinkbus/blink-go/cmd/locations"
	"github.com/blinkbus/blink-go/cmd/lookup"
	"github.com/blinkbus/blink-go/cmd/mqtttest"
	"github.com/blinkbus/blink-go/cmd/routes"
	"github.com/blinkbus/blink-go/cmd/scan"
	"github.com/blinkbus/blink-go/cmd/seed"
	"github.com/blinkbus/blink-go/cmd/serve"
	"github.com/blinkbus/blink-go/internal/bootstrap"
	"github.com/blinkbus/blink-go/internal/buildinfo"
	"github.com/blinkbus/blink-go/internal/conf"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
)

const sentryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command
func RootCommand(build *buildinfo.Context) *cobra.Command {
	ctx := &bootstrap.Context{Build: build}
	var configFile string
	var centralLogger *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:           "blink",
		Short:         "BLink bus plate scanner",
		Long:          "Recognize feeder bus license plates from a camera and tell which route the bus serves.",
		Version:       build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetVersionTemplate(build.String() + "\n")

	// Set up the global flags for the root command.
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search the config directories)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding flags: %v", err))
	}

	rootCmd.AddCommand(
		scan.Command(ctx),
		capture.Command(ctx),
		lookup.Command(ctx),
		routes.Command(ctx),
		history.Command(ctx),
		locations.Command(ctx),
		seed.Command(ctx),
		serve.Command(ctx),
		mqtttest.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		settings, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		ctx.Settings = settings

		centralLogger, err = initLogging(settings)
		if err != nil {
			return err
		}
		return initTelemetry(settings, build)
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if ctx.Settings != nil && ctx.Settings.Sentry.Enabled {
			sentry.Flush(sentryFlushTimeout)
		}
		if centralLogger != nil {
			_ = centralLogger.Close()
		}
	}

	return rootCmd
}

// initLogging replaces the global logger with one built from settings. The
// debug flag raises the default level.
func initLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}

	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)
	return cl, nil
}

// initTelemetry starts sentry reporting when enabled.
func initTelemetry(settings *conf.Settings, build *buildinfo.Context) error {
	if !settings.Sentry.Enabled {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:            settings.Sentry.DSN,
		Release:        "blink-go@" + build.GetVersion(),
		ServerName:     build.GetSystemID(),
		SendDefaultPII: false,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	logger.Global().Module("telemetry").Info("error telemetry enabled")
	return nil
}
