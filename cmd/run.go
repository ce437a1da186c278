package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/services"
	"github.com/Riboost-Studio/kiosk-print-agent/internal/utils"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the print agent",
	Long:  "Connect to the backend event stream, open the printer and optionally host the kiosk page.",
	Args:  cobra.NoArgs,
	RunE:  runAgent,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := mustConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name, version, file := getAppInfoFromContext(cmd)
	logger.WithFields(logrus.Fields{"version": version, "config": file}).Infof("Starting %s", name)

	// 1. Status reporter
	reporter := services.NewReporter(services.ReporterOptions{
		BaseURL:      cfg.Server.URL,
		AppSecret:    cfg.Server.AppSecret,
		QueueSize:    cfg.Reporter.QueueSize,
		Timeout:      cfg.Reporter.Timeout,
		DrainTimeout: cfg.Reporter.DrainTimeout,
	}, logger)
	if cfg.Server.AppSecret != "" {
		if err := reporter.Authenticate(ctx); err != nil {
			logger.WithError(err).Warn("Initial authentication failed, will retry on first report")
		}
	}
	reporter.Start(context.WithoutCancel(ctx))
	defer reporter.Close()

	// 2. Printer
	printer, err := newPrinter(cfg, reporter, logger)
	if err != nil {
		return err
	}
	defer printer.Close()
	printer.Initialize(ctx)

	// 3. Bridge and realtime client
	bridge := services.NewBridge(printer, logger)
	client := services.NewRealtimeClient(services.RealtimeOptions{
		Namespace:      cfg.Server.Namespace,
		SocketIOPath:   cfg.Server.SocketIOPath,
		ConnectTimeout: cfg.Realtime.ConnectTimeout,
		RetryInterval:  cfg.Realtime.RetryInterval,
	}, bridge, logger)
	if err := client.Start(cfg.Server.URL); err != nil {
		return err
	}
	defer client.Stop()

	// 4. Kiosk page
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Page.Enabled {
		chrome, err := utils.FindChrome(cfg.Page.ChromePath)
		if err != nil {
			return err
		}
		logger.WithField("chrome", utils.ChromeVersion(chrome)).Info("Chrome found")

		page := services.NewPageBridge(services.PageOptions{
			URL:        pageURL(cfg),
			ChromePath: chrome,
			Headless:   cfg.Page.Headless,
		}, bridge, logger)
		g.Go(func() error {
			return page.Run(gctx)
		})
	}

	logger.Info("--- System Running ---")
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	err = g.Wait()
	logger.Info("Shutting down...")
	return err
}
