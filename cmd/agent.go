package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
	"github.com/Riboost-Studio/kiosk-print-agent/internal/services"
	"github.com/Riboost-Studio/kiosk-print-agent/internal/utils"
)

// newOpener picks the printer transport from the configuration.
func newOpener(cfg model.PrinterConfig) (services.DeviceOpener, error) {
	switch cfg.Transport {
	case "usb":
		return services.NewUSBOpener(cfg.VendorID, cfg.ProductID), nil
	case "network":
		return &services.NetworkOpener{Address: cfg.Address}, nil
	default:
		return nil, fmt.Errorf("unknown printer transport %q", cfg.Transport)
	}
}

func newPrinter(cfg *model.Config, reporter services.StatusReporter, logger logrus.FieldLogger) (*services.Printer, error) {
	opener, err := newOpener(cfg.Printer)
	if err != nil {
		return nil, err
	}
	profile, ok := utils.LookupProfile(cfg.Printer.Profile)
	if !ok {
		logger.WithField("profile", cfg.Printer.Profile).Warnf("Unknown printer profile, using %s", profile.Name)
	}
	return services.NewPrinter(opener, reporter, profile, cfg.Printer.Width, logger), nil
}

func pageURL(cfg *model.Config) string {
	return strings.TrimRight(cfg.Server.URL, "/") + "/" + strings.TrimLeft(cfg.Page.Path, "/")
}

// discardReporter is used by one-shot commands that must not talk to the
// backend.
type discardReporter struct {
	logger logrus.FieldLogger
}

func (d discardReporter) Report(isError bool, message string) {
	if isError {
		d.logger.Warn(message)
		return
	}
	d.logger.Info(message)
}
