package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

// TicketPrinter is the part of the device driver the bridge needs.
type TicketPrinter interface {
	Print(ctx context.Context, job model.PrintJob) bool
}

// Bridge is the single entry point for "print this". It is exposed to the
// kiosk page and observes the realtime client. It never lets a fault escape.
type Bridge struct {
	printer TicketPrinter
	logger  logrus.FieldLogger

	mu       sync.RWMutex
	reloader func()
}

func NewBridge(printer TicketPrinter, logger logrus.FieldLogger) *Bridge {
	return &Bridge{
		printer: printer,
		logger:  logger.WithField("component", "bridge"),
	}
}

// SetReloader installs the callback used by RequestReload.
func (b *Bridge) SetReloader(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloader = fn
}

// PrintTicket prints a base64 encoded ticket coming from the kiosk page.
func (b *Bridge) PrintTicket(message string) bool {
	return b.print(model.PrintJob{Body: message, Source: model.SourceBridge})
}

// RequestReload asks the host to reload the kiosk page.
func (b *Bridge) RequestReload() {
	defer b.recoverFault("request_reload")

	b.mu.RLock()
	reload := b.reloader
	b.mu.RUnlock()

	if reload == nil {
		b.logger.Warn("Reload requested but no page is attached")
		return
	}
	b.logger.Info("Reloading kiosk page")
	reload()
}

func (b *Bridge) OnPrintRequested(data string) {
	b.print(model.PrintJob{Body: data, Source: model.SourceRealtime})
}

func (b *Bridge) OnConnectionStateChanged(state model.ConnectionState) {
	b.logger.WithField("state", state).Info("Realtime connection state changed")
}

func (b *Bridge) print(job model.PrintJob) (ok bool) {
	defer b.recoverFault("print_ticket")
	return b.printer.Print(context.Background(), job)
}

func (b *Bridge) recoverFault(op string) {
	if r := recover(); r != nil {
		b.logger.WithFields(logrus.Fields{"op": op, "panic": r}).Error("Recovered from bridge fault")
	}
}
