package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
	"github.com/Riboost-Studio/kiosk-print-agent/internal/utils"
)

const (
	msgInitialized = "printer initialized"
	msgNotFound    = "printer not found, check that it is plugged in and powered on"
	msgRecovered   = "printed successfully"
)

// StatusReporter receives printer health changes. Report must not block.
type StatusReporter interface {
	Report(isError bool, message string)
}

// Printer owns the receipt printer. All device access is serialized; a lost
// device is reopened on the next print.
type Printer struct {
	opener   DeviceOpener
	reporter StatusReporter
	profile  model.Profile
	width    int
	logger   logrus.FieldLogger

	mu          sync.Mutex
	handle      DeviceHandle
	state       model.DeviceState
	hadError    bool
	lastFailure string
}

// NewPrinter builds a driver for the given transport. A width of zero uses
// the profile column count.
func NewPrinter(opener DeviceOpener, reporter StatusReporter, profile model.Profile, width int, logger logrus.FieldLogger) *Printer {
	if width <= 0 {
		width = profile.Columns
	}
	return &Printer{
		opener:   opener,
		reporter: reporter,
		profile:  profile,
		width:    width,
		logger: logger.WithFields(logrus.Fields{
			"component": "printer",
			"device":    opener.String(),
			"profile":   profile.Name,
		}),
	}
}

func (p *Printer) State() model.DeviceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Initialize opens the device. Failures are reported upstream, never returned.
func (p *Printer) Initialize(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initializeLocked(ctx)
}

func (p *Printer) initializeLocked(ctx context.Context) bool {
	p.releaseLocked()

	handle, err := p.opener.Open(ctx)
	if err != nil {
		msg := msgNotFound
		if !errors.Is(err, model.ErrDeviceNotFound) {
			msg = fmt.Sprintf("printer initialization failed: %v", err)
		}
		p.fail(msg)
		p.logger.WithError(err).Warn("Printer unavailable")
		return false
	}

	prev := p.state
	p.handle = handle
	p.state = model.DeviceReady
	p.lastFailure = ""
	p.logger.Info("Printer ready")
	if prev != model.DeviceReady {
		p.reporter.Report(false, msgInitialized)
	}
	return true
}

// fail moves the driver to Degraded and reports the failure unless the same
// failure was already reported while degraded.
func (p *Printer) fail(msg string) {
	prev := p.state
	p.state = model.DeviceDegraded
	p.hadError = true
	if prev == model.DeviceDegraded && msg == p.lastFailure {
		return
	}
	p.lastFailure = msg
	p.reporter.Report(true, msg)
}

// Print decodes, formats and prints one ticket, then cuts the paper.
func (p *Printer) Print(ctx context.Context, job model.PrintJob) bool {
	log := p.logger.WithField("source", job.Source)

	text, err := DecodeJob(job)
	if err != nil {
		log.WithError(err).Error("Rejected print job")
		p.reporter.Report(true, fmt.Sprintf("print failed: %v", err))
		return false
	}

	payload, err := p.prepare(text)
	if err != nil {
		log.WithError(err).Error("Cannot encode ticket")
		p.reporter.Report(true, fmt.Sprintf("print failed: %v", err))
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != model.DeviceReady || p.handle == nil {
		log.Info("Printer not ready, reinitializing")
		if !p.initializeLocked(ctx) {
			return false
		}
	}

	if err := p.writeLocked(payload); err != nil {
		log.WithError(err).Warn("Write failed, reinitializing printer and retrying")
		if !p.initializeLocked(ctx) {
			return false
		}
		if err := p.writeLocked(payload); err != nil {
			p.releaseLocked()
			p.fail(fmt.Sprintf("print failed: %v", err))
			log.WithError(err).Error("Print failed after retry")
			return false
		}
	}

	log.WithField("bytes", len(payload)).Info("Ticket printed")
	if p.hadError {
		p.hadError = false
		p.reporter.Report(false, msgRecovered)
	}
	return true
}

// Render returns the device stream for a ticket without printing it.
func (p *Printer) Render(text string) string {
	return utils.Render(text, p.width)
}

func (p *Printer) prepare(text string) ([]byte, error) {
	payload, err := utils.EncodeForPrinter(p.Render(text), p.profile.CodePage)
	if err != nil {
		return nil, err
	}
	return append(payload, utils.FeedAndCut...), nil
}

func (p *Printer) writeLocked(payload []byte) error {
	n, err := p.handle.Write(payload)
	if err != nil {
		return err
	}
	if n != len(payload) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(payload))
	}
	return nil
}

func (p *Printer) releaseLocked() {
	if p.handle == nil {
		return
	}
	if err := p.handle.Close(); err != nil {
		p.logger.WithError(err).Debug("Error releasing printer handle")
	}
	p.handle = nil
}

// Close releases the device handle and the transport.
func (p *Printer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
	if c, ok := p.opener.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
