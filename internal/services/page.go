package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

const (
	printBinding  = "__kioskPrintTicket"
	reloadBinding = "__kioskRequestReload"
)

// bridgeScript exposes window.kiosk to the page before any page script runs.
var bridgeScript = fmt.Sprintf(`window.kiosk = Object.freeze({
  print_ticket: function (message) { window.%s(String(message)); },
  request_reload: function () { window.%s(""); }
});`, printBinding, reloadBinding)

type PageOptions struct {
	URL        string
	ChromePath string
	Headless   bool
}

// PageBridge hosts the kiosk page in Chrome and wires window.kiosk to the
// bridge through DevTools runtime bindings.
type PageBridge struct {
	opts   PageOptions
	bridge *Bridge
	logger logrus.FieldLogger
}

func NewPageBridge(opts PageOptions, bridge *Bridge, logger logrus.FieldLogger) *PageBridge {
	return &PageBridge{
		opts:   opts,
		bridge: bridge,
		logger: logger.WithFields(logrus.Fields{"component": "page", "url": opts.URL}),
	}
}

// Run opens the page and blocks until ctx is cancelled or the browser exits.
func (p *PageBridge) Run(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.opts.Headless),
		chromedp.Flag("kiosk", !p.opts.Headless),
		chromedp.Flag("start-fullscreen", !p.opts.Headless),
		chromedp.Flag("disable-gpu", p.opts.Headless),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if p.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(p.opts.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok {
			// Listener callbacks must not block the event loop.
			go p.handleBinding(e.Name, e.Payload)
		}
	})

	p.bridge.SetReloader(func() {
		if err := chromedp.Run(tabCtx, chromedp.Reload()); err != nil {
			p.logger.WithError(err).Warn("Page reload failed")
		}
	})
	defer p.bridge.SetReloader(nil)

	err := chromedp.Run(tabCtx,
		runtime.AddBinding(printBinding),
		runtime.AddBinding(reloadBinding),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(bridgeScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(p.opts.URL),
	)
	if err != nil {
		return fmt.Errorf("failed to open kiosk page: %w", err)
	}
	p.logger.Info("Kiosk page loaded")

	<-tabCtx.Done()
	if ctx.Err() != nil {
		return nil
	}
	if err := tabCtx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("browser exited: %w", err)
	}
	return errors.New("browser exited")
}

func (p *PageBridge) handleBinding(name, payload string) {
	switch name {
	case printBinding:
		p.logger.Info("Print requested by page")
		p.bridge.PrintTicket(payload)
	case reloadBinding:
		p.bridge.RequestReload()
	default:
		p.logger.WithField("binding", name).Debug("Ignoring unknown binding")
	}
}
