package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
	"github.com/Riboost-Studio/kiosk-print-agent/internal/utils"
)

type fakeTicketPrinter struct {
	mu    sync.Mutex
	jobs  []model.PrintJob
	panic bool
	ok    bool
}

func (f *fakeTicketPrinter) Print(_ context.Context, job model.PrintJob) bool {
	if f.panic {
		panic("device exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.ok
}

func (f *fakeTicketPrinter) received() []model.PrintJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PrintJob(nil), f.jobs...)
}

func TestBridgeRoutesJobs(t *testing.T) {
	printer := &fakeTicketPrinter{ok: true}
	bridge := NewBridge(printer, utils.SilentLogger())

	assert.True(t, bridge.PrintTicket("Zm9v"))
	bridge.OnPrintRequested("plain")

	assert.Equal(t, []model.PrintJob{
		{Body: "Zm9v", Source: model.SourceBridge},
		{Body: "plain", Source: model.SourceRealtime},
	}, printer.received())
}

func TestBridgeRecoversFromPanics(t *testing.T) {
	bridge := NewBridge(&fakeTicketPrinter{panic: true}, utils.SilentLogger())

	assert.NotPanics(t, func() {
		assert.False(t, bridge.PrintTicket("Zm9v"))
		bridge.OnPrintRequested("Zm9v")
	})

	bridge.SetReloader(func() { panic("reload exploded") })
	assert.NotPanics(t, bridge.RequestReload)
}

func TestBridgeRequestReload(t *testing.T) {
	bridge := NewBridge(&fakeTicketPrinter{}, utils.SilentLogger())
	assert.NotPanics(t, bridge.RequestReload)

	calls := 0
	bridge.SetReloader(func() { calls++ })
	bridge.RequestReload()
	bridge.RequestReload()
	assert.Equal(t, 2, calls)
}

func TestBridgeRealtimeEndToEnd(t *testing.T) {
	server := newEngineServer(t)
	opener := &fakeOpener{}
	printer := newTestPrinter(opener, &recordingReporter{})
	bridge := NewBridge(printer, utils.SilentLogger())
	client := newTestClient(bridge)

	require.NoError(t, client.Start(server.srv.URL))
	defer client.Stop()
	conn := server.accept()

	send(t, conn, `42`+testNamespace+`,["update",{"flag":"print","data":"Zm9v"}]`)

	require.Eventually(t, func() bool {
		return opener.openCount() > 0 && opener.handle(0).String() != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, fooTicket, opener.handle(0).String())
}
