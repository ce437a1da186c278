package services

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
	"github.com/Riboost-Studio/kiosk-print-agent/internal/utils"
)

const testNamespace = "/socket_app_patient"

// engineServer is a minimal Engine.IO v4 / Socket.IO v5 server.
type engineServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	received chan string

	// refuse answers namespace joins with a connect error
	refuse bool
}

func newEngineServer(t *testing.T) *engineServer {
	t.Helper()
	s := &engineServer{
		t:        t,
		conns:    make(chan *websocket.Conn, 8),
		received: make(chan string, 256),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *engineServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" {
		http.NotFound(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	open := `0{"sid":"srv-sid","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(open)); err != nil {
		return
	}
	_, join, err := conn.ReadMessage()
	if err != nil || string(join) != "40"+testNamespace+"," {
		return
	}
	reply := "40" + testNamespace + `,{"sid":"ns-sid"}`
	if s.refuse {
		reply = "44" + testNamespace + `,{"message":"not allowed"}`
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
		return
	}
	if s.refuse {
		return
	}

	s.conns <- conn
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case s.received <- string(msg):
		default:
		}
	}
}

func (s *engineServer) accept() *websocket.Conn {
	s.t.Helper()
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(3 * time.Second):
		s.t.Fatal("client did not connect")
		return nil
	}
}

func (s *engineServer) expectReceived(want string) {
	s.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-s.received:
			if msg == want {
				return
			}
		case <-deadline:
			s.t.Fatalf("server never received %q", want)
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

type recordingObserver struct {
	mu      sync.Mutex
	prints  []string
	states  []model.ConnectionState
	printed chan string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{printed: make(chan string, 1024)}
}

func (o *recordingObserver) OnPrintRequested(data string) {
	o.mu.Lock()
	o.prints = append(o.prints, data)
	o.mu.Unlock()
	select {
	case o.printed <- data:
	default:
	}
}

func (o *recordingObserver) OnConnectionStateChanged(state model.ConnectionState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

func (o *recordingObserver) printCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.prints)
}

func (o *recordingObserver) sawState(state model.ConnectionState) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, s := range o.states {
		if s == state {
			n++
		}
	}
	return n
}

func (o *recordingObserver) next(t *testing.T) string {
	t.Helper()
	select {
	case data := <-o.printed:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("no print request dispatched")
		return ""
	}
}

func newTestClient(observer RealtimeObserver) *RealtimeClient {
	return NewRealtimeClient(RealtimeOptions{
		Namespace:      testNamespace,
		SocketIOPath:   "/socket.io/",
		ConnectTimeout: time.Second,
		RetryInterval:  50 * time.Millisecond,
	}, observer, utils.SilentLogger())
}

func TestRealtimeDispatchesPrintUpdates(t *testing.T) {
	server := newEngineServer(t)
	observer := newRecordingObserver()
	client := newTestClient(observer)

	require.NoError(t, client.Start(server.srv.URL))
	defer client.Stop()

	conn := server.accept()
	require.Eventually(t, client.Connected, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, model.StateConnected, client.State())

	send(t, conn, `42`+testNamespace+`,["update",{"flag":"print","data":"Zm9v"}]`)
	assert.Equal(t, "Zm9v", observer.next(t))

	// filtered: other flag, other event, other namespace
	send(t, conn, `42`+testNamespace+`,["update",{"flag":"refresh","data":"x"}]`)
	send(t, conn, `42`+testNamespace+`,["called",{"flag":"print","data":"x"}]`)
	send(t, conn, `42/other,["update",{"flag":"print","data":"x"}]`)
	send(t, conn, `42`+testNamespace+`,["update","{\"flag\":\"print\",\"data\":\"YmFy\"}"]`)
	assert.Equal(t, "YmFy", observer.next(t))
	assert.Equal(t, 2, observer.printCount())
}

func TestRealtimeSurvivesMalformedEvents(t *testing.T) {
	server := newEngineServer(t)
	observer := newRecordingObserver()
	client := newTestClient(observer)

	require.NoError(t, client.Start(server.srv.URL))
	defer client.Stop()
	conn := server.accept()

	send(t, conn, `42`+testNamespace+`,["update",{"flag":`)
	send(t, conn, `42`+testNamespace+`,["update","not json"]`)
	send(t, conn, `42`+testNamespace+`,[]`)
	send(t, conn, `42`+testNamespace+`,["update",{"flag":"print","data":"b2s="}]`)

	assert.Equal(t, "b2s=", observer.next(t))
	assert.Equal(t, 1, observer.printCount())
	assert.True(t, client.Connected())
}

func TestRealtimeAnswersPingsAndAcks(t *testing.T) {
	server := newEngineServer(t)
	client := newTestClient(newRecordingObserver())

	require.NoError(t, client.Start(server.srv.URL))
	defer client.Stop()
	conn := server.accept()

	send(t, conn, "2")
	server.expectReceived("3")

	send(t, conn, `42`+testNamespace+`,7["update",{"flag":"print","data":"Zm9v"}]`)
	server.expectReceived("43" + testNamespace + ",7[]")
}

func TestRealtimeReconnects(t *testing.T) {
	server := newEngineServer(t)
	observer := newRecordingObserver()
	client := newTestClient(observer)

	require.NoError(t, client.Start(server.srv.URL))
	defer client.Stop()

	first := server.accept()
	require.NoError(t, first.Close())

	second := server.accept()
	require.Eventually(t, func() bool {
		return observer.sawState(model.StateConnected) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, observer.sawState(model.StateDisconnected), 1)

	send(t, second, `42`+testNamespace+`,["update",{"flag":"print","data":"Zm9v"}]`)
	assert.Equal(t, "Zm9v", observer.next(t))
}

func TestRealtimeReconnectsAfterServerDisconnect(t *testing.T) {
	server := newEngineServer(t)
	client := newTestClient(newRecordingObserver())

	require.NoError(t, client.Start(server.srv.URL))
	defer client.Stop()

	first := server.accept()
	send(t, first, "41"+testNamespace+",")
	server.accept()
}

func TestRealtimeRetriesWhenNamespaceRefused(t *testing.T) {
	server := newEngineServer(t)
	server.refuse = true
	observer := newRecordingObserver()
	client := newTestClient(observer)

	require.NoError(t, client.Start(server.srv.URL))
	require.Eventually(t, func() bool {
		return observer.sawState(model.StateDisconnected) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, client.Connected())

	client.Stop()
	assert.Equal(t, model.StateStopped, client.State())
}

func TestRealtimeNoDispatchAfterStop(t *testing.T) {
	server := newEngineServer(t)
	observer := newRecordingObserver()
	client := newTestClient(observer)

	require.NoError(t, client.Start(server.srv.URL))
	conn := server.accept()

	burst := make(chan struct{})
	go func() {
		defer close(burst)
		for range 500 {
			msg := `42` + testNamespace + `,["update",{"flag":"print","data":"Zm9v"}]`
			if conn.WriteMessage(websocket.TextMessage, []byte(msg)) != nil {
				return
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	client.Stop()
	after := observer.printCount()

	<-burst
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, observer.printCount())
	assert.Equal(t, model.StateStopped, client.State())
}

func TestRealtimeStartStop(t *testing.T) {
	server := newEngineServer(t)
	client := newTestClient(newRecordingObserver())

	require.NoError(t, client.Start(server.srv.URL))
	assert.ErrorIs(t, client.Start(server.srv.URL), model.ErrAlreadyRunning)
	server.accept()

	client.Stop()
	client.Stop()
	assert.False(t, client.Connected())
	assert.Equal(t, model.StateStopped, client.State())

	// restartable after stop
	require.NoError(t, client.Start(server.srv.URL))
	server.accept()
	client.Stop()
}

func TestRealtimeStopWhileUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	observer := newRecordingObserver()
	client := newTestClient(observer)
	require.NoError(t, client.Start(url))

	require.Eventually(t, func() bool {
		return observer.sawState(model.StateDisconnected) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		client.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestRealtimeStartRejectsBadURL(t *testing.T) {
	client := newTestClient(newRecordingObserver())
	assert.Error(t, client.Start("ftp://kiosk.local"))
	client.Stop()
}

// gatedObserver holds the run loop inside the first Disconnected callback
// until the gate is opened.
type gatedObserver struct {
	recordingObserver
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func (o *gatedObserver) OnConnectionStateChanged(state model.ConnectionState) {
	o.recordingObserver.OnConnectionStateChanged(state)
	if state != model.StateDisconnected {
		return
	}
	o.once.Do(func() {
		close(o.entered)
		<-o.gate
	})
}

func TestRealtimeStartWhileStopping(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	observer := &gatedObserver{
		recordingObserver: recordingObserver{printed: make(chan string, 1)},
		entered:           make(chan struct{}),
		gate:              make(chan struct{}),
	}
	client := newTestClient(observer)
	require.NoError(t, client.Start(url))

	select {
	case <-observer.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("client never reported a failed connect")
	}

	stopped := make(chan struct{})
	go func() {
		client.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return !client.running
	}, time.Second, time.Millisecond)

	// the old loop is still inside the callback
	assert.ErrorIs(t, client.Start(url), model.ErrAlreadyRunning)

	close(observer.gate)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Equal(t, model.StateStopped, client.State())

	require.NoError(t, client.Start(url))
	client.Stop()
}

func TestRealtimeConcurrentStops(t *testing.T) {
	server := newEngineServer(t)
	observer := newRecordingObserver()
	client := newTestClient(observer)

	require.NoError(t, client.Start(server.srv.URL))
	server.accept()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Stop()
			assert.False(t, client.Connected())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, observer.sawState(model.StateStopped))
	assert.Equal(t, model.StateStopped, client.State())
}
