package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

// RealtimeObserver receives print requests and connection changes from the
// realtime client. Callbacks run on the client goroutine, in arrival order.
type RealtimeObserver interface {
	OnPrintRequested(data string)
	OnConnectionStateChanged(state model.ConnectionState)
}

type RealtimeOptions struct {
	Namespace      string
	SocketIOPath   string
	ConnectTimeout time.Duration
	RetryInterval  time.Duration
}

// RealtimeClient keeps a Socket.IO connection to the backend alive. The
// transport never reconnects on its own; the run loop owns every retry.
type RealtimeClient struct {
	opts     RealtimeOptions
	observer RealtimeObserver
	logger   logrus.FieldLogger
	dialer   *websocket.Dialer

	mu        sync.Mutex
	running   bool
	connected bool
	conn      *websocket.Conn
	state     model.ConnectionState
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewRealtimeClient(opts RealtimeOptions, observer RealtimeObserver, logger logrus.FieldLogger) *RealtimeClient {
	if opts.Namespace == "" {
		opts.Namespace = "/"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 5 * time.Second
	}
	return &RealtimeClient{
		opts:     opts,
		observer: observer,
		logger: logger.WithFields(logrus.Fields{
			"component": "realtime",
			"namespace": opts.Namespace,
		}),
		dialer: &websocket.Dialer{HandshakeTimeout: opts.ConnectTimeout},
	}
}

// Start connects to serverURL in the background and returns immediately.
func (c *RealtimeClient) Start(serverURL string) error {
	endpoint, err := EngineIOEndpoint(serverURL, c.opts.SocketIOPath)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// done stays set until the previous loop has exited
	if c.done != nil {
		return model.ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.running = true
	c.cancel = cancel
	c.done = make(chan struct{})

	c.logger.WithField("url", endpoint).Info("Starting realtime client")
	go c.run(ctx, endpoint, c.done)
	return nil
}

// Stop closes the connection and waits for the run loop to exit. No event is
// dispatched once Stop has returned. Stopping a stopped client is a no-op and
// concurrent calls all wait for the loop. Stop must not be called from a
// RealtimeObserver callback: the loop would wait on itself.
func (c *RealtimeClient) Stop() {
	c.mu.Lock()
	done := c.done
	if done == nil {
		c.mu.Unlock()
		return
	}
	first := c.running
	c.running = false
	c.connected = false
	cancel, conn := c.cancel, c.conn
	c.mu.Unlock()

	if first {
		c.logger.Info("Stopping realtime client")
		cancel()
		if conn != nil {
			_ = conn.Close()
		}
	}
	<-done
	if !first {
		return
	}

	c.setState(model.StateStopped)
	c.mu.Lock()
	c.done = nil
	c.mu.Unlock()
	c.logger.Info("Realtime client stopped")
}

func (c *RealtimeClient) State() model.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *RealtimeClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *RealtimeClient) run(ctx context.Context, endpoint string, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		c.setState(model.StateConnecting)
		conn, hs, err := c.connect(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.setState(model.StateDisconnected)
			c.logger.WithError(err).Warnf("Connection failed. Retrying in %s...", c.opts.RetryInterval)
			if !sleepCtx(ctx, c.opts.RetryInterval) {
				return
			}
			continue
		}

		if !c.attach(conn) {
			_ = conn.Close()
			return
		}
		c.logger.WithField("sid", hs.SID).Info("Connected")
		c.setState(model.StateConnected)

		err = c.serve(ctx, conn, hs)
		c.detach()
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}

		c.setState(model.StateDisconnected)
		c.logger.WithError(err).Warnf("Disconnected. Reconnecting in %s...", c.opts.RetryInterval)
		if !sleepCtx(ctx, c.opts.RetryInterval) {
			return
		}
	}
}

func (c *RealtimeClient) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return false
	}
	c.conn = conn
	c.connected = true
	return true
}

func (c *RealtimeClient) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = nil
	c.connected = false
}

func (c *RealtimeClient) setState(state model.ConnectionState) {
	c.mu.Lock()
	changed := c.state != state
	c.state = state
	c.mu.Unlock()

	if changed && c.observer != nil {
		c.observer.OnConnectionStateChanged(state)
	}
}

// connect dials the endpoint and completes the Engine.IO and namespace
// handshakes within the connect timeout.
func (c *RealtimeClient) connect(ctx context.Context, endpoint string) (*websocket.Conn, *model.EngineHandshake, error) {
	cctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	conn, resp, err := c.dialer.DialContext(cctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial: %v", model.ErrTransport, err)
	}

	// Unblock handshake reads if the client is stopped meanwhile.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	deadline, _ := cctx.Deadline()
	_ = conn.SetReadDeadline(deadline)

	hs, err := c.handshake(conn)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})
	return conn, hs, nil
}

func (c *RealtimeClient) handshake(conn *websocket.Conn) (*model.EngineHandshake, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: read open packet: %v", model.ErrTransport, err)
	}
	if len(msg) == 0 || model.EnginePacketType(msg[0]) != model.EngineOpen {
		return nil, fmt.Errorf("%w: expected open packet, got %q", model.ErrTransport, msg)
	}
	var hs model.EngineHandshake
	if err := json.Unmarshal(msg[1:], &hs); err != nil {
		return nil, fmt.Errorf("%w: invalid open packet: %v", model.ErrTransport, err)
	}

	join := EncodeSocketPacket(model.SocketPacket{Type: model.SocketConnect, Namespace: c.opts.Namespace})
	if err := conn.WriteMessage(websocket.TextMessage, []byte(join)); err != nil {
		return nil, fmt.Errorf("%w: join namespace: %v", model.ErrTransport, err)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: waiting for namespace: %v", model.ErrTransport, err)
		}
		if len(msg) == 0 {
			continue
		}
		switch model.EnginePacketType(msg[0]) {
		case model.EnginePing:
			if err := c.pong(conn, msg); err != nil {
				return nil, err
			}
		case model.EngineClose:
			return nil, fmt.Errorf("%w: server closed during handshake", model.ErrTransport)
		case model.EngineMessage:
			pkt, err := DecodeSocketPacket(string(msg[1:]))
			if err != nil || pkt.Namespace != c.opts.Namespace {
				continue
			}
			switch pkt.Type {
			case model.SocketConnect:
				return &hs, nil
			case model.SocketConnectError:
				return nil, fmt.Errorf("%w: namespace %s refused: %s", model.ErrTransport, pkt.Namespace, pkt.Data)
			}
		}
	}
}

// serve reads packets until the connection drops or the client stops.
func (c *RealtimeClient) serve(ctx context.Context, conn *websocket.Conn, hs *model.EngineHandshake) error {
	var idle time.Duration
	if hs.PingInterval > 0 {
		idle = time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	}

	for {
		if idle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(idle))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrTransport, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(msg) == 0 {
			continue
		}

		switch model.EnginePacketType(msg[0]) {
		case model.EnginePing:
			if err := c.pong(conn, msg); err != nil {
				return err
			}
		case model.EngineClose:
			return fmt.Errorf("%w: server closed the connection", model.ErrTransport)
		case model.EngineMessage:
			if err := c.handlePacket(conn, string(msg[1:])); err != nil {
				return err
			}
		}
	}
}

func (c *RealtimeClient) pong(conn *websocket.Conn, ping []byte) error {
	pong := append([]byte{byte(model.EnginePong)}, ping[1:]...)
	if err := conn.WriteMessage(websocket.TextMessage, pong); err != nil {
		return fmt.Errorf("%w: pong: %v", model.ErrTransport, err)
	}
	return nil
}

func (c *RealtimeClient) handlePacket(conn *websocket.Conn, raw string) error {
	pkt, err := DecodeSocketPacket(raw)
	if err != nil {
		c.logger.WithError(err).Warn("Dropping malformed packet")
		return nil
	}
	if pkt.Namespace != c.opts.Namespace {
		return nil
	}

	switch pkt.Type {
	case model.SocketDisconnect:
		return fmt.Errorf("%w: server disconnected namespace", model.ErrTransport)
	case model.SocketEvent:
		c.dispatch(pkt)
		if pkt.AckID != "" {
			ack := EncodeSocketPacket(model.SocketPacket{
				Type:      model.SocketAck,
				Namespace: c.opts.Namespace,
				AckID:     pkt.AckID,
				Data:      json.RawMessage("[]"),
			})
			if err := conn.WriteMessage(websocket.TextMessage, []byte(ack)); err != nil {
				return fmt.Errorf("%w: ack: %v", model.ErrTransport, err)
			}
		}
	}
	return nil
}

func (c *RealtimeClient) dispatch(pkt model.SocketPacket) {
	var args []json.RawMessage
	if err := json.Unmarshal(pkt.Data, &args); err != nil || len(args) == 0 {
		c.logger.WithField("data", string(pkt.Data)).Warn("Dropping event without arguments")
		return
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		c.logger.WithField("data", string(pkt.Data)).Warn("Dropping event without a name")
		return
	}
	if name != model.EventUpdate {
		c.logger.WithField("event", name).Debug("Ignoring event")
		return
	}
	if len(args) < 2 {
		c.logger.Warn("Dropping update without payload")
		return
	}

	data, err := parseUpdate(args[1])
	if err != nil {
		if errors.Is(err, errNotPrint) {
			c.logger.Debug("Ignoring update without print flag")
			return
		}
		c.logger.WithError(err).Warn("Dropping malformed update")
		return
	}

	c.logger.Info("Print request received")
	if c.observer != nil {
		c.observer.OnPrintRequested(data)
	}
}

var errNotPrint = errors.New("update is not a print request")

// parseUpdate extracts the print data of an update payload. The payload may
// arrive as an object or as a JSON document encoded in a string.
func parseUpdate(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		raw = json.RawMessage(text)
	}

	var payload model.UpdatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrMalformedEvent, err)
	}
	if payload.Flag != model.FlagPrint {
		return "", errNotPrint
	}
	if len(payload.Data) == 0 || string(payload.Data) == "null" {
		return "", fmt.Errorf("%w: print update without data", model.ErrMalformedEvent)
	}

	var data string
	if err := json.Unmarshal(payload.Data, &data); err == nil {
		return data, nil
	}
	return string(payload.Data), nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
