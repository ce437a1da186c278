package services

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

// DeviceHandle is an open channel to the physical printer.
type DeviceHandle interface {
	Write(p []byte) (int, error)
	Close() error
}

// DeviceOpener acquires the printer. Open returns an error wrapping
// model.ErrDeviceNotFound when nothing answers.
type DeviceOpener interface {
	Open(ctx context.Context) (DeviceHandle, error)
	String() string
}

// --- Network transport (raw TCP, port 9100) ---

type NetworkOpener struct {
	Address string
	Timeout time.Duration
}

func (o *NetworkOpener) String() string {
	return "tcp://" + o.Address
}

func (o *NetworkOpener) Open(ctx context.Context) (DeviceHandle, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", o.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDeviceNotFound, err)
	}
	return &networkHandle{conn: conn, timeout: timeout}, nil
}

type networkHandle struct {
	conn    net.Conn
	timeout time.Duration
}

func (h *networkHandle) Write(p []byte) (int, error) {
	if err := h.conn.SetWriteDeadline(time.Now().Add(h.timeout)); err != nil {
		return 0, err
	}
	n, err := h.conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

func (h *networkHandle) Close() error {
	return h.conn.Close()
}
