package model

import "time"

// --- Print Structures ---

type JobSource string

const (
	SourceBridge   JobSource = "bridge"
	SourceRealtime JobSource = "realtime"
)

// PrintJob is one ticket headed for the receipt printer.
type PrintJob struct {
	Body   string
	Source JobSource
}

type DeviceState int

const (
	DeviceUninitialized DeviceState = iota
	DeviceReady
	DeviceDegraded
)

func (s DeviceState) String() string {
	switch s {
	case DeviceReady:
		return "ready"
	case DeviceDegraded:
		return "degraded"
	default:
		return "uninitialized"
	}
}

// Profile describes the capabilities of a printer model.
type Profile struct {
	Name     string
	Columns  int
	CodePage string
}

// --- Status Structures ---

type StatusReport struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type AuthToken struct {
	Value      string
	AcquiredAt time.Time
}
