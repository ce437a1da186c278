package model

import "encoding/json"

// Engine.IO v4 packet types, first byte of every websocket frame.
type EnginePacketType byte

const (
	EngineOpen    EnginePacketType = '0'
	EngineClose   EnginePacketType = '1'
	EnginePing    EnginePacketType = '2'
	EnginePong    EnginePacketType = '3'
	EngineMessage EnginePacketType = '4'
	EngineUpgrade EnginePacketType = '5'
	EngineNoop    EnginePacketType = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
type SocketPacketType byte

const (
	SocketConnect      SocketPacketType = '0'
	SocketDisconnect   SocketPacketType = '1'
	SocketEvent        SocketPacketType = '2'
	SocketAck          SocketPacketType = '3'
	SocketConnectError SocketPacketType = '4'
)

// EngineHandshake is the payload of the Engine.IO open packet.
type EngineHandshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
	MaxPayload   int    `json:"maxPayload"`
}

// SocketPacket is a decoded Socket.IO packet for one namespace.
type SocketPacket struct {
	Type      SocketPacketType
	Namespace string
	AckID     string
	Data      json.RawMessage
}

// --- Server events ---

const (
	EventUpdate = "update"
	FlagPrint   = "print"
)

// UpdatePayload is the body of an "update" event.
type UpdatePayload struct {
	Flag string          `json:"flag"`
	Data json.RawMessage `json:"data"`
}

// ConnectionState tracks the realtime link lifecycle.
type ConnectionState int

const (
	StateStopped ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "stopped"
	}
}
