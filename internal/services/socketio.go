package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

// EngineIOEndpoint maps the backend URL to the Engine.IO websocket endpoint:
// https becomes wss, http becomes ws, and the path is replaced by the
// Socket.IO path.
func EngineIOEndpoint(rawURL, socketIOPath string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", rawURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q in server url", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", rawURL)
	}

	if socketIOPath == "" {
		socketIOPath = "/socket.io/"
	}
	u.Path = "/" + strings.Trim(socketIOPath, "/") + "/"
	u.RawPath = ""
	u.Fragment = ""

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// EncodeSocketPacket serializes a Socket.IO packet, Engine.IO message prefix
// included.
func EncodeSocketPacket(p model.SocketPacket) string {
	var b strings.Builder
	b.WriteByte(byte(model.EngineMessage))
	b.WriteByte(byte(p.Type))
	if p.Namespace != "" && p.Namespace != "/" {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	b.WriteString(p.AckID)
	b.Write(p.Data)
	return b.String()
}

// DecodeSocketPacket parses the Socket.IO part of an Engine.IO message.
func DecodeSocketPacket(s string) (model.SocketPacket, error) {
	var p model.SocketPacket
	if s == "" {
		return p, fmt.Errorf("%w: empty packet", model.ErrMalformedEvent)
	}
	p.Type = model.SocketPacketType(s[0])
	if p.Type < model.SocketConnect || p.Type > model.SocketConnectError {
		return p, fmt.Errorf("%w: unsupported packet type %q", model.ErrMalformedEvent, s[0])
	}
	rest := s[1:]

	p.Namespace = "/"
	if strings.HasPrefix(rest, "/") {
		if i := strings.IndexByte(rest, ','); i >= 0 {
			p.Namespace, rest = rest[:i], rest[i+1:]
		} else {
			p.Namespace, rest = rest, ""
		}
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	p.AckID, rest = rest[:i], rest[i:]

	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return p, fmt.Errorf("%w: invalid packet data", model.ErrMalformedEvent)
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}
