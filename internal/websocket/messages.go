package websocket

import (
	"encoding/json"
	"math"

	"github.com/conneroisu/techviz/internal/engine"
	"github.com/conneroisu/techviz/internal/errors"
)

// Message types on the wire.
const (
	TypeFrame   = "frame"
	TypeHello   = "hello"
	TypePointer = "pointer"
	TypeResize  = "resize"
)

// OutboundMessage is what the server sends to a browser.
type OutboundMessage struct {
	Type    string        `json:"type"`
	Frame   *engine.Frame `json:"frame,omitempty"`
	Version string        `json:"version,omitempty"`
}

// InboundMessage is what a browser sends. Pointer messages carry X and Y,
// resize messages carry Width and Height.
type InboundMessage struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// maxCanvasSide bounds resize requests from clients.
const maxCanvasSide = 16384

// DecodeInbound parses and validates a client message.
func DecodeInbound(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InboundMessage{}, errors.NewValidationError(errors.ErrCodeInvalidMessage, "malformed client message").
			WithCause(err)
	}
	switch msg.Type {
	case TypePointer:
		if !finite(msg.X) || !finite(msg.Y) {
			return InboundMessage{}, errors.NewValidationError(errors.ErrCodeInvalidMessage, "pointer position must be finite")
		}
	case TypeResize:
		if !(msg.Width > 0 && msg.Height > 0) || msg.Width > maxCanvasSide || msg.Height > maxCanvasSide {
			return InboundMessage{}, errors.NewValidationError(errors.ErrCodeInvalidGeometry, "resize dimensions out of range").
				WithContext("width", msg.Width).
				WithContext("height", msg.Height)
		}
	default:
		return InboundMessage{}, errors.NewValidationError(errors.ErrCodeInvalidMessage, "unknown message type").
			WithContext("type", msg.Type)
	}
	return msg, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
