package gateway

import (
	"github.com/hoststate/hoststate/internal/session"
)

// WSMessage is the envelope for every frame sent on /ws. Type carries the
// channel name ("monitor" or "apps") so observers can demultiplex.
type WSMessage struct {
	Type    session.Channel `json:"type"`
	Payload interface{}     `json:"payload"`
}

// HealthPayload is returned by /healthz.
type HealthPayload struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
