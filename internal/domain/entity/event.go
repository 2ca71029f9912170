package entity

import "time"

type EventKind string

const (
	EventConversion EventKind = "conversion"
	EventDeployment EventKind = "deployment"
)

// StateEvent is published on every state transition of a conversion or deployment.
type StateEvent struct {
	Kind      EventKind `json:"kind"`
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"ts"`
}
