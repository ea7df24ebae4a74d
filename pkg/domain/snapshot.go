package domain

import "time"

// Snapshot is the persisted state of one session of a machine group.
type Snapshot struct {
	SessionID  string    `json:"session_id"`
	Group      string    `json:"group"`
	Vector     Vector    `json:"vector,omitempty"`
	Dispatches int       `json:"dispatches"`
	UpdatedAt  time.Time `json:"updated_at"`
	// Sealed holds the encrypted form of Vector when an encryption middleware is in use.
	Sealed string `json:"sealed,omitempty"`
}
