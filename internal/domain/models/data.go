package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// IsTerminal reports whether no further transitions follow.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Data is a stored asynchronous prediction request.
type Data struct {
	ID        uuid.UUID       `json:"id"`
	Symbol    string          `json:"symbol"`
	Period    string          `json:"period"`
	Interval  string          `json:"interval,omitempty"`
	Status    Status          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
