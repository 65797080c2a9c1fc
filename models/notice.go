package models

import "time"

// Notice is a short user-visible message emitted by the coordinator, for
// example the confirmation shown after a new reading was stored.
type Notice struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}
