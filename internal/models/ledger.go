package models

import (
	"time"

	"github.com/guregu/null/v5"
)

type EventState uint8

const (
	EventPending EventState = iota
	EventComplete
	EventFailed
)

func (s EventState) String() string {
	switch s {
	case EventPending:
		return "pending"
	case EventComplete:
		return "complete"
	default:
		return "failed"
	}
}

// LedgerEvent is the shape shared by forwards, pays and invoices.
type LedgerEvent interface {
	Key() string
	CreatedIndex() null.Int
	State() EventState
	// SettledAt is the time the event reached its terminal successful state.
	SettledAt() null.Time
}

// FetchCursor bookmarks incremental fetching for one event class.
type FetchCursor struct {
	Next    uint64    `json:"next"`
	Horizon time.Time `json:"horizon"`
	Resets  int       `json:"resets"`
}
