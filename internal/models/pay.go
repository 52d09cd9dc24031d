package models

import (
	"strconv"

	"github.com/guregu/null/v5"
)

type PayEvent struct {
	Index          null.Int
	PaymentHash    string
	Status         string
	Destination    null.String
	AmountMsat     null.Int
	AmountSentMsat null.Int
	CreatedAt      null.Time
	CompletedAt    null.Time
	Description    null.String
	Bolt11         null.String
	Bolt12         null.String
	Preimage       null.String
}

// Key separates retries of one payment hash by their created index, so a
// failed attempt and its successful retry are distinct events.
func (p *PayEvent) Key() string {
	switch {
	case p.PaymentHash != "" && p.Index.Valid:
		return p.PaymentHash + "/" + strconv.FormatInt(p.Index.Int64, 10)
	case p.PaymentHash != "":
		return p.PaymentHash
	}
	return "idx:" + strconv.FormatInt(p.Index.Int64, 10)
}

func (p *PayEvent) CreatedIndex() null.Int { return p.Index }

func (p *PayEvent) State() EventState {
	switch p.Status {
	case "complete":
		return EventComplete
	case "pending":
		return EventPending
	default:
		return EventFailed
	}
}

func (p *PayEvent) SettledAt() null.Time {
	if p.CompletedAt.Valid {
		return p.CompletedAt
	}
	return p.CreatedAt
}

// FeeMsat is sent minus requested. Either side missing makes it unavailable.
func (p *PayEvent) FeeMsat() null.Int {
	if !p.AmountMsat.Valid || !p.AmountSentMsat.Valid {
		return null.Int{}
	}
	return null.IntFrom(p.AmountSentMsat.Int64 - p.AmountMsat.Int64)
}
