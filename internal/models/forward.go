package models

import (
	"strconv"

	"github.com/guregu/null/v5"
)

type ForwardEvent struct {
	Index        null.Int
	InChannel    null.String
	InHtlcID     null.Int
	OutChannel   null.String
	InMsat       null.Int
	OutMsat      null.Int
	Fee          null.Int
	Status       string
	ReceivedTime null.Time
	ResolvedTime null.Time
}

func (f *ForwardEvent) Key() string {
	if f.InChannel.Valid && f.InHtlcID.Valid {
		return f.InChannel.String + "/" + strconv.FormatInt(f.InHtlcID.Int64, 10)
	}
	if f.Index.Valid {
		return "idx:" + strconv.FormatInt(f.Index.Int64, 10)
	}
	key := "fw:" + f.InChannel.String
	if f.ReceivedTime.Valid {
		key += ":" + strconv.FormatInt(f.ReceivedTime.Time.UnixNano(), 10)
	}
	return key
}

func (f *ForwardEvent) CreatedIndex() null.Int { return f.Index }

func (f *ForwardEvent) State() EventState {
	switch f.Status {
	case "settled":
		return EventComplete
	case "offered":
		return EventPending
	default:
		return EventFailed
	}
}

// SettledAt falls back to the receive time when the node did not report a
// resolution time.
func (f *ForwardEvent) SettledAt() null.Time {
	if f.ResolvedTime.Valid {
		return f.ResolvedTime
	}
	return f.ReceivedTime
}

// FeeMsat is the reported fee, or in-out when the node omitted it.
func (f *ForwardEvent) FeeMsat() null.Int {
	if f.Fee.Valid {
		return f.Fee
	}
	if f.InMsat.Valid && f.OutMsat.Valid {
		return null.IntFrom(f.InMsat.Int64 - f.OutMsat.Int64)
	}
	return null.Int{}
}
