package models

import (
	"strconv"

	"github.com/guregu/null/v5"
)

type InvoiceEvent struct {
	Index              null.Int
	Label              string
	Description        null.String
	Status             string
	PaymentHash        null.String
	Preimage           null.String
	AmountMsat         null.Int
	AmountReceivedMsat null.Int
	PaidAt             null.Time
	ExpiresAt          null.Time
}

func (i *InvoiceEvent) Key() string {
	if i.Label != "" {
		return i.Label
	}
	return "idx:" + strconv.FormatInt(i.Index.Int64, 10)
}

func (i *InvoiceEvent) CreatedIndex() null.Int { return i.Index }

func (i *InvoiceEvent) State() EventState {
	switch i.Status {
	case "paid":
		return EventComplete
	case "unpaid":
		return EventPending
	default:
		return EventFailed
	}
}

func (i *InvoiceEvent) SettledAt() null.Time { return i.PaidAt }
