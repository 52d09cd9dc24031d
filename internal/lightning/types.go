package lightning

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"summard/internal/models"
	"time"

	json "github.com/goccy/go-json"
	"github.com/guregu/null/v5"
	"github.com/spf13/cast"
)

// Msat is a millisatoshi amount that may be absent. The node encodes amounts
// either as plain numbers or as strings with an "msat" suffix.
type Msat struct {
	null.Int
}

func MsatFrom(v int64) Msat { return Msat{null.IntFrom(v)} }

func (m *Msat) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" || s == "" {
		m.Int = null.Int{}
		return nil
	}
	s = strings.TrimSuffix(strings.Trim(s, `"`), "msat")
	v, err := cast.ToInt64E(s)
	if err != nil {
		return fmt.Errorf("invalid msat amount %s: %w", data, err)
	}
	m.Int = null.IntFrom(v)
	return nil
}

// Timestamp is a unix time in seconds, possibly fractional.
type Timestamp struct {
	null.Time
}

func TimestampFrom(t time.Time) Timestamp { return Timestamp{null.TimeFrom(t)} }

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" || s == "" {
		t.Time = null.Time{}
		return nil
	}
	f, err := cast.ToFloat64E(strings.Trim(s, `"`))
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	sec, frac := math.Modf(f)
	t.Time = null.TimeFrom(time.Unix(int64(sec), int64(frac*1e9)))
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(float64(t.Time.Time.UnixNano()) / 1e9)
}

type Address struct {
	Type    string   `json:"type"`
	Address string   `json:"address"`
	Port    null.Int `json:"port"`
}

type GetInfoResponse struct {
	ID                string    `json:"id"`
	Alias             string    `json:"alias"`
	Version           string    `json:"version"`
	Address           []Address `json:"address"`
	Binding           []Address `json:"binding"`
	FeesCollectedMsat Msat      `json:"fees_collected_msat"`
}

type Peer struct {
	ID          string   `json:"id"`
	Connected   bool     `json:"connected"`
	NumChannels null.Int `json:"num_channels"`
}

type ChannelUpdate struct {
	FeeBaseMsat               Msat     `json:"fee_base_msat"`
	FeeProportionalMillionths null.Int `json:"fee_proportional_millionths"`
}

type ChannelUpdates struct {
	Local  *ChannelUpdate `json:"local"`
	Remote *ChannelUpdate `json:"remote"`
}

type PeerChannel struct {
	PeerID                    string            `json:"peer_id"`
	PeerConnected             bool              `json:"peer_connected"`
	State                     string            `json:"state"`
	ShortChannelID            null.String       `json:"short_channel_id"`
	Private                   null.Bool         `json:"private"`
	ToUsMsat                  Msat              `json:"to_us_msat"`
	TotalMsat                 Msat              `json:"total_msat"`
	OurReserveMsat            Msat              `json:"our_reserve_msat"`
	TheirReserveMsat          Msat              `json:"their_reserve_msat"`
	MinimumHtlcOutMsat        Msat              `json:"minimum_htlc_out_msat"`
	MaximumHtlcOutMsat        Msat              `json:"maximum_htlc_out_msat"`
	FeeBaseMsat               Msat              `json:"fee_base_msat"`
	FeeProportionalMillionths null.Int          `json:"fee_proportional_millionths"`
	Htlcs                     []json.RawMessage `json:"htlcs"`
	Updates                   *ChannelUpdates   `json:"updates"`
}

type FundsOutput struct {
	AmountMsat Msat   `json:"amount_msat"`
	Status     string `json:"status"`
}

type Node struct {
	NodeID        string      `json:"nodeid"`
	Alias         null.String `json:"alias"`
	LastTimestamp null.Int    `json:"last_timestamp"`
}

type Forward struct {
	CreatedIndex null.Int    `json:"created_index"`
	InChannel    null.String `json:"in_channel"`
	InHtlcID     null.Int    `json:"in_htlc_id"`
	OutChannel   null.String `json:"out_channel"`
	InMsat       Msat        `json:"in_msat"`
	OutMsat      Msat        `json:"out_msat"`
	FeeMsat      Msat        `json:"fee_msat"`
	Status       string      `json:"status"`
	ReceivedTime Timestamp   `json:"received_time"`
	ResolvedTime Timestamp   `json:"resolved_time"`
}

func (f Forward) Event() *models.ForwardEvent {
	return &models.ForwardEvent{
		Index:        f.CreatedIndex,
		InChannel:    f.InChannel,
		InHtlcID:     f.InHtlcID,
		OutChannel:   f.OutChannel,
		InMsat:       f.InMsat.Int,
		OutMsat:      f.OutMsat.Int,
		Fee:          f.FeeMsat.Int,
		Status:       f.Status,
		ReceivedTime: f.ReceivedTime.Time,
		ResolvedTime: f.ResolvedTime.Time,
	}
}

type Pay struct {
	CreatedIndex   null.Int    `json:"created_index"`
	PaymentHash    string      `json:"payment_hash"`
	Status         string      `json:"status"`
	Destination    null.String `json:"destination"`
	AmountMsat     Msat        `json:"amount_msat"`
	AmountSentMsat Msat        `json:"amount_sent_msat"`
	CreatedAt      Timestamp   `json:"created_at"`
	CompletedAt    Timestamp   `json:"completed_at"`
	Description    null.String `json:"description"`
	Bolt11         null.String `json:"bolt11"`
	Bolt12         null.String `json:"bolt12"`
	Preimage       null.String `json:"preimage"`
}

func (p Pay) Event() *models.PayEvent {
	return &models.PayEvent{
		Index:          p.CreatedIndex,
		PaymentHash:    p.PaymentHash,
		Status:         p.Status,
		Destination:    p.Destination,
		AmountMsat:     p.AmountMsat.Int,
		AmountSentMsat: p.AmountSentMsat.Int,
		CreatedAt:      p.CreatedAt.Time,
		CompletedAt:    p.CompletedAt.Time,
		Description:    p.Description,
		Bolt11:         p.Bolt11,
		Bolt12:         p.Bolt12,
		Preimage:       p.Preimage,
	}
}

type Invoice struct {
	CreatedIndex       null.Int    `json:"created_index"`
	Label              string      `json:"label"`
	Description        null.String `json:"description"`
	Status             string      `json:"status"`
	PaymentHash        null.String `json:"payment_hash"`
	PaymentPreimage    null.String `json:"payment_preimage"`
	AmountMsat         Msat        `json:"amount_msat"`
	AmountReceivedMsat Msat        `json:"amount_received_msat"`
	PaidAt             Timestamp   `json:"paid_at"`
	ExpiresAt          Timestamp   `json:"expires_at"`
}

func (i Invoice) Event() *models.InvoiceEvent {
	return &models.InvoiceEvent{
		Index:              i.CreatedIndex,
		Label:              i.Label,
		Description:        i.Description,
		Status:             i.Status,
		PaymentHash:        i.PaymentHash,
		Preimage:           i.PaymentPreimage,
		AmountMsat:         i.AmountMsat.Int,
		AmountReceivedMsat: i.AmountReceivedMsat.Int,
		PaidAt:             i.PaidAt.Time,
		ExpiresAt:          i.ExpiresAt.Time,
	}
}

type Decoded struct {
	Description      null.String `json:"description"`
	OfferDescription null.String `json:"offer_description"`
}

// ListRequest selects a page of an indexed list call. Without Indexed the
// whole list is returned.
type ListRequest struct {
	Indexed bool
	Start   uint64
}

func (r ListRequest) params() map[string]any {
	p := map[string]any{}
	if r.Indexed {
		p["index"] = "created"
		p["start"] = r.Start
	}
	return p
}
