package models

import (
	"summard/internal/views"
	"time"

	json "github.com/goccy/go-json"
	"github.com/guregu/null/v5"
)

type NodeInfo struct {
	ID                string   `json:"id"`
	Version           string   `json:"version"`
	Address           string   `json:"address"`
	NumUtxos          int      `json:"num_utxos"`
	UtxoAmountMsat    int64    `json:"utxo_amount_msat"`
	NumChannels       int      `json:"num_channels"`
	NumConnected      int      `json:"num_connected"`
	NumGossipers      int      `json:"num_gossipers"`
	AvailOutMsat      int64    `json:"avail_out_msat"`
	AvailInMsat       int64    `json:"avail_in_msat"`
	FeesCollectedMsat null.Int `json:"-"`
}

// MarshalJSON leaves fees_collected_msat out when the node did not report it.
func (n NodeInfo) MarshalJSON() ([]byte, error) {
	type plain NodeInfo
	return json.Marshal(struct {
		plain
		FeesCollectedMsat *int64 `json:"fees_collected_msat,omitempty"`
	}{plain(n), n.FeesCollectedMsat.Ptr()})
}

// ClassResult is the view of one ledger class for a single request.
type ClassResult struct {
	Class    string       `json:"class"`
	Disabled bool         `json:"disabled,omitempty"`
	Rows     []views.Row  `json:"rows"`
	Totals   views.Totals `json:"totals"`
	Hours    int          `json:"hours"`
	Limit    int          `json:"limit"`
	SortBy   string       `json:"sort_by"`
	Stale    bool         `json:"stale,omitempty"`
	Error    string       `json:"error,omitempty"`
}

type Summary struct {
	GeneratedAt      time.Time   `json:"generated_at"`
	Info             NodeInfo    `json:"info"`
	Channels         []views.Row `json:"channels"`
	FilteredChannels int         `json:"filtered_channels"`
	Forwards         ClassResult `json:"forwards"`
	Pays             ClassResult `json:"pays"`
	Invoices         ClassResult `json:"invoices"`
}
