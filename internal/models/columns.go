package models

// Column names per table, in catalog order.
var (
	ChannelColumns = []string{
		"OUT_SATS", "IN_SATS", "TOTAL_SATS", "PERC_US", "SCID", "MIN_HTLC", "MAX_HTLC",
		"FLAG", "BASE", "IN_BASE", "PPM", "IN_PPM", "ALIAS", "PEER_ID", "UPTIME", "HTLCS", "STATE",
	}
	DefaultChannelColumns = []string{
		"OUT_SATS", "IN_SATS", "SCID", "MAX_HTLC", "FLAG", "BASE", "PPM", "ALIAS", "PEER_ID",
		"UPTIME", "HTLCS", "STATE",
	}

	ForwardColumns = []string{
		"received_time", "resolved_time", "in_channel", "out_channel", "in_alias", "out_alias",
		"in_sats", "in_msats", "out_sats", "out_msats", "fee_sats", "fee_msats", "eff_fee_ppm",
	}
	DefaultForwardColumns = []string{"resolved_time", "in_alias", "out_alias", "in_sats", "out_sats", "fee_msats"}

	PayColumns = []string{
		"completed_at", "payment_hash", "sats_requested", "msats_requested", "sats_sent",
		"msats_sent", "fee_sats", "fee_msats", "destination", "description", "preimage",
	}
	DefaultPayColumns = []string{"completed_at", "payment_hash", "sats_sent", "fee_sats", "destination"}

	InvoiceColumns = []string{
		"paid_at", "label", "description", "sats_received", "msats_received", "payment_hash", "preimage",
	}
	DefaultInvoiceColumns = []string{"paid_at", "label", "sats_received"}
)

const (
	DefaultChannelSort = "SCID"
	DefaultForwardSort = "-resolved_time"
	DefaultPaySort     = "-completed_at"
	DefaultInvoiceSort = "-paid_at"
)

const (
	ExcludePublic  = "PUBLIC"
	ExcludePrivate = "PRIVATE"
	ExcludeOnline  = "ONLINE"
	ExcludeOffline = "OFFLINE"
)

const (
	ChannelStateNormal   = "CHANNELD_NORMAL"
	ChannelStateSplicing = "CHANNELD_AWAITING_SPLICE"
)

var shortChannelStates = map[string]string{
	"OPENINGD":                    "OPENING",
	"CHANNELD_AWAITING_LOCKIN":    "AWAIT_LOCK",
	"CHANNELD_NORMAL":             "OK",
	"CHANNELD_SHUTTING_DOWN":      "SHUTTING_DOWN",
	"CLOSINGD_SIGEXCHANGE":        "CLOSINGD_SIGEX",
	"CLOSINGD_COMPLETE":           "CLOSINGD_DONE",
	"AWAITING_UNILATERAL":         "AWAIT_UNILATERAL",
	"FUNDING_SPEND_SEEN":          "FUNDING_SPEND",
	"ONCHAIN":                     "ONCHAIN",
	"DUALOPEND_OPEN_INIT":         "DUAL_OPEN",
	"DUALOPEND_OPEN_COMMITTED":    "DUAL_COMITTED",
	"DUALOPEND_OPEN_COMMIT_READY": "DUAL_COMMIT_RDY",
	"DUALOPEND_AWAITING_LOCKIN":   "DUAL_AWAIT",
	"CHANNELD_AWAITING_SPLICE":    "AWAIT_SPLICE",
}

var activeChannelStates = map[string]bool{
	"OPENINGD":                  true,
	"CHANNELD_AWAITING_LOCKIN":  true,
	"CHANNELD_NORMAL":           true,
	"DUALOPEND_OPEN_INIT":       true,
	"DUALOPEND_AWAITING_LOCKIN": true,
	"CHANNELD_AWAITING_SPLICE":  true,
}

// ShortChannelState maps a node channel state to its display name. Unknown
// states are returned unchanged.
func ShortChannelState(state string) string {
	if s, ok := shortChannelStates[state]; ok {
		return s
	}
	return state
}

func IsShortChannelState(s string) bool {
	for _, v := range shortChannelStates {
		if v == s {
			return true
		}
	}
	return false
}

// IsActiveChannelState reports whether a channel in this state counts towards
// connectivity and availability sampling.
func IsActiveChannelState(state string) bool {
	return activeChannelStates[state]
}
