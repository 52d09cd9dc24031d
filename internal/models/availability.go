package models

import "time"

// AvailabilitySample is one observation of a peer's connection state.
type AvailabilitySample struct {
	PeerID     string
	Connected  bool
	ObservedAt time.Time
}

// AvailabilityRecord is the durable per-peer window. Times are unix seconds.
// 0 <= ConnectedSeconds <= TotalSeconds <= window length.
type AvailabilityRecord struct {
	PeerID           string `json:"peer_id"`
	WindowStart      int64  `json:"window_start"`
	WindowEnd        int64  `json:"window_end"`
	ConnectedSeconds int64  `json:"connected_seconds"`
	TotalSeconds     int64  `json:"total_seconds"`
}

func (r *AvailabilityRecord) Valid() bool {
	return r.PeerID != "" &&
		r.ConnectedSeconds >= 0 &&
		r.TotalSeconds >= r.ConnectedSeconds &&
		r.WindowEnd >= r.WindowStart
}
