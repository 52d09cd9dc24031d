package models

import (
	"time"

	"github.com/guregu/null/v5"
)

// AliasEntry caches the gossip alias of a node. Miss means gossip had no
// node announcement at the last lookup; a known node without an alias has
// an invalid Alias and Miss=false.
type AliasEntry struct {
	PeerID     string      `json:"peer_id"`
	Alias      null.String `json:"alias"`
	ResolvedAt time.Time   `json:"resolved_at"`
	Miss       bool        `json:"miss"`
}

func (e AliasEntry) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.ResolvedAt) > maxAge
}
