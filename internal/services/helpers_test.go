package services

import (
	"context"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/structures"
	"summard/internal/views"
	"sync"
	"time"

	"github.com/guregu/null/v5"
)

var base = time.Unix(1_700_000_000, 0)

func testConfig() *structures.Config {
	return &structures.Config{
		Lightning: structures.LightningConfig{Timeout: time.Second},
		Availability: structures.AvailabilityConfig{
			Interval: 5 * time.Minute,
			Window:   time.Hour,
		},
		Alias: structures.AliasConfig{
			RefreshInterval:  24 * time.Hour,
			FastInterval:     5 * time.Minute,
			FastMaxInterval:  time.Hour,
			MissingThreshold: 0.05,
			UTF8:             true,
		},
		Summary: structures.SummaryConfig{
			Columns: models.ChannelColumns,
			SortBy:  models.DefaultChannelSort,
		},
		Forwards: structures.LedgerConfig{
			Hours:            24,
			Columns:          models.ForwardColumns,
			SortBy:           models.DefaultForwardSort,
			FilterAmountMsat: -1,
			FilterFeeMsat:    -1,
			Alias:            true,
		},
		Pays: structures.LedgerConfig{
			Hours:            24,
			Columns:          models.PayColumns,
			SortBy:           models.DefaultPaySort,
			FilterAmountMsat: -1,
			FilterFeeMsat:    -1,
		},
		Invoices: structures.LedgerConfig{
			Hours:            24,
			Columns:          models.InvoiceColumns,
			SortBy:           models.DefaultInvoiceSort,
			FilterAmountMsat: -1,
			FilterFeeMsat:    -1,
		},
	}
}

func msat(v int64) lightning.Msat { return lightning.MsatFrom(v) }

func ts(t time.Time) lightning.Timestamp { return lightning.TimestampFrom(t) }

func settledForward(idx int64, inChan string, htlc int64, in, out int64, at time.Time) lightning.Forward {
	return lightning.Forward{
		CreatedIndex: null.IntFrom(idx),
		InChannel:    null.StringFrom(inChan),
		InHtlcID:     null.IntFrom(htlc),
		OutChannel:   null.StringFrom("900x1x0"),
		InMsat:       msat(in),
		OutMsat:      msat(out),
		FeeMsat:      msat(in - out),
		Status:       "settled",
		ReceivedTime: ts(at.Add(-time.Second)),
		ResolvedTime: ts(at),
	}
}

// stubAlias resolves from a fixed table and records tracked ids.
type stubAlias struct {
	mu      sync.Mutex
	aliases map[string]string
	tracked []string
	warmed  int
}

func (s *stubAlias) Resolve(peerID string) (string, bool) {
	alias, ok := s.aliases[peerID]
	return alias, ok
}

func (s *stubAlias) Entry(peerID string) (models.AliasEntry, bool) {
	alias, ok := s.aliases[peerID]
	if !ok {
		return models.AliasEntry{}, false
	}
	return models.AliasEntry{Alias: null.StringFrom(alias)}, true
}

func (s *stubAlias) Track(peerIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = append(s.tracked, peerIDs...)
}

func (s *stubAlias) MissingFraction([]string) float64 { return 0 }

func (s *stubAlias) RefreshPeers(context.Context, []string) ([]string, error) { return nil, nil }

func (s *stubAlias) Refresh(context.Context, bool) (*AliasRefreshResult, error) {
	return &AliasRefreshResult{}, nil
}

func (s *stubAlias) EnsureWarm(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warmed++
}

func (s *stubAlias) Schedule() *AliasSchedule { return nil }

func cell(t interface{ Helper() }, row views.Row, name string) views.Value {
	t.Helper()
	v, _ := row.Get(name)
	return v
}

func strCell(t interface{ Helper() }, row views.Row, name string) string {
	t.Helper()
	s, _ := cell(t, row, name).Str()
	return s
}

func intCell(t interface{ Helper() }, row views.Row, name string) int64 {
	t.Helper()
	i, _ := cell(t, row, name).Int64()
	return i
}
