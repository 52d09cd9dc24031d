package services

import (
	"context"
	"fmt"
	"sort"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/persistence/interfaces"
	"summard/internal/providers"
	"summard/internal/structures"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type AvailabilityServiceInterface interface {
	Record(sample models.AvailabilitySample)
	RecordBatch(samples []models.AvailabilitySample)
	Ratio(peerID string) (float64, bool)
	Percent(peerID string) (decimal.Decimal, bool)
	Snapshot() []models.AvailabilityRecord
	Load(records []models.AvailabilityRecord)
	Sample(ctx context.Context) error
	Restore() error
	Persist() error
}

// AvailabilityService keeps a trailing connected/total window per peer.
// Elapsed time between two samples is credited with the state of the later
// sample, capped at maxGap so our own downtime is not attributed to peers.
type AvailabilityService struct {
	mu      sync.RWMutex
	records map[string]*models.AvailabilityRecord
	window  int64
	maxGap  int64

	persistMu sync.Mutex
	store     interfaces.AvailabilityStoreInterface
	client    lightning.Client
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
	now       func() time.Time
}

func NewAvailabilityService(conf *structures.Config, store interfaces.AvailabilityStoreInterface, client lightning.Client, logger providers.Logger, metrics providers.MetricsProviderInterface) *AvailabilityService {
	maxGap := conf.Availability.MaxGap
	if maxGap <= 0 {
		maxGap = 2 * conf.Availability.Interval
	}
	return &AvailabilityService{
		records: make(map[string]*models.AvailabilityRecord),
		window:  int64(conf.Availability.Window / time.Second),
		maxGap:  max(int64(maxGap/time.Second), 1),
		store:   store,
		client:  client,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *AvailabilityService) Record(sample models.AvailabilitySample) {
	s.RecordBatch([]models.AvailabilitySample{sample})
}

// RecordBatch applies samples in order and persists the result.
func (s *AvailabilityService) RecordBatch(samples []models.AvailabilitySample) {
	if len(samples) == 0 {
		return
	}
	s.mu.Lock()
	applied := 0
	var latest int64
	for _, sample := range samples {
		if s.apply(sample) {
			applied++
		}
		latest = max(latest, sample.ObservedAt.Unix())
	}
	for id, rec := range s.records {
		if rec.WindowEnd < latest-s.window {
			delete(s.records, id)
		}
	}
	tracked := len(s.records)
	s.mu.Unlock()

	s.metrics.AddAvailabilitySamples(applied)
	s.metrics.SetTrackedPeers(tracked)

	if err := s.Persist(); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting availability, will retry next cycle: %s", err)
	}
}

func (s *AvailabilityService) apply(sample models.AvailabilitySample) bool {
	at := sample.ObservedAt.Unix()
	rec, ok := s.records[sample.PeerID]
	if !ok {
		s.records[sample.PeerID] = &models.AvailabilityRecord{
			PeerID:      sample.PeerID,
			WindowStart: at,
			WindowEnd:   at,
		}
		return true
	}
	if at <= rec.WindowEnd {
		return false
	}

	elapsed := min(at-rec.WindowEnd, s.maxGap)
	rec.TotalSeconds += elapsed
	if sample.Connected {
		rec.ConnectedSeconds += elapsed
	}
	rec.WindowEnd = at
	s.trim(rec)
	return true
}

// trim evicts the oldest part of the window, decaying both counters by the
// share of time removed.
func (s *AvailabilityService) trim(rec *models.AvailabilityRecord) {
	if rec.TotalSeconds > s.window {
		excess := rec.TotalSeconds - s.window
		rec.ConnectedSeconds -= rec.ConnectedSeconds * excess / rec.TotalSeconds
		rec.TotalSeconds = s.window
		rec.ConnectedSeconds = min(rec.ConnectedSeconds, rec.TotalSeconds)
	}
	rec.WindowStart = rec.WindowEnd - rec.TotalSeconds
}

func (s *AvailabilityService) Ratio(peerID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[peerID]
	if !ok || rec.TotalSeconds == 0 {
		return 0, false
	}
	return float64(rec.ConnectedSeconds) / float64(rec.TotalSeconds), true
}

// Percent is the availability rounded to a whole percent.
func (s *AvailabilityService) Percent(peerID string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[peerID]
	if !ok || rec.TotalSeconds == 0 {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromInt(rec.ConnectedSeconds * 100).
		Div(decimal.NewFromInt(rec.TotalSeconds)).
		Round(0), true
}

func (s *AvailabilityService) Snapshot() []models.AvailabilityRecord {
	s.mu.RLock()
	out := make([]models.AvailabilityRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PeerID < out[j].PeerID })
	return out
}

// Sample records the connection state of every peer with an active channel.
// A peer counts as connected when any of its channels is.
func (s *AvailabilityService) Sample(ctx context.Context) error {
	channels, err := s.client.ListPeerChannels(ctx)
	if err != nil {
		return fmt.Errorf("list peer channels: %w", err)
	}
	at := s.now()
	connected := make(map[string]bool)
	for _, ch := range channels {
		if !models.IsActiveChannelState(ch.State) || ch.PeerID == "" {
			continue
		}
		connected[ch.PeerID] = connected[ch.PeerID] || ch.PeerConnected
	}

	samples := make([]models.AvailabilitySample, 0, len(connected))
	for id, up := range connected {
		samples = append(samples, models.AvailabilitySample{PeerID: id, Connected: up, ObservedAt: at})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].PeerID < samples[j].PeerID })
	s.RecordBatch(samples)
	s.logger.Debugf(providers.TypeApp, "Recorded availability of %d peers", len(samples))
	return nil
}

// Load replaces the state with records, trimming each to the window.
// Invalid records are dropped.
func (s *AvailabilityService) Load(records []models.AvailabilityRecord) {
	s.mu.Lock()
	s.records = make(map[string]*models.AvailabilityRecord, len(records))
	for i := range records {
		rec := records[i]
		if !rec.Valid() {
			continue
		}
		s.trim(&rec)
		s.records[rec.PeerID] = &rec
	}
	tracked := len(s.records)
	s.mu.Unlock()
	s.metrics.SetTrackedPeers(tracked)
}

// Restore replaces the state with the persisted one. On error the state is
// left empty.
func (s *AvailabilityService) Restore() error {
	records, err := s.store.Load()
	if err != nil {
		s.Load(nil)
		return fmt.Errorf("load availability store: %w", err)
	}
	s.Load(records)
	s.logger.Infof(providers.TypeApp, "Restored availability of %d peers", len(records))
	return nil
}

func (s *AvailabilityService) Persist() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.store.Save(s.Snapshot())
}
