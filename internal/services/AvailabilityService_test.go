package services

import (
	"context"
	"errors"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAvailability(store *testutil.MockStore, client *testutil.MockLightning) (*AvailabilityService, *testutil.MockLogger) {
	logger := &testutil.MockLogger{}
	if store == nil {
		store = &testutil.MockStore{}
	}
	if client == nil {
		client = &testutil.MockLightning{}
	}
	return NewAvailabilityService(testConfig(), store, client, logger, &testutil.MockMetrics{}), logger
}

func sample(peer string, connected bool, at time.Time) models.AvailabilitySample {
	return models.AvailabilitySample{PeerID: peer, Connected: connected, ObservedAt: at}
}

func record(t *testing.T, s *AvailabilityService, peer string) models.AvailabilityRecord {
	t.Helper()
	for _, r := range s.Snapshot() {
		if r.PeerID == peer {
			return r
		}
	}
	t.Fatalf("no record for %s", peer)
	return models.AvailabilityRecord{}
}

func TestAvailability_FirstSampleIsUnknown(t *testing.T) {
	s, _ := newAvailability(nil, nil)
	s.Record(sample("a", true, base))

	_, ok := s.Ratio("a")
	assert.False(t, ok)
	_, ok = s.Percent("a")
	assert.False(t, ok)

	rec := record(t, s, "a")
	assert.Equal(t, int64(0), rec.TotalSeconds)
	assert.Equal(t, base.Unix(), rec.WindowStart)
	assert.Equal(t, base.Unix(), rec.WindowEnd)
}

func TestAvailability_UnknownPeer(t *testing.T) {
	s, _ := newAvailability(nil, nil)
	_, ok := s.Ratio("nobody")
	assert.False(t, ok)
}

func TestAvailability_CreditsElapsedWithLaterState(t *testing.T) {
	s, _ := newAvailability(nil, nil)
	s.Record(sample("a", true, base))
	s.Record(sample("a", true, base.Add(300*time.Second)))
	s.Record(sample("a", false, base.Add(600*time.Second)))

	ratio, ok := s.Ratio("a")
	require.True(t, ok)
	assert.InDelta(t, 0.5, ratio, 1e-9)

	pct, ok := s.Percent("a")
	require.True(t, ok)
	assert.Equal(t, "50", pct.String())
}

func TestAvailability_IgnoresDuplicateAndOlderSamples(t *testing.T) {
	s, _ := newAvailability(nil, nil)
	s.Record(sample("a", true, base))
	s.Record(sample("a", true, base.Add(300*time.Second)))
	before := record(t, s, "a")

	s.Record(sample("a", false, base.Add(300*time.Second)))
	s.Record(sample("a", false, base.Add(100*time.Second)))

	assert.Equal(t, before, record(t, s, "a"))
}

func TestAvailability_CapsGapAtMaxGap(t *testing.T) {
	s, _ := newAvailability(nil, nil)
	s.Record(sample("a", true, base))
	s.Record(sample("a", true, base.Add(3*time.Hour/4)))

	rec := record(t, s, "a")
	assert.Equal(t, int64(600), rec.TotalSeconds, "default max gap is two intervals")
	assert.Equal(t, int64(600), rec.ConnectedSeconds)
}

func TestAvailability_WindowInvariants(t *testing.T) {
	s, _ := newAvailability(nil, nil)
	at := base
	for i := 0; i < 40; i++ {
		s.Record(sample("a", i%3 != 0, at))
		at = at.Add(5 * time.Minute)

		rec := record(t, s, "a")
		assert.LessOrEqual(t, rec.ConnectedSeconds, rec.TotalSeconds)
		assert.GreaterOrEqual(t, rec.ConnectedSeconds, int64(0))
		assert.LessOrEqual(t, rec.TotalSeconds, int64(3600))
		assert.Equal(t, rec.WindowEnd-rec.TotalSeconds, rec.WindowStart)
	}
	assert.Equal(t, int64(3600), record(t, s, "a").TotalSeconds)
}

func TestAvailability_TrimDecaysProportionally(t *testing.T) {
	s, _ := newAvailability(nil, nil)
	s.Load([]models.AvailabilityRecord{{
		PeerID: "a", WindowStart: base.Unix() - 3600, WindowEnd: base.Unix(),
		ConnectedSeconds: 1800, TotalSeconds: 3600,
	}})
	s.Record(sample("a", true, base.Add(600*time.Second)))

	rec := record(t, s, "a")
	assert.Equal(t, int64(3600), rec.TotalSeconds)
	// 1800+600 connected out of 4200, scaled back to 3600.
	assert.Equal(t, int64(2058), rec.ConnectedSeconds)
}

func TestAvailability_EvictsPeersOutsideWindow(t *testing.T) {
	s, _ := newAvailability(nil, nil)
	s.RecordBatch([]models.AvailabilitySample{sample("old", true, base), sample("new", true, base)})
	s.Record(sample("new", true, base.Add(2*time.Hour)))

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "new", snap[0].PeerID)
}

func TestAvailability_PersistsAfterEveryBatch(t *testing.T) {
	store := &testutil.MockStore{}
	s, _ := newAvailability(store, nil)

	s.RecordBatch([]models.AvailabilitySample{sample("a", true, base), sample("b", false, base)})
	s.RecordBatch([]models.AvailabilitySample{sample("a", true, base.Add(time.Minute))})

	assert.Equal(t, 2, store.Saves)
	assert.Len(t, store.Records, 2)
}

func TestAvailability_PersistFailureIsLogged(t *testing.T) {
	store := &testutil.MockStore{SaveErr: errors.New("disk full")}
	s, logger := newAvailability(store, nil)

	s.Record(sample("a", true, base))
	assert.Equal(t, 1, logger.Count("error"))
	assert.Len(t, s.Snapshot(), 1)
}

func TestAvailability_RestoreTrimsToWindow(t *testing.T) {
	store := &testutil.MockStore{Records: []models.AvailabilityRecord{{
		PeerID: "a", WindowStart: base.Unix() - 7200, WindowEnd: base.Unix(),
		ConnectedSeconds: 7200, TotalSeconds: 7200,
	}}}
	s, _ := newAvailability(store, nil)
	require.NoError(t, s.Restore())

	rec := record(t, s, "a")
	assert.Equal(t, int64(3600), rec.TotalSeconds)
	assert.Equal(t, int64(3600), rec.ConnectedSeconds)
	assert.Equal(t, base.Unix()-3600, rec.WindowStart)
}

func TestAvailability_RestoreErrorLeavesEmptyState(t *testing.T) {
	store := &testutil.MockStore{LoadErr: errors.New("corrupt")}
	s, _ := newAvailability(store, nil)
	s.Record(sample("a", true, base))

	assert.Error(t, s.Restore())
	assert.Empty(t, s.Snapshot())
}

func TestAvailability_RoundTripThroughStore(t *testing.T) {
	store := &testutil.MockStore{}
	s, _ := newAvailability(store, nil)
	s.Record(sample("a", true, base))
	s.Record(sample("a", false, base.Add(5*time.Minute)))
	want := s.Snapshot()

	restored, _ := newAvailability(store, nil)
	require.NoError(t, restored.Restore())
	assert.Equal(t, want, restored.Snapshot())
}

func TestAvailability_SampleUsesActiveChannels(t *testing.T) {
	client := &testutil.MockLightning{
		ListPeerChannelsFn: func(context.Context) ([]lightning.PeerChannel, error) {
			return []lightning.PeerChannel{
				{PeerID: "a", State: models.ChannelStateNormal, PeerConnected: false},
				{PeerID: "a", State: models.ChannelStateNormal, PeerConnected: true},
				{PeerID: "b", State: "ONCHAIN", PeerConnected: true},
				{PeerID: "c", State: "CHANNELD_AWAITING_LOCKIN", PeerConnected: false},
			}, nil
		},
	}
	s, _ := newAvailability(nil, client)
	s.now = func() time.Time { return base }
	require.NoError(t, s.Sample(context.Background()))

	s.now = func() time.Time { return base.Add(5 * time.Minute) }
	require.NoError(t, s.Sample(context.Background()))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	ra, _ := s.Ratio("a")
	assert.Equal(t, 1.0, ra)
	rc, _ := s.Ratio("c")
	assert.Equal(t, 0.0, rc)
}

func TestAvailability_SampleError(t *testing.T) {
	client := &testutil.MockLightning{
		ListPeerChannelsFn: func(context.Context) ([]lightning.PeerChannel, error) {
			return nil, errors.New("rpc down")
		},
	}
	s, _ := newAvailability(nil, client)
	assert.Error(t, s.Sample(context.Background()))
	assert.Empty(t, s.Snapshot())
}
