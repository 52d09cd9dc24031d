package background

import (
	"context"
	"errors"
	"summard/internal/services"
	"summard/internal/structures"
	"summard/internal/testutil"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAvailability struct {
	services.AvailabilityServiceInterface
	samples    atomic.Int32
	persists   atomic.Int32
	restores   atomic.Int32
	persistErr error
}

func (s *stubAvailability) Sample(context.Context) error {
	s.samples.Add(1)
	return nil
}

func (s *stubAvailability) Persist() error {
	s.persists.Add(1)
	return s.persistErr
}

func (s *stubAvailability) Restore() error {
	s.restores.Add(1)
	return nil
}

type stubAlias struct {
	services.AliasServiceInterface
	schedule  *services.AliasSchedule
	refreshes atomic.Int32
}

func (s *stubAlias) Refresh(context.Context, bool) (*services.AliasRefreshResult, error) {
	s.refreshes.Add(1)
	return &services.AliasRefreshResult{}, nil
}

func (s *stubAlias) Schedule() *services.AliasSchedule { return s.schedule }

func newTestScheduler(fast time.Duration) (*Scheduler, *stubAvailability, *stubAlias) {
	conf := &structures.Config{
		Lightning:    structures.LightningConfig{Timeout: time.Second},
		Availability: structures.AvailabilityConfig{Interval: time.Second, Window: time.Hour},
		Alias: structures.AliasConfig{
			RefreshInterval:  time.Hour,
			FastInterval:     fast,
			FastMaxInterval:  fast,
			MissingThreshold: 0.05,
		},
	}
	avail := &stubAvailability{}
	alias := &stubAlias{schedule: services.NewAliasSchedule(conf)}
	s := NewScheduler(conf, &testutil.MockLogger{}, avail, alias).(*Scheduler)
	return s, avail, alias
}

func TestScheduler_RunsAliasLoop(t *testing.T) {
	s, _, alias := newTestScheduler(10 * time.Millisecond)
	s.Init()
	defer s.Stop()

	assert.Eventually(t, func() bool { return alias.refreshes.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_SamplesAvailability(t *testing.T) {
	s, avail, _ := newTestScheduler(time.Hour)
	s.Init()
	defer s.Stop()

	assert.Eventually(t, func() bool { return avail.samples.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_StopHaltsLoop(t *testing.T) {
	s, _, alias := newTestScheduler(10 * time.Millisecond)
	s.Init()
	require.Eventually(t, func() bool { return alias.refreshes.Load() >= 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	n := alias.refreshes.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, alias.refreshes.Load())
}

func TestScheduler_InitTwiceStartsOneLoop(t *testing.T) {
	s, _, alias := newTestScheduler(time.Hour)
	s.Init()
	s.Init()
	defer s.Stop()

	require.Eventually(t, func() bool { return alias.refreshes.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), alias.refreshes.Load())
}

func TestScheduler_WakesOnScheduleChange(t *testing.T) {
	s, _, alias := newTestScheduler(time.Hour)
	s.Init()
	defer s.Stop()
	require.Eventually(t, func() bool { return alias.refreshes.Load() >= 1 }, time.Second, 5*time.Millisecond)

	// Switching to normal polling re-arms the timer with the hour-long delay,
	// so no extra refresh happens.
	alias.schedule.Observe(0)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), alias.refreshes.Load())
	assert.Equal(t, time.Hour, alias.schedule.Next())
}

func TestScheduler_PersistAndRestore(t *testing.T) {
	s, avail, _ := newTestScheduler(time.Hour)

	require.NoError(t, s.Restore())
	require.NoError(t, s.Persist())
	assert.Equal(t, int32(1), avail.restores.Load())
	assert.Equal(t, int32(1), avail.persists.Load())

	avail.persistErr = errors.New("disk full")
	assert.ErrorContains(t, s.Persist(), "disk full")
}
