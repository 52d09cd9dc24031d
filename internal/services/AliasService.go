package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/providers"
	"summard/internal/structures"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/guregu/null/v5"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const aliasLookupParallelism = 4

type AliasServiceInterface interface {
	Resolve(peerID string) (string, bool)
	Entry(peerID string) (models.AliasEntry, bool)
	Track(peerIDs ...string)
	MissingFraction(peerIDs []string) float64
	RefreshPeers(ctx context.Context, peerIDs []string) ([]string, error)
	Refresh(ctx context.Context, force bool) (*AliasRefreshResult, error)
	EnsureWarm(ctx context.Context)
	Schedule() *AliasSchedule
}

type AliasRefreshResult struct {
	Peers           int           `json:"peers"`
	Looked          int           `json:"looked_up"`
	Unresolved      []string      `json:"unresolved"`
	MissingFraction float64       `json:"missing_fraction"`
	State           string        `json:"state"`
	Next            time.Duration `json:"next_refresh_ns"`
	Took            time.Duration `json:"took_ns"`
}

type AliasService struct {
	mu        sync.RWMutex
	entries   map[string]models.AliasEntry
	tracked   map[string]struct{}
	refreshed bool

	flight   singleflight.Group
	passes   singleflight.Group
	warming  atomic.Bool
	schedule *AliasSchedule
	maxAge   time.Duration

	client  lightning.Client
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewAliasService(conf *structures.Config, client lightning.Client, logger providers.Logger, metrics providers.MetricsProviderInterface) *AliasService {
	return &AliasService{
		entries:  make(map[string]models.AliasEntry),
		tracked:  make(map[string]struct{}),
		schedule: NewAliasSchedule(conf),
		maxAge:   conf.Alias.RefreshInterval,
		client:   client,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Resolve returns the cached alias without touching the node.
func (s *AliasService) Resolve(peerID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[peerID]
	if !ok || !e.Alias.Valid {
		return "", false
	}
	return e.Alias.String, true
}

func (s *AliasService) Entry(peerID string) (models.AliasEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[peerID]
	return e, ok
}

// Track adds peers seen outside the channel list, such as pay destinations,
// to the refresh population.
func (s *AliasService) Track(peerIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range peerIDs {
		if id != "" {
			s.tracked[id] = struct{}{}
		}
	}
}

// MissingFraction is the share of peerIDs never resolved or absent from
// gossip. Nodes known to gossip without an alias are not missing.
func (s *AliasService) MissingFraction(peerIDs []string) float64 {
	if len(peerIDs) == 0 {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	missing := 0
	for _, id := range peerIDs {
		if e, ok := s.entries[id]; !ok || e.Miss {
			missing++
		}
	}
	return float64(missing) / float64(len(peerIDs))
}

// RefreshPeers looks up peerIDs in gossip and returns those still without a
// node entry. Concurrent calls for the same set share one lookup, which
// finishes and commits even if the caller goes away.
func (s *AliasService) RefreshPeers(ctx context.Context, peerIDs []string) ([]string, error) {
	ids := normalizeIDs(peerIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(flightKey(ids), func() (any, error) {
		return s.lookup(detached, ids)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		unresolved, _ := res.Val.([]string)
		return unresolved, res.Err
	}
}

func (s *AliasService) lookup(ctx context.Context, ids []string) ([]string, error) {
	now := s.now()
	found := make([]*models.AliasEntry, len(ids))
	errs := make([]error, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(aliasLookupParallelism)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			nodes, err := s.client.ListNodes(ctx, id)
			if err != nil {
				errs[i] = err
				return nil
			}
			entry := &models.AliasEntry{PeerID: id, ResolvedAt: now}
			if len(nodes) == 0 {
				entry.Miss = true
			} else if a := nodes[0].Alias; a.Valid && a.String != "" {
				entry.Alias = null.StringFrom(a.String)
			}
			found[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	var unresolved []string
	failed := 0
	s.mu.Lock()
	for i, id := range ids {
		if errs[i] != nil {
			failed++
			unresolved = append(unresolved, id)
			continue
		}
		s.entries[id] = *found[i]
		if found[i].Miss {
			unresolved = append(unresolved, id)
		}
	}
	s.refreshed = true
	s.mu.Unlock()

	if failed > 0 {
		err := errors.Join(errs...)
		s.logger.Warnf(providers.TypeApp, "%d of %d alias lookups failed: %s", failed, len(ids), err)
		if failed == len(ids) {
			return unresolved, fmt.Errorf("alias lookups failed: %w", err)
		}
	}
	return unresolved, nil
}

const refreshFlightKey = "refresh"

// Refresh runs one pass over the channel peers and tracked peers. Without
// force only entries that are stale, missing or gossip misses are looked up.
// A call made while another pass is running joins that pass, whatever its
// force setting.
func (s *AliasService) Refresh(ctx context.Context, force bool) (*AliasRefreshResult, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.passes.DoChan(refreshFlightKey, func() (any, error) {
		return s.refresh(detached, force)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		result, _ := res.Val.(*AliasRefreshResult)
		return result, res.Err
	}
}

func (s *AliasService) refresh(ctx context.Context, force bool) (*AliasRefreshResult, error) {
	start := s.now()
	channels, err := s.client.ListPeerChannels(ctx)
	if err != nil {
		state, _ := s.schedule.Failed()
		s.metrics.ObserveAliasRefresh(s.now().Sub(start), 1, state == FastPoll)
		return nil, fmt.Errorf("list peer channels: %w", err)
	}

	population := s.population(channels)
	targets := population
	if !force {
		targets = s.needsLookup(population, start)
	}

	unresolved, err := s.RefreshPeers(ctx, targets)
	fraction := s.MissingFraction(population)
	var (
		state PollState
		next  time.Duration
	)
	if err != nil {
		state, next = s.schedule.Failed()
	} else {
		state, next = s.schedule.Observe(fraction)
	}
	took := s.now().Sub(start)
	s.metrics.ObserveAliasRefresh(took, fraction, state == FastPoll)
	s.logger.Infof(providers.TypeApp, "Alias refresh done in %s: %d peers, %d looked up, %.1f%% missing. Next refresh in %s (%s poll)",
		took, len(population), len(targets), fraction*100, next, state)

	return &AliasRefreshResult{
		Peers:           len(population),
		Looked:          len(targets),
		Unresolved:      unresolved,
		MissingFraction: fraction,
		State:           state.String(),
		Next:            next,
		Took:            took,
	}, err
}

// EnsureWarm starts a background refresh when the cache was never filled.
func (s *AliasService) EnsureWarm(ctx context.Context) {
	s.mu.RLock()
	refreshed := s.refreshed
	s.mu.RUnlock()
	if refreshed || !s.warming.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.warming.Store(false)
		if _, err := s.Refresh(context.WithoutCancel(ctx), false); err != nil {
			s.logger.Warnf(providers.TypeApp, "Initial alias refresh failed: %s", err)
		}
	}()
}

func (s *AliasService) Schedule() *AliasSchedule {
	return s.schedule
}

func (s *AliasService) population(channels []lightning.PeerChannel) []string {
	set := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		if ch.PeerID != "" {
			set[ch.PeerID] = struct{}{}
		}
	}
	s.mu.RLock()
	for id := range s.tracked {
		set[id] = struct{}{}
	}
	s.mu.RUnlock()
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *AliasService) needsLookup(ids []string, now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok || e.Miss || e.Stale(now, s.maxAge) {
			out = append(out, id)
		}
	}
	return out
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func flightKey(sortedIDs []string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(sortedIDs, ",")))
}

// displayAlias replaces non-ASCII runes when the output must stay ASCII.
func displayAlias(alias string, utf8 bool) string {
	if utf8 {
		return alias
	}
	return strings.Map(func(r rune) rune {
		if r > 127 {
			return '?'
		}
		return r
	}, alias)
}
