package background

import (
	"context"
	"summard/internal/background/interfaces"
	"summard/internal/providers"
	"summard/internal/services"
	"summard/internal/structures"
	"sync"
	"time"

	"github.com/roylee0704/gron"
	"go.uber.org/atomic"
)

// Scheduler drives the periodic work: availability sampling on a fixed
// cadence and alias refreshes on the adaptive alias schedule.
type Scheduler struct {
	config       *structures.Config
	logger       providers.Logger
	availability services.AvailabilityServiceInterface
	alias        services.AliasServiceInterface
	cron         *gron.Cron
	opsMu        sync.Mutex

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func (s *Scheduler) Init() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(s.config.Availability.Interval), func() {
		s.sampleAvailability(ctx)
	})
	s.cron.Start()

	go s.runAliasLoop(ctx)
}

func (s *Scheduler) sampleAvailability(ctx context.Context) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, s.config.Lightning.Timeout)
	defer cancel()
	if err := s.availability.Sample(sctx); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while sampling availability: %s", err)
	}
}

func (s *Scheduler) runAliasLoop(ctx context.Context) {
	defer close(s.done)

	s.refreshAliases(ctx)
	schedule := s.alias.Schedule()
	timer := time.NewTimer(schedule.Next())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-schedule.Changed():
			timer.Reset(schedule.Next())
		case <-timer.C:
			s.refreshAliases(ctx)
			timer.Reset(schedule.Next())
		}
	}
}

func (s *Scheduler) refreshAliases(ctx context.Context) {
	res, err := s.alias.Refresh(ctx, false)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Errorf(providers.TypeApp, "Error while refreshing aliases: %s", err)
		}
		return
	}
	s.logger.Debugf(providers.TypeApp, "Next alias refresh in %s (%s)", res.Next, res.State)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.running.CompareAndSwap(true, false) {
		s.cancel()
		<-s.done
	}
}

func (s *Scheduler) Restore() error {
	return s.availability.Restore()
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting availability to file...")
	if err := s.availability.Persist(); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, availability services.AvailabilityServiceInterface, alias services.AliasServiceInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:       config,
		logger:       logger,
		availability: availability,
		alias:        alias,
	}
}
