package delayed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler runs a sweep on a fixed interval.
type Scheduler struct {
	detector *Detector
	interval time.Duration
	log      logrus.FieldLogger
	onSweep  func(*SweepResult)

	startOnce sync.Once
	started   atomic.Bool
	stopChan  chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewScheduler creates a Scheduler. onSweep, when set, receives every
// result that promoted at least one task.
func NewScheduler(detector *Detector, interval time.Duration, log logrus.FieldLogger, onSweep func(*SweepResult)) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		detector: detector,
		interval: interval,
		log:      log,
		onSweep:  onSweep,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval until Stop is
// called or ctx ends. A non-positive interval disables the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("delayed sweep scheduler disabled")
		return
	}
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.loop(ctx)
	})
}

// Stop ends the loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	res, err := s.detector.Run(ctx, SystemActor)
	if err != nil {
		s.log.WithError(err).Error("scheduled delayed sweep failed")
		return
	}
	if s.onSweep != nil && res.PromotedCount > 0 {
		s.onSweep(res)
	}
}
