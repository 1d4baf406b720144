package syncqueue

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/intakeworks/offlinekit/observe"
)

// Scheduler defaults.
const (
	defaultInitialDelay = 15 * time.Second
	defaultMaxDelay     = 10 * time.Minute
	defaultMultiplier   = 2.0
	defaultMaxAttempts  = 6
)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Registry resolves tags to handlers. Required.
	Registry *Registry

	// InitialDelay is the wait after the first failed replay. Default: 15s.
	InitialDelay time.Duration

	// MaxDelay caps the backoff between replays. Default: 10m.
	MaxDelay time.Duration

	// Multiplier grows the delay after each failure. Default: 2.0.
	Multiplier float64

	// MaxAttempts bounds replays per scheduled tag; after that the tag is
	// dropped. Default: 6.
	MaxAttempts int

	// Logger receives replay outcomes. Optional.
	Logger observe.Logger
}

// Scheduler retries failed sync tags with exponential backoff. It stands in
// for the platform's obligation to re-fire a sync event whose handler
// failed, and lets the host hint at restored connectivity through Kick.
//
// Contract:
//   - Concurrency: Schedule, Kick, and Pending are safe to call from any
//     goroutine while Run is looping.
//   - Context: Run blocks until ctx is done and returns ctx.Err().
//   - Errors: replay failures are retried, then dropped after MaxAttempts;
//     they are reported through the logger, never through Run.
type Scheduler struct {
	registry     *Registry
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	maxAttempts  int
	logger       observe.Logger

	mu      sync.Mutex
	pending map[string]*pendingTag
	wake    chan struct{}
}

type pendingTag struct {
	attempts int
	next     time.Time
}

// NewScheduler validates cfg and returns an idle scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("syncqueue: scheduler requires a registry")
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = defaultMultiplier
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Scheduler{
		registry:     cfg.Registry,
		initialDelay: cfg.InitialDelay,
		maxDelay:     cfg.MaxDelay,
		multiplier:   cfg.Multiplier,
		maxAttempts:  cfg.MaxAttempts,
		logger:       cfg.Logger.WithComponent("scheduler"),
		pending:      make(map[string]*pendingTag),
		wake:         make(chan struct{}, 1),
	}, nil
}

// Schedule marks tag for replay on the next loop pass. Scheduling an
// already-pending tag keeps its attempt count and deadline.
func (s *Scheduler) Schedule(tag string) {
	s.mu.Lock()
	if _, ok := s.pending[tag]; !ok {
		s.pending[tag] = &pendingTag{next: time.Now()}
	}
	s.mu.Unlock()
	s.signal()
}

// Kick makes every pending tag due immediately. Hosts call it when
// connectivity returns so backlogs drain without waiting out the backoff.
func (s *Scheduler) Kick() {
	now := time.Now()
	s.mu.Lock()
	for _, p := range s.pending {
		p.next = now
	}
	s.mu.Unlock()
	s.signal()
}

// Pending returns the tags awaiting replay, sorted.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := make([]string, 0, len(s.pending))
	for tag := range s.pending {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Run loops until ctx is done, replaying due tags as their deadlines pass.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		var timer *time.Timer
		var due <-chan time.Time
		if wait, ok := s.nextWait(); ok {
			timer = time.NewTimer(wait)
			due = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-due:
		}

		s.replayDue(ctx)
	}
}

// signal wakes the run loop without blocking.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// nextWait returns the time until the earliest pending deadline. ok is
// false when nothing is pending, in which case the loop sleeps until woken.
func (s *Scheduler) nextWait() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earliest time.Time
	for _, p := range s.pending {
		if earliest.IsZero() || p.next.Before(earliest) {
			earliest = p.next
		}
	}
	if earliest.IsZero() {
		return 0, false
	}
	wait := time.Until(earliest)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

func (s *Scheduler) replayDue(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	var tags []string
	for tag, p := range s.pending {
		if !p.next.After(now) {
			tags = append(tags, tag)
		}
	}
	s.mu.Unlock()
	sort.Strings(tags)

	for _, tag := range tags {
		if ctx.Err() != nil {
			return
		}
		err := s.registry.Dispatch(ctx, tag)
		s.settle(ctx, tag, err)
	}
}

func (s *Scheduler) settle(ctx context.Context, tag string, err error) {
	s.mu.Lock()
	p, ok := s.pending[tag]
	if !ok {
		s.mu.Unlock()
		return
	}

	if err == nil {
		delete(s.pending, tag)
		s.mu.Unlock()
		s.logger.Info(ctx, "sync tag drained", observe.Field{Key: "tag", Value: tag})
		return
	}

	p.attempts++
	if p.attempts >= s.maxAttempts {
		delete(s.pending, tag)
		s.mu.Unlock()
		s.logger.Error(ctx, "giving up on sync tag",
			observe.Field{Key: "tag", Value: tag},
			observe.Field{Key: "attempts", Value: p.attempts},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}

	delay := s.backoff(p.attempts)
	p.next = time.Now().Add(delay)
	s.mu.Unlock()
	s.logger.Warn(ctx, "sync tag replay failed, backing off",
		observe.Field{Key: "tag", Value: tag},
		observe.Field{Key: "attempt", Value: p.attempts},
		observe.Field{Key: "retry_in", Value: delay.String()},
		observe.Field{Key: "error", Value: err.Error()},
	)
}

// backoff returns the exponential delay before the next attempt, capped at
// MaxDelay, with up to 25% jitter to spread retries out.
func (s *Scheduler) backoff(attempt int) time.Duration {
	multiplier := math.Pow(s.multiplier, float64(attempt-1))
	delay := time.Duration(float64(s.initialDelay) * multiplier)
	if delay > s.maxDelay {
		delay = s.maxDelay
	}
	if jitter := int64(delay / 4); jitter > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(jitter))
	}
	return delay
}
