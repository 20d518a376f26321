package osint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SourceStatus describes a configured feed.
type SourceStatus struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
}

// Status is a snapshot of the scheduler state.
type Status struct {
	IsRunning  bool           `json:"isRunning"`
	Schedule   string         `json:"schedule"`
	LastFetch  *time.Time     `json:"lastFetchTimestamp"`
	FetchCount int            `json:"fetchCount"`
	Sources    []SourceStatus `json:"sources"`
}

// Scheduler runs ingestion cycles on a cron schedule and on demand. One
// instance is owned by the process entry point.
type Scheduler struct {
	pipeline *Pipeline
	schedule string
	logger   *zap.Logger

	mu         sync.Mutex
	cron       *cron.Cron
	stopped    []context.Context
	running    bool
	lastFetch  *time.Time
	fetchCount int
}

// NewScheduler creates a stopped scheduler. The schedule uses the standard
// five-field cron syntax.
func NewScheduler(p *Pipeline, schedule string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		pipeline: p,
		schedule: schedule,
		logger:   logger,
	}
}

// Start begins scheduled cycles. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Info("OSINT scheduler is already running")
		return nil
	}

	cl := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	if _, err := c.AddFunc(s.schedule, func() { s.RunCycle(context.Background()) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.cron = c
	s.running = true

	s.logger.Info("OSINT scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop prevents future scheduled cycles. A cycle already in flight runs to
// completion; use Wait to block on it. Stop is safe to call in any state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		pending := s.stopped[:0]
		for _, done := range s.stopped {
			if done.Err() == nil {
				pending = append(pending, done)
			}
		}
		s.stopped = append(pending, s.cron.Stop())
		s.cron = nil
	}
	if s.running {
		s.running = false
		s.logger.Info("OSINT scheduler stopped")
	}
}

// Wait blocks until every scheduled cycle in flight at a Stop has returned,
// or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	stopped := append([]context.Context(nil), s.stopped...)
	s.mu.Unlock()

	for _, done := range stopped {
		select {
		case <-done.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// RunCycle runs one cycle synchronously and records it in the status.
func (s *Scheduler) RunCycle(ctx context.Context) CycleResult {
	result := s.pipeline.RunCycle(ctx)

	s.mu.Lock()
	finished := result.FinishedAt
	s.lastFetch = &finished
	s.fetchCount++
	s.mu.Unlock()

	return result
}

// Status returns the current scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		IsRunning:  s.running,
		Schedule:   s.schedule,
		FetchCount: s.fetchCount,
		Sources:    s.Sources(),
	}
	if s.lastFetch != nil {
		t := *s.lastFetch
		st.LastFetch = &t
	}
	return st
}

// Sources lists the configured feeds.
func (s *Scheduler) Sources() []SourceStatus {
	out := make([]SourceStatus, 0, len(s.pipeline.sources))
	for _, src := range s.pipeline.sources {
		out = append(out, SourceStatus{
			Key:     src.Key(),
			Name:    src.Name(),
			Enabled: src.Enabled(),
			URL:     src.URL(),
		})
	}
	return out
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
