// Package schedule runs named recurring tasks on cron expressions.
//
// Tasks registered WithoutOverlapping are guarded by a cross-process
// mutex: when a firing comes due while a previous run still holds the
// lock, the new firing is skipped entirely rather than queued behind it.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/toporia/async/cache"
	"github.com/toporia/async/lock"
)

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// defaultParseCacheSize bounds the parsed-expression cache. Schedules in
// practice reuse a handful of expressions, so a small cache suffices.
const defaultParseCacheSize = 64

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithGuard sets the execution guard used by tasks registered
// WithoutOverlapping. Without a guard such registrations fail.
func WithGuard(g *lock.Guard) Option {
	return func(s *Scheduler) { s.guard = g }
}

// WithTickInterval sets how often the scheduler checks for due tasks.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithParseCacheSize bounds the cache of parsed cron expressions.
func WithParseCacheSize(n int) Option {
	return func(s *Scheduler) { s.parsed = cache.NewLRU[string, cronlib.Schedule](n) }
}

// Scheduler fires registered tasks on a tick loop.
type Scheduler struct {
	guard        *lock.Guard
	logger       *slog.Logger
	tickInterval time.Duration

	// parsed caches compiled cron expressions. The cache is owned by the
	// scheduler, bounded, and clearable; it is never shared process-wide.
	parsed *cache.LRU[string, cronlib.Schedule]

	mu      sync.Mutex
	tasks   map[string]*Task
	running bool
	stopCh  chan struct{}

	wg sync.WaitGroup
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:       slog.Default(),
		tickInterval: time.Second,
		parsed:       cache.NewLRU[string, cronlib.Schedule](defaultParseCacheSize),
		tasks:        make(map[string]*Task),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a named task firing per the cron expression. The
// expression is validated immediately; registration fails on a bad
// expression, a duplicate name, or WithoutOverlapping without a guard.
func (s *Scheduler) Register(name, expr string, fn Func, opts ...TaskOption) (*Task, error) {
	sched, err := s.parseExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("async/schedule: parse %q: %w", expr, err)
	}

	t := &Task{
		name: name,
		expr: expr,
		run:  fn,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.withoutOverlapping && s.guard == nil {
		return nil, fmt.Errorf("async/schedule: task %s requires an execution guard", name)
	}
	t.setNextRun(sched.Next(time.Now().UTC()))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[name]; exists {
		return nil, fmt.Errorf("async/schedule: task %s already registered", name)
	}
	s.tasks[name] = t
	return t, nil
}

// Task returns the registered task by name, or nil.
func (s *Scheduler) Task(name string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[name]
}

// Start launches the tick loop. It returns immediately.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.tickLoop()

	s.logger.Info("scheduler started",
		slog.Int("tasks", len(s.tasks)),
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop signals the tick loop to stop and waits for in-flight firings.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// ClearParseCache drops all cached compiled expressions.
func (s *Scheduler) ClearParseCache() {
	s.parsed.Clear()
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	now := time.Now().UTC()

	s.mu.Lock()
	due := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		sched, err := s.parseExpr(t.expr)
		if err != nil {
			// Validated at registration; a parse failure here means the
			// cache was cleared and the library changed behavior.
			s.logger.Error("parse schedule error",
				slog.String("task", t.name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if t.due(now, sched.Next(now)) {
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		s.wg.Add(1)
		go func(t *Task) {
			defer s.wg.Done()
			s.fire(t, now)
		}(t)
	}
}

func (s *Scheduler) fire(t *Task, now time.Time) {
	ctx := context.Background()

	if t.withoutOverlapping {
		won, err := s.guard.Create(ctx, t.name, t.lockTTLMinutes)
		if err != nil {
			s.logger.Error("acquire task lock error",
				slog.String("task", t.name),
				slog.String("error", err.Error()),
			)
			return
		}
		if !won {
			s.logger.Debug("task skipped, previous run still in flight",
				slog.String("task", t.name),
			)
			return
		}
		defer func() {
			if _, relErr := s.guard.Release(ctx, t.name); relErr != nil {
				s.logger.Error("release task lock error",
					slog.String("task", t.name),
					slog.String("error", relErr.Error()),
				)
			}
		}()
	}

	if err := t.run(ctx); err != nil {
		s.logger.Error("scheduled task failed",
			slog.String("task", t.name),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("scheduled task fired",
		slog.String("task", t.name),
		slog.Time("fired_at", now),
	)
}

func (s *Scheduler) parseExpr(expr string) (cronlib.Schedule, error) {
	if sched, ok := s.parsed.Get(expr); ok {
		return sched, nil
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, err
	}
	s.parsed.Put(expr, sched)
	return sched, nil
}
