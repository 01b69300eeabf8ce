// Package scheduler runs the periodic background jobs (fiscal status sync,
// bill reminders, housekeeping) on top of robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/pdv/backend/internal/infrastructure/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is the unit of work of a job
type Task func(ctx context.Context) error

// JobStatus is a snapshot of a registered job
type JobStatus struct {
	Name      string        `json:"name"`
	Schedule  string        `json:"schedule"`
	Running   bool          `json:"running"`
	LastRun   *time.Time    `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Runs      int64         `json:"runs"`
	NextRun   *time.Time    `json:"next_run,omitempty"`
}

type job struct {
	name     string
	schedule string
	task     Task
	entry    cron.EntryID
	running  atomic.Bool

	mu       sync.Mutex
	lastRun  time.Time
	lastErr  error
	duration time.Duration
	runs     int64
}

// Scheduler manages the cron jobs
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	jobs      map[string]*job
	isRunning bool
}

// New creates a scheduler using the configured timezone and job timeout
func New(cfg config.SchedulerConfig, logger *zap.Logger) (*Scheduler, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, cfg.Timezone, err)
		}
		loc = l
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	cl := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*job),
	}, nil
}

// Add registers a task under a standard 5-field cron spec or a descriptor
// such as "@every 5m".
func (s *Scheduler) Add(name, spec string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	j := &job{name: name, schedule: spec, task: task}
	id, err := s.cron.AddFunc(spec, func() { _ = s.run(j) })
	if err != nil {
		return fmt.Errorf("%w: job %s: %v", ErrInvalidConfig, name, err)
	}
	j.entry = id
	s.jobs[name] = j
	s.logger.Info("job registered", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// RunNow executes a job immediately on the caller's goroutine
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.run(j)
}

func (s *Scheduler) run(j *job) (err error) {
	if !j.running.CompareAndSwap(false, true) {
		s.logger.Warn("job skipped, previous run still in progress", zap.String("job", j.name))
		return ErrJobRunning
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	log := s.logger.With(zap.String("job", j.name))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
		elapsed := time.Since(start)

		j.mu.Lock()
		j.lastRun, j.lastErr, j.duration = start, err, elapsed
		j.runs++
		j.mu.Unlock()

		if err != nil {
			log.Error("job failed", zap.Duration("duration", elapsed), zap.Error(err))
			return
		}
		log.Debug("job finished", zap.Duration("duration", elapsed))
	}()

	return j.task(ctx)
}

// Status lists the registered jobs sorted by name
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := JobStatus{Name: j.name, Schedule: j.schedule, Running: j.running.Load()}
		j.mu.Lock()
		if !j.lastRun.IsZero() {
			t := j.lastRun
			st.LastRun = &t
		}
		if j.lastErr != nil {
			st.LastError = j.lastErr.Error()
		}
		st.Duration, st.Runs = j.duration, j.runs
		j.mu.Unlock()
		if next := s.cron.Entry(j.entry).Next; !next.IsZero() {
			st.NextRun = &next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Start starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops scheduling new runs, cancels the running ones and waits for
// them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		s.cancel()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger. Routine cron messages go to debug.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
