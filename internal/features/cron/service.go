package cron_feature

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrJobNotFound = errors.New("job not found")

type CronService interface {
	InitializeScheduler(ctx context.Context) error
	StopScheduler() error
	RegisterJob(job Job) error
	UnregisterJob(name string) error
	ExecuteJob(ctx context.Context, name string) error
	ListJobs() []JobStatus
}

type registeredJob struct {
	job     Job
	entryID cron.EntryID
	status  JobStatus
}

type CronServiceImpl struct {
	logger *zap.Logger

	scheduler *cron.Cron
	jobs      map[string]*registeredJob
	mu        sync.RWMutex
}

func NewCronService(logger *zap.Logger) CronService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronServiceImpl{
		logger: logger,
		jobs:   make(map[string]*registeredJob),
	}
}

func scheduleFor(interval time.Duration) string {
	return fmt.Sprintf("@every %s", interval)
}

func (s *CronServiceImpl) InitializeScheduler(ctx context.Context) error {
	s.logger.Info("Initializing cron scheduler...")
	cronLog := cron.PrintfLogger(zap.NewStdLog(s.logger))
	scheduler := cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	))

	s.mu.Lock()
	s.scheduler = scheduler
	var immediate []Job
	for name, rj := range s.jobs {
		if err := s.schedule(rj); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to schedule job %s: %w", name, err)
		}
		if rj.job.RunImmediately {
			immediate = append(immediate, rj.job)
		}
	}
	s.mu.Unlock()

	scheduler.Start()
	for _, job := range immediate {
		go s.execute(context.Background(), job)
	}
	return nil
}

func (s *CronServiceImpl) StopScheduler() error {
	s.mu.RLock()
	scheduler := s.scheduler
	s.mu.RUnlock()

	if scheduler != nil {
		ctx := scheduler.Stop()
		<-ctx.Done()
	}
	return nil
}

func (s *CronServiceImpl) RegisterJob(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[job.Name]; ok && s.scheduler != nil {
		s.scheduler.Remove(old.entryID)
	}
	rj := &registeredJob{job: job, status: JobStatus{Name: job.Name, Schedule: scheduleFor(job.Interval)}}
	s.jobs[job.Name] = rj

	// jobs registered before InitializeScheduler are scheduled there
	if s.scheduler == nil {
		return nil
	}
	return s.schedule(rj)
}

// schedule must be called with s.mu held.
func (s *CronServiceImpl) schedule(rj *registeredJob) error {
	job := rj.job
	entryID, err := s.scheduler.AddFunc(rj.status.Schedule, func() {
		s.execute(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to scheduler: %w", err)
	}
	rj.entryID = entryID
	return nil
}

func (s *CronServiceImpl) UnregisterJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rj, ok := s.jobs[name]
	if !ok {
		return ErrJobNotFound
	}
	if s.scheduler != nil {
		s.scheduler.Remove(rj.entryID)
	}
	delete(s.jobs, name)
	return nil
}

func (s *CronServiceImpl) ExecuteJob(ctx context.Context, name string) error {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.execute(ctx, rj.job)
}

func (s *CronServiceImpl) ListJobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, rj := range s.jobs {
		status := rj.status
		if s.scheduler != nil {
			if next := s.scheduler.Entry(rj.entryID).Next; !next.IsZero() {
				status.NextRun = &next
			}
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *CronServiceImpl) execute(ctx context.Context, job Job) error {
	s.setStatus(job.Name, func(st *JobStatus) { st.Running = true })

	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)

	s.setStatus(job.Name, func(st *JobStatus) {
		st.Running = false
		st.LastRun = &start
		st.Duration = duration.Milliseconds()
		st.LastError = ""
		if err != nil {
			st.LastError = err.Error()
		}
	})

	if err != nil {
		s.logger.Error("Cron job failed", zap.String("job", job.Name), zap.Duration("duration", duration), zap.Error(err))
		return err
	}
	s.logger.Info("Cron job finished", zap.String("job", job.Name), zap.Duration("duration", duration))
	return nil
}

func (s *CronServiceImpl) setStatus(name string, update func(*JobStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rj, ok := s.jobs[name]; ok {
		update(&rj.status)
	}
}
