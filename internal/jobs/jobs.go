// Package jobs runs the periodic maintenance sweeps.
package jobs

import (
	"context"
	"time"

	"yoga-studio/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSchedule = "@every 15m"
	runTimeout      = 2 * time.Minute
)

// Task is one unit of periodic work. It returns how many rows it touched.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron  *cron.Cron
	tasks []Task
	m     *metrics.Metrics
	log   *logrus.Logger
}

func New(m *metrics.Metrics, log *logrus.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		tasks: tasks,
		m:     m,
		log:   log,
	}
}

// Schedule registers every task under spec.
func (s *Scheduler) Schedule(spec string) error {
	for _, t := range s.tasks {
		t := t
		if _, err := s.cron.AddFunc(spec, func() { s.run(context.Background(), t) }); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("tasks", len(s.tasks)).Info("Scheduler started")
}

// Stop waits for running tasks or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out")
	}
}

// RunAll executes every task once, e.g. at startup.
func (s *Scheduler) RunAll(ctx context.Context) {
	for _, t := range s.tasks {
		s.run(ctx, t)
	}
}

func (s *Scheduler) run(ctx context.Context, t Task) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	n, err := t.Run(ctx)
	s.m.Job(t.Name, err)

	entry := s.log.WithFields(logrus.Fields{"job": t.Name, "duration": time.Since(start).String()})
	if err != nil {
		entry.WithError(err).Error("Job failed")
		return
	}
	if n > 0 {
		entry.WithField("affected", n).Info("Job finished")
		return
	}
	entry.Debug("Job finished")
}
