package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AngelCh415/lp-report/internal/ingest"
)

type Job interface {
	Run(ctx context.Context) error
	Name() string
}

type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// cronLogger adapta slog a la interfaz de logging de cron.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, kv ...any) { l.log.Debug(msg, kv...) }
func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error(msg, append(kv, slog.String("err", err.Error()))...)
}

// New crea el scheduler; timeout acota cada corrida (0 = sin límite).
func New(log *slog.Logger, timeout time.Duration) *Scheduler {
	log = log.With(slog.String("component", "scheduler"))
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", slog.Int("jobs", len(s.cron.Entries())))
}

// Stop cancela la corrida en curso y espera a que termine.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// AddJob registra job; un schedule vacío u "off" lo deja deshabilitado.
func (s *Scheduler) AddJob(schedule string, job Job) (bool, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" || strings.EqualFold(schedule, "off") {
		s.log.Info("job disabled", slog.String("job", job.Name()))
		return false, nil
	}
	_, err := s.cron.AddFunc(schedule, func() { s.run(job) })
	if err != nil {
		return false, err
	}
	s.log.Info("job registered", slog.String("job", job.Name()), slog.String("schedule", schedule))
	return true, nil
}

// RunNow ejecuta job fuera del calendario.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info("running job immediately", slog.String("job", job.Name()))
	return s.run(job)
}

func (s *Scheduler) run(job Job) error {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("job failed", slog.String("job", job.Name()), slog.String("err", err.Error()))
		return err
	}
	s.log.Debug("job completed", slog.String("job", job.Name()), slog.Duration("took", time.Since(start)))
	return nil
}

// Refresher es lo que necesita RefreshJob; lo implementa ingest.ETL.
type Refresher interface {
	Run(ctx context.Context, force bool) (ingest.Result, error)
}

// RefreshJob revalida el dataset contra las planillas, salteando la cache.
type RefreshJob struct{ ETL Refresher }

func (RefreshJob) Name() string { return "refresh_dataset" }

func (j RefreshJob) Run(ctx context.Context) error {
	_, err := j.ETL.Run(ctx, true)
	return err
}
