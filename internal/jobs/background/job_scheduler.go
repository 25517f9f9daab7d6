package background

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"warnengine/internal/config"
	"warnengine/internal/jobs"
	"warnengine/internal/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	JobEvaluateRealtime = "evaluate-realtime"
	JobEvaluateHourly   = "evaluate-hourly"
	JobEvaluateDaily    = "evaluate-daily"
	JobEscalationSweep  = "escalation-sweep"
	JobDelivery         = "notification-delivery"
	JobArchive          = "failed-delivery-archive"
)

// Evaluator runs one detection pass for a check frequency.
type Evaluator interface {
	Run(ctx context.Context, freq models.CheckFrequency) (*jobs.EvaluationSummary, error)
}

type Escalator interface {
	Run(ctx context.Context) (int, error)
}

type Deliverer interface {
	ProcessBatch(ctx context.Context) (*jobs.DeliveryResult, error)
}

type Archiver interface {
	Run(ctx context.Context) (int, error)
}

// JobInfo describes one registered job.
type JobInfo struct {
	Name    string    `json:"name"`
	LastRun time.Time `json:"last_run,omitempty"`
	NextRun time.Time `json:"next_run,omitempty"`
}

// JobScheduler drives the periodic evaluation, escalation, delivery and
// archiving jobs. Every job runs in singleton mode so a slow pass is never
// overlapped by the next tick.
type JobScheduler struct {
	scheduler gocron.Scheduler
	evaluator Evaluator
	escalator Escalator
	deliverer Deliverer
	archiver  Archiver
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler registers the jobs. archiver may be nil when archiving is off.
func NewJobScheduler(cfg config.SchedulerConfig, evaluator Evaluator, escalator Escalator, deliverer Deliverer, archiver Archiver,
	clock clockwork.Clock, logger *zap.Logger) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler: scheduler,
		evaluator: evaluator,
		escalator: escalator,
		deliverer: deliverer,
		archiver:  archiver,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger.Named("scheduler"),
		jobs:      make(map[string]gocron.Job),
	}

	if err := js.registerJobs(cfg); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

// Stop cancels running passes and waits for them to return.
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(cfg config.SchedulerConfig) error {
	evaluations := []struct {
		name     string
		freq     models.CheckFrequency
		interval time.Duration
	}{
		{JobEvaluateRealtime, models.FrequencyRealtime, cfg.RealtimeInterval},
		{JobEvaluateHourly, models.FrequencyHourly, cfg.HourlyInterval},
		{JobEvaluateDaily, models.FrequencyDaily, cfg.DailyInterval},
	}
	for _, e := range evaluations {
		if err := js.add(e.name, e.interval, js.evaluate, e.freq); err != nil {
			return err
		}
	}

	if err := js.add(JobEscalationSweep, cfg.EscalationInterval, js.escalate); err != nil {
		return err
	}
	if err := js.add(JobDelivery, cfg.DeliveryInterval, js.deliver); err != nil {
		return err
	}
	if js.archiver != nil {
		if err := js.add(JobArchive, cfg.ArchiveInterval, js.archive); err != nil {
			return err
		}
	}

	js.logger.Info("registered background jobs", zap.Int("count", len(js.jobs)))
	return nil
}

func (js *JobScheduler) add(name string, interval time.Duration, task any, params ...any) error {
	if interval <= 0 {
		js.logger.Warn("job disabled by zero interval", zap.String("job", name))
		return nil
	}
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task, params...),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}
	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
	return nil
}

func (js *JobScheduler) evaluate(freq models.CheckFrequency) {
	if _, err := js.evaluator.Run(js.ctx, freq); err != nil {
		js.logger.Error("evaluation pass failed", zap.String("frequency", string(freq)), zap.Error(err))
	}
}

func (js *JobScheduler) escalate() {
	if _, err := js.escalator.Run(js.ctx); err != nil {
		js.logger.Error("escalation sweep failed", zap.Error(err))
	}
}

func (js *JobScheduler) deliver() {
	result, err := js.deliverer.ProcessBatch(js.ctx)
	if err != nil {
		js.logger.Error("delivery batch failed", zap.Error(err))
		return
	}
	if result.Claimed > 0 || result.Expired > 0 {
		js.logger.Info("delivery batch",
			zap.Int("claimed", result.Claimed),
			zap.Int("sent", result.Sent),
			zap.Int("retried", result.Retried),
			zap.Int("failed", result.Failed),
			zap.Int("deferred", result.Deferred),
			zap.Int("suppressed", result.Suppressed),
			zap.Int("withdrawn", result.Withdrawn),
			zap.Int("released", result.Released),
			zap.Int64("expired", result.Expired),
		)
	}
}

func (js *JobScheduler) archive() {
	if _, err := js.archiver.Run(js.ctx); err != nil {
		js.logger.Error("archive pass failed", zap.Error(err))
	}
}

// RunNow triggers a registered job outside its schedule.
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return job.RunNow()
}

// Status lists the registered jobs by name.
func (js *JobScheduler) Status() []JobInfo {
	js.mu.RLock()
	defer js.mu.RUnlock()

	infos := make([]JobInfo, 0, len(js.jobs))
	for name, job := range js.jobs {
		info := JobInfo{Name: name}
		if last, err := job.LastRun(); err == nil {
			info.LastRun = last
		}
		if next, err := job.NextRun(); err == nil {
			info.NextRun = next
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
