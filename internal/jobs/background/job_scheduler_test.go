package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"warnengine/internal/config"
	"warnengine/internal/jobs"
	"warnengine/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEvaluator struct{ runs []models.CheckFrequency }

func (f *fakeEvaluator) Run(_ context.Context, freq models.CheckFrequency) (*jobs.EvaluationSummary, error) {
	f.runs = append(f.runs, freq)
	return &jobs.EvaluationSummary{}, nil
}

type fakeCounter struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCounter) Run(context.Context) (int, error) {
	f.calls.Add(1)
	return 0, f.err
}

type fakeDeliverer struct{ calls int }

func (f *fakeDeliverer) ProcessBatch(context.Context) (*jobs.DeliveryResult, error) {
	f.calls++
	return &jobs.DeliveryResult{Claimed: 1, Sent: 1}, nil
}

func newTestScheduler(t *testing.T, archiver Archiver) (*JobScheduler, *fakeEvaluator, *fakeCounter, *fakeDeliverer) {
	t.Helper()
	evaluator := &fakeEvaluator{}
	escalator := &fakeCounter{}
	deliverer := &fakeDeliverer{}
	js, err := NewJobScheduler(config.Default().Scheduler, evaluator, escalator, deliverer, archiver, clockwork.NewFakeClock(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Stop() })
	return js, evaluator, escalator, deliverer
}

func jobNames(infos []JobInfo) []string {
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

func TestJobScheduler_RegistersArchiveOnlyWhenEnabled(t *testing.T) {
	withoutArchive, _, _, _ := newTestScheduler(t, nil)
	assert.Equal(t, []string{JobEscalationSweep, JobEvaluateDaily, JobEvaluateHourly, JobEvaluateRealtime, JobDelivery},
		jobNames(withoutArchive.Status()))

	withArchive, _, _, _ := newTestScheduler(t, &fakeCounter{})
	assert.Contains(t, jobNames(withArchive.Status()), JobArchive)
}

func TestJobScheduler_ZeroIntervalDisablesJob(t *testing.T) {
	cfg := config.Default().Scheduler
	cfg.DailyInterval = 0

	js, err := NewJobScheduler(cfg, &fakeEvaluator{}, &fakeCounter{}, &fakeDeliverer{}, nil, clockwork.NewFakeClock(), zap.NewNop())
	require.NoError(t, err)
	defer js.Stop()

	assert.NotContains(t, jobNames(js.Status()), JobEvaluateDaily)
}

func TestJobScheduler_TasksCallTheirJobs(t *testing.T) {
	archiver := &fakeCounter{err: errors.New("bucket unavailable")}
	js, evaluator, escalator, deliverer := newTestScheduler(t, archiver)

	js.evaluate(models.FrequencyHourly)
	js.escalate()
	js.deliver()
	js.archive()

	assert.Equal(t, []models.CheckFrequency{models.FrequencyHourly}, evaluator.runs)
	assert.EqualValues(t, 1, escalator.calls.Load())
	assert.Equal(t, 1, deliverer.calls)
	assert.EqualValues(t, 1, archiver.calls.Load())
}

func TestJobScheduler_RunNowUnknownJob(t *testing.T) {
	js, _, _, _ := newTestScheduler(t, nil)

	assert.Error(t, js.RunNow("inventory-alerts"))
}

func TestJobScheduler_RunNowTriggersJob(t *testing.T) {
	js, _, escalator, _ := newTestScheduler(t, nil)
	js.Start()

	require.NoError(t, js.RunNow(JobEscalationSweep))

	assert.Eventually(t, func() bool { return escalator.calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}
