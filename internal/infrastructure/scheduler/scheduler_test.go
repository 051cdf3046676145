package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	runID atomic.Value
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	j.runID.Store(RunIDFromContext(ctx))
	return j.err
}

type spyObserver struct {
	mu   sync.Mutex
	jobs []string
	errs []error
}

func (o *spyObserver) JobFinished(job string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.jobs = append(o.jobs, job)
	o.errs = append(o.errs, err)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseCronExpression_ReminderWindow(t *testing.T) {
	ce, err := ParseCronExpression(EveryTwoHoursAwake)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ce.minutes)
	assert.Equal(t, []int{8, 10, 12, 14, 16, 18, 20, 22}, ce.hours)

	loc, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{"before window", time.Date(2024, 3, 10, 7, 30, 0, 0, loc), time.Date(2024, 3, 10, 8, 0, 0, 0, loc)},
		{"exactly on slot", time.Date(2024, 3, 10, 8, 0, 0, 0, loc), time.Date(2024, 3, 10, 10, 0, 0, 0, loc)},
		{"odd hour", time.Date(2024, 3, 10, 13, 5, 0, 0, loc), time.Date(2024, 3, 10, 14, 0, 0, 0, loc)},
		{"after last slot", time.Date(2024, 3, 10, 22, 1, 0, 0, loc), time.Date(2024, 3, 11, 8, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ce.Next(tt.after)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseCronExpression_Lists(t *testing.T) {
	ce, err := ParseCronExpression("15,0,30 9-11 * * 1-5")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 15, 30}, ce.minutes)
	assert.Equal(t, []int{9, 10, 11}, ce.hours)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ce.weekdays)
}

func TestParseCronExpression_Invalid(t *testing.T) {
	for _, expr := range []string{
		"",
		"* * * *",
		"61 * * * *",
		"* 24 * * *",
		"*/0 * * * *",
		"5-1 * * * *",
		"a * * * *",
		"1,,2 * * * *",
	} {
		_, err := ParseCronExpression(expr)
		assert.Error(t, err, expr)
	}
}

func TestParseSchedule_Descriptors(t *testing.T) {
	s, err := ParseSchedule("@every 90m")
	require.NoError(t, err)
	assert.Equal(t, "@every 1h30m0s", s.String())

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(90*time.Minute), s.Next(base))

	daily, err := ParseSchedule("@daily")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), daily.Next(base))

	_, err = ParseSchedule("@every -1s")
	assert.Error(t, err)
}

func TestScheduler_Register(t *testing.T) {
	s := New(Config{Logger: quietLogger()})
	job := &countingJob{name: "a"}

	require.NoError(t, s.RegisterCron(job, EveryDayMidnight))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "b"}, nil), ErrNilSchedule)
	assert.Error(t, s.RegisterCron(&countingJob{name: "c"}, "bad"))

	info, err := s.GetJobInfo("a")
	require.NoError(t, err)
	assert.Equal(t, EveryDayMidnight, info.Schedule)
	assert.True(t, info.Enabled)

	_, err = s.GetJobInfo("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RunNow(t *testing.T) {
	observer := &spyObserver{}
	s := New(Config{Logger: quietLogger(), Observer: observer})

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.Register(failing, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "failing")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.True(t, result.Manual)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, result.RunID, failing.runID.Load())

	info, err := s.GetJobInfo("failing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.FailCount)
	require.NotNil(t, info.LastResult)

	assert.Equal(t, []string{"failing"}, observer.jobs)
	assert.Len(t, s.GetHistory(0), 1)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_StartRunsDueJobs(t *testing.T) {
	s := New(Config{Logger: quietLogger(), TickInterval: 5 * time.Millisecond})
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_DisabledJobDoesNotRun(t *testing.T) {
	s := New(Config{Logger: quietLogger(), TickInterval: 5 * time.Millisecond})
	job := &countingJob{name: "off"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Millisecond)))
	require.NoError(t, s.DisableJob("off"))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Zero(t, job.runs.Load())
	assert.ErrorIs(t, s.EnableJob("missing"), ErrJobNotFound)
}
