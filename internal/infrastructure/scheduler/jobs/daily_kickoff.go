package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY KICKOFF JOB
// ══════════════════════════════════════════════════════════════════════════════

// Challenge bounds in ml. The challenge is drawn from [ChallengeMinMl, ChallengeMaxMl).
const (
	ChallengeMinMl = 2000
	ChallengeMaxMl = 3000
)

// Kickoff is the new-day announcement.
type Kickoff struct {
	DayKey      string
	ChallengeMl int
	UserIDs     []string
}

// KickoffSender posts the new-day message to the shared chat.
type KickoffSender interface {
	SendKickoff(ctx context.Context, kickoff Kickoff) error
}

// DailyKickoffJob posts a good-morning message with a random water challenge.
type DailyKickoffJob struct {
	sender  KickoffSender
	engine  *hydration.Engine
	clock   shared.Clock
	userIDs []string
	intN    func(n int) int
	logger  *slog.Logger
}

// DailyKickoffDeps groups the dependencies of the job.
type DailyKickoffDeps struct {
	Sender KickoffSender
	Engine *hydration.Engine
	Clock  shared.Clock
	Logger *slog.Logger

	// IntN overrides the random source. Optional.
	IntN func(n int) int
}

// NewDailyKickoffJob creates a new kickoff job greeting userIDs.
func NewDailyKickoffJob(deps DailyKickoffDeps, userIDs []string) *DailyKickoffJob {
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.IntN == nil {
		deps.IntN = rand.Intn
	}

	return &DailyKickoffJob{
		sender:  deps.Sender,
		engine:  deps.Engine,
		clock:   deps.Clock,
		userIDs: userIDs,
		intN:    deps.IntN,
		logger:  deps.Logger,
	}
}

// Name returns the job name.
func (j *DailyKickoffJob) Name() string {
	return "daily_kickoff"
}

// Description returns a human-readable description.
func (j *DailyKickoffJob) Description() string {
	return "Posts the new-day message with a random water challenge"
}

// Challenge draws a challenge amount in [ChallengeMinMl, ChallengeMaxMl).
func (j *DailyKickoffJob) Challenge() int {
	return ChallengeMinMl + j.intN(ChallengeMaxMl-ChallengeMinMl)
}

// Run executes the kickoff job.
func (j *DailyKickoffJob) Run(ctx context.Context) error {
	kickoff := Kickoff{
		DayKey:      j.engine.DayKey(j.clock.Now()),
		ChallengeMl: j.Challenge(),
		UserIDs:     j.userIDs,
	}

	if err := j.sender.SendKickoff(ctx, kickoff); err != nil {
		return fmt.Errorf("send kickoff: %w", err)
	}

	j.logger.Info("daily kickoff sent",
		"day_key", kickoff.DayKey,
		"challenge_ml", kickoff.ChallengeMl,
	)
	return nil
}
