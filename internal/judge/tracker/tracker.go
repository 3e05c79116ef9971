// Package tracker advances an in-flight submission through the judge's
// asynchronous evaluation pipeline until a terminal verdict or failure.
package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/js-808/cc-cli/internal/judge"
	"github.com/js-808/cc-cli/internal/judge/verdict"
	appErr "github.com/js-808/cc-cli/pkg/errors"
	"github.com/js-808/cc-cli/pkg/utils/logger"
)

// State is a position in the submission lifecycle.
type State string

const (
	StatePendingAccept State = "PendingAccept"
	StateQueued        State = "Queued"
	StateRunning       State = "Running"
	StateTerminal      State = "Terminal"
	StateFailed        State = "Failed"
)

// stateRank orders states for the monotonic-transition guard.
var stateRank = map[State]int{
	StatePendingAccept: 0,
	StateQueued:        1,
	StateRunning:       2,
	StateTerminal:      3,
	StateFailed:        3,
}

// Submission is one in-flight submission. Mutated only by Track; immutable
// once terminal.
type Submission struct {
	ID         string
	Problem    judge.ProblemID
	Language   judge.Language
	State      State
	Verdict    verdict.Verdict
	Diag       verdict.Diagnostics
	FailReason string

	SubmittedAt time.Time
	LastPollAt  time.Time
	FinishedAt  time.Time
}

// Done reports whether the submission reached an absorbing state.
func (s *Submission) Done() bool {
	return s.State == StateTerminal || s.State == StateFailed
}

// Config bounds the polling loop. Judges rate-limit status endpoints;
// the interval grows exponentially up to MaxInterval.
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxWait         time.Duration
	MaxTransient    int
}

// Defaults fills unset fields.
func (c Config) Defaults() Config {
	if c.InitialInterval <= 0 {
		c.InitialInterval = 2 * time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 10 * time.Minute
	}
	if c.MaxTransient <= 0 {
		c.MaxTransient = 5
	}
	return c
}

// PollFunc fetches the raw status of one submission. Implementations own
// their session handling; every call is idempotent.
type PollFunc func(ctx context.Context, submissionID string) (judge.RawStatus, error)

// Tracker runs the polling state machine for submissions of one judge.
type Tracker struct {
	cfg   Config
	poll  PollFunc
	norm  verdict.Normalizer
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New builds a Tracker.
func New(cfg Config, poll PollFunc, norm verdict.Normalizer) *Tracker {
	return &Tracker{
		cfg:   cfg.Defaults(),
		poll:  poll,
		norm:  norm,
		sleep: sleepCtx,
		now:   time.Now,
	}
}

// Track polls until the submission reaches Terminal or Failed, or ctx is
// canceled. Cancellation is not a verdict: the submission keeps whatever
// state it last observed and Track returns the context error.
//
// There is never more than one outstanding poll: Track is a plain loop,
// and callers must not run two Tracks for the same submission.
func (t *Tracker) Track(ctx context.Context, sub *Submission) error {
	if sub.Done() {
		return nil
	}
	if sub.State == "" {
		sub.State = StatePendingAccept
	}

	deadline := t.now().Add(t.cfg.MaxWait)
	interval := t.cfg.InitialInterval
	consecutive := 0

	for {
		raw, err := t.poll(ctx, sub.ID)
		sub.LastPollAt = t.now()

		switch {
		case ctx.Err() != nil:
			return ctx.Err()

		case err != nil && appErr.GetCode(err).IsPermanent():
			t.fail(sub, fmt.Sprintf("permanent poll failure: %v", err))
			return nil

		case err != nil:
			// Transient by default: auth errors already consumed their
			// one re-authentication inside the poll function.
			consecutive++
			logger.Warn(ctx, "poll failed",
				zap.String("submission_id", sub.ID),
				zap.Int("consecutive", consecutive),
				zap.Error(err))
			if consecutive >= t.cfg.MaxTransient {
				t.fail(sub, fmt.Sprintf("%d consecutive poll failures, last: %v", consecutive, err))
				return nil
			}

		default:
			consecutive = 0
			n := t.norm.Normalize(raw)
			if n.Terminal {
				t.advance(sub, StateTerminal)
				sub.Verdict = n.Verdict
				sub.Diag = n.Diag
				sub.FinishedAt = t.now()
				logger.Info(ctx, "submission terminal",
					zap.String("submission_id", sub.ID),
					zap.String("verdict", string(n.Verdict)))
				return nil
			}
			switch n.Stage {
			case verdict.StageQueued:
				t.advance(sub, StateQueued)
			case verdict.StageRunning:
				t.advance(sub, StateRunning)
			}
		}

		if t.now().After(deadline) {
			t.fail(sub, fmt.Sprintf("no terminal verdict after %s, last state %s",
				t.cfg.MaxWait, sub.State))
			return nil
		}

		if err := t.sleep(ctx, interval); err != nil {
			return err
		}
		interval = NextInterval(interval, t.cfg.MaxInterval)
	}
}

// advance moves the state forward, never backward. A judge briefly
// reporting Queued after Running is ignored.
func (t *Tracker) advance(sub *Submission, next State) {
	if stateRank[next] > stateRank[sub.State] {
		sub.State = next
	}
}

func (t *Tracker) fail(sub *Submission, reason string) {
	sub.State = StateFailed
	sub.FailReason = reason
	sub.FinishedAt = t.now()
}

// NextInterval doubles the poll interval up to max.
func NextInterval(current, max time.Duration) time.Duration {
	if current <= 0 {
		return 0
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
