package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davarch/notarize/internal/domain"
	"go.uber.org/zap"
)

var errStillPending = errors.New("still pending")

// Waiter drives the legacy poll loop: a status check, then a fixed interval,
// at most maxAttempts checks in total.
type Waiter struct {
	log         *zap.Logger
	notary      domain.LegacyNotary
	interval    time.Duration
	maxAttempts int

	// timer is nil in production; tests swap in a fake.
	timer backoff.Timer
}

func NewWaiter(l *zap.Logger, n domain.LegacyNotary, interval time.Duration, maxAttempts int) *Waiter {
	return &Waiter{log: l, notary: n, interval: interval, maxAttempts: maxAttempts}
}

func (w *Waiter) Wait(ctx context.Context, h domain.SubmissionHandle, cred domain.LegacyAuth) (domain.StatusReport, error) {
	if w.maxAttempts < 1 {
		return domain.StatusReport{}, domain.Errorf(domain.KindConfiguration, "wait", "max attempts must be at least 1, got %d", w.maxAttempts)
	}

	var (
		attempt int
		last    domain.StatusReport
	)

	op := func() error {
		attempt++
		rep, err := w.notary.Poll(ctx, h, cred)
		if err != nil {
			if domain.KindOf(err) == domain.KindUnknown {
				err = domain.PollError("query status", err)
			}
			return backoff.Permanent(err)
		}
		last = rep

		switch rep.Status {
		case domain.StatusPending:
			w.log.Info("notarization in progress",
				zap.String("handle", string(h)),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", w.maxAttempts),
			)
			return errStillPending
		case domain.StatusSucceeded:
			return nil
		case domain.StatusFailed:
			return backoff.Permanent(domain.Errorf(domain.KindPoll, "wait", "notarization failed for %s\n%s", h, rep.Detail))
		default:
			return backoff.Permanent(domain.Errorf(domain.KindPoll, "wait", "unrecognized status %q for %s\n%s", rep.Status, h, rep.Detail))
		}
	}

	notify := func(_ error, next time.Duration) {
		w.log.Debug("next status check", zap.Duration("in", next))
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.interval), uint64(w.maxAttempts-1)),
		ctx,
	)

	err := backoff.RetryNotifyWithTimer(op, b, notify, w.timer)
	switch {
	case err == nil:
		return last, nil
	case errors.Is(err, errStillPending):
		return last, domain.TimeoutError("wait",
			fmt.Errorf("%s still pending after %d attempts; re-run to submit again", h, attempt))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return last, domain.PollError("wait", fmt.Errorf("interrupted after %d attempts: %w", attempt, err))
	default:
		return last, err
	}
}
