package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davarch/notarize/internal/domain"
	"go.uber.org/zap"
)

type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
	Timeout      time.Duration
	Diagnostics  bool
}

type NotarizeUseCase struct {
	log     *zap.Logger
	modern  domain.ModernNotary
	legacy  domain.LegacyNotary
	stapler domain.Stapler
	inspect domain.Inspector
	guard   domain.ArtifactGuard
	waiter  *Waiter
	opts    Options

	mu     sync.Mutex
	active map[string]domain.SubmissionHandle
}

func NewNotarizeUseCase(
	l *zap.Logger,
	modern domain.ModernNotary,
	legacy domain.LegacyNotary,
	stapler domain.Stapler,
	inspect domain.Inspector,
	guard domain.ArtifactGuard,
	opts Options,
) *NotarizeUseCase {
	return &NotarizeUseCase{
		log: l, modern: modern, legacy: legacy, stapler: stapler, inspect: inspect, guard: guard,
		waiter: NewWaiter(l, legacy, opts.PollInterval, opts.MaxAttempts),
		opts:   opts,
		active: make(map[string]domain.SubmissionHandle),
	}
}

// Run submits the artifact, waits for a verdict and staples it. Any error is
// terminal; nothing is retried.
func (uc *NotarizeUseCase) Run(ctx context.Context, a domain.Artifact, cred domain.Credentials) (domain.StatusReport, error) {
	if err := uc.guard.Validate(a); err != nil {
		return domain.StatusReport{}, err
	}
	if err := uc.acquire(a); err != nil {
		return domain.StatusReport{}, err
	}
	defer uc.release(a)

	watch, err := uc.guard.Watch(a)
	if err != nil {
		return domain.StatusReport{}, domain.SubmissionError("watch artifact", err)
	}
	defer func() { _ = watch.Close() }()

	uc.log.Info("submitting", zap.String("artifact", a.Path), zap.Object("credentials", cred))

	var rep domain.StatusReport
	switch c := cred.(type) {
	case domain.ModernAuth:
		rep, err = uc.runModern(ctx, a, c)
	case domain.LegacyAuth:
		rep, err = uc.runLegacy(ctx, a, c)
	default:
		err = domain.Errorf(domain.KindConfiguration, "credentials", "unsupported credentials %T", cred)
	}
	if err != nil {
		return rep, err
	}

	uc.log.Info("notarization accepted", zap.String("handle", string(rep.Handle)))

	if err := watch.Changed(); err != nil {
		return rep, domain.StapleError("artifact changed since submission", err)
	}
	if err := uc.guard.Validate(a); err != nil {
		return rep, domain.StapleError("artifact changed since submission", err)
	}

	if err := uc.stapler.Staple(ctx, a); err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.StapleError("staple", err)
		}
		return rep, err
	}
	uc.log.Info("stapled", zap.String("artifact", a.Path))

	if uc.opts.Diagnostics && uc.inspect != nil {
		uc.logDiagnostics(ctx, a)
	}

	return rep, nil
}

// Status performs one status query without waiting.
func (uc *NotarizeUseCase) Status(ctx context.Context, h domain.SubmissionHandle, cred domain.Credentials) (domain.StatusReport, error) {
	var (
		rep domain.StatusReport
		err error
	)
	switch c := cred.(type) {
	case domain.ModernAuth:
		rep, err = uc.modern.Poll(ctx, h, c)
	case domain.LegacyAuth:
		rep, err = uc.legacy.Poll(ctx, h, c)
	default:
		return rep, domain.Errorf(domain.KindConfiguration, "credentials", "unsupported credentials %T", cred)
	}
	if err != nil && domain.KindOf(err) == domain.KindUnknown {
		err = domain.PollError("query status", err)
	}
	return rep, err
}

func (uc *NotarizeUseCase) runModern(ctx context.Context, a domain.Artifact, c domain.ModernAuth) (domain.StatusReport, error) {
	rep, err := uc.modern.SubmitAndWait(ctx, a, c, uc.opts.Timeout)
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.SubmissionError("submit and wait", err)
		}
		return rep, err
	}

	switch rep.Status {
	case domain.StatusSucceeded:
		return rep, nil
	case domain.StatusPending:
		return rep, domain.TimeoutError("submit and wait",
			fmt.Errorf("%s still pending after %s", rep.Handle, uc.opts.Timeout))
	case domain.StatusFailed:
		return rep, domain.Errorf(domain.KindPoll, "submit and wait", "notarization failed for %s\n%s", rep.Handle, rep.Detail)
	default:
		return rep, domain.Errorf(domain.KindPoll, "submit and wait", "unrecognized status %q for %s\n%s", rep.Status, rep.Handle, rep.Detail)
	}
}

func (uc *NotarizeUseCase) runLegacy(ctx context.Context, a domain.Artifact, c domain.LegacyAuth) (domain.StatusReport, error) {
	h, err := uc.legacy.Submit(ctx, a, c)
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.SubmissionError("submit", err)
		}
		return domain.StatusReport{}, err
	}
	if h == "" {
		return domain.StatusReport{}, domain.Errorf(domain.KindSubmission, "submit", "vendor returned an empty handle")
	}

	uc.mu.Lock()
	uc.active[a.Path] = h
	uc.mu.Unlock()

	uc.log.Info("submitted", zap.String("handle", string(h)),
		zap.Duration("poll_interval", uc.opts.PollInterval), zap.Int("max_attempts", uc.opts.MaxAttempts))

	return uc.waiter.Wait(ctx, h, c)
}

func (uc *NotarizeUseCase) acquire(a domain.Artifact) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if h, ok := uc.active[a.Path]; ok {
		return domain.Errorf(domain.KindSubmission, "submit", "%s already has an active submission %q", a.Path, h)
	}
	uc.active[a.Path] = ""
	return nil
}

func (uc *NotarizeUseCase) release(a domain.Artifact) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.active, a.Path)
}

func (uc *NotarizeUseCase) logDiagnostics(ctx context.Context, a domain.Artifact) {
	for _, d := range uc.inspect.Inspect(ctx, a) {
		if d.Err != nil {
			uc.log.Warn("diagnostic failed", zap.String("tool", d.Tool), zap.String("output", d.Output), zap.Error(d.Err))
			continue
		}
		uc.log.Info("diagnostic", zap.String("tool", d.Tool), zap.String("output", d.Output))
	}
}
