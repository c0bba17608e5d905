package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davarch/notarize/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var artifact = domain.Artifact{Path: "/tmp/build/App.pkg"}

type fixture struct {
	modern  *domain.MockModernNotary
	legacy  *domain.MockLegacyNotary
	stapler *domain.MockStapler
	inspect *domain.MockInspector
	guard   *domain.MockGuard
	timer   *fakeTimer
	uc      *NotarizeUseCase
}

func newFixture(maxAttempts int) *fixture {
	f := &fixture{
		modern:  &domain.MockModernNotary{},
		legacy:  &domain.MockLegacyNotary{Handle: handle},
		stapler: &domain.MockStapler{},
		inspect: &domain.MockInspector{},
		guard:   &domain.MockGuard{},
		timer:   newFakeTimer(),
	}
	f.uc = NewNotarizeUseCase(zap.NewNop(), f.modern, f.legacy, f.stapler, f.inspect, f.guard, Options{
		PollInterval: 30 * time.Second,
		MaxAttempts:  maxAttempts,
		Timeout:      30 * time.Minute,
		Diagnostics:  true,
	})
	f.uc.waiter.timer = f.timer
	return f
}

var legacyCred = domain.LegacyAuth{Username: "dev@example.com", Password: "app-specific"}

func TestRun_LegacySuccessOnFirstPoll(t *testing.T) {
	f := newFixture(10)
	f.legacy.Reports = []domain.StatusReport{{Status: domain.StatusSucceeded, Detail: "Status: success"}}

	rep, err := f.uc.Run(context.Background(), artifact, legacyCred)
	require.NoError(t, err)

	assert.Equal(t, 1, f.legacy.Submitted)
	assert.Equal(t, 1, f.legacy.Polled)
	assert.Equal(t, []domain.Artifact{artifact}, f.stapler.Stapled)
	assert.Equal(t, []domain.Artifact{artifact}, f.inspect.Inspected)
	assert.Equal(t, handle, rep.Handle)
	assert.Equal(t, 1, f.guard.Closed)
	assert.Zero(t, f.modern.Calls)
}

func TestRun_LegacyTimeoutNeverStaples(t *testing.T) {
	f := newFixture(3)
	f.legacy.Reports = pending(1)

	_, err := f.uc.Run(context.Background(), artifact, legacyCred)

	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, 3, f.legacy.Polled)
	assert.Empty(t, f.stapler.Stapled)
}

func TestRun_LegacyFailedNeverStaples(t *testing.T) {
	f := newFixture(10)
	f.legacy.Reports = []domain.StatusReport{{Status: domain.StatusFailed}}

	_, err := f.uc.Run(context.Background(), artifact, legacyCred)

	assert.ErrorIs(t, err, domain.ErrPoll)
	assert.Empty(t, f.stapler.Stapled)
	assert.Empty(t, f.inspect.Inspected)
}

func TestRun_LegacySubmitErrorIsNotRetried(t *testing.T) {
	f := newFixture(10)
	f.legacy.SubmitErr = errors.New("*** Error: Unable to upload")

	_, err := f.uc.Run(context.Background(), artifact, legacyCred)

	assert.ErrorIs(t, err, domain.ErrSubmission)
	assert.Equal(t, 1, f.legacy.Submitted)
	assert.Zero(t, f.legacy.Polled)
	assert.Empty(t, f.stapler.Stapled)
}

func TestRun_LegacyEmptyHandle(t *testing.T) {
	f := newFixture(10)
	f.legacy.Handle = ""

	_, err := f.uc.Run(context.Background(), artifact, legacyCred)

	assert.ErrorIs(t, err, domain.ErrSubmission)
	assert.Zero(t, f.legacy.Polled)
}

func TestRun_ModernSuccess(t *testing.T) {
	f := newFixture(10)
	f.modern.Report = domain.StatusReport{Handle: "abc", Status: domain.StatusSucceeded}

	_, err := f.uc.Run(context.Background(), artifact, domain.ModernAuth{Profile: "notary"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.modern.Calls)
	assert.Equal(t, 30*time.Minute, f.modern.Timeout)
	assert.Zero(t, f.legacy.Submitted)
	assert.Len(t, f.stapler.Stapled, 1)
}

func TestRun_ModernOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		report domain.StatusReport
		err    error
		want   error
	}{
		{"rejected", domain.StatusReport{Status: domain.StatusFailed}, nil, domain.ErrPoll},
		{"unknown", domain.StatusReport{Status: domain.StatusUnknown}, nil, domain.ErrPoll},
		{"still pending", domain.StatusReport{Status: domain.StatusPending}, nil, domain.ErrTimeout},
		{"tool error", domain.StatusReport{}, errors.New("exit 1"), domain.ErrSubmission},
		{"timeout", domain.StatusReport{}, domain.TimeoutError("notarytool", context.DeadlineExceeded), domain.ErrTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(10)
			f.modern.Report = tc.report
			f.modern.Err = tc.err

			_, err := f.uc.Run(context.Background(), artifact, domain.ModernAuth{Profile: "notary"})

			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.stapler.Stapled)
		})
	}
}

func TestRun_InvalidArtifactStopsBeforeSubmit(t *testing.T) {
	f := newFixture(10)
	f.guard.ValidateErr = domain.UsageError("artifact", errors.New("no such file"))

	_, err := f.uc.Run(context.Background(), artifact, legacyCred)

	assert.ErrorIs(t, err, domain.ErrUsage)
	assert.Zero(t, f.legacy.Submitted)
}

func TestRun_ArtifactMovedBeforeStaple(t *testing.T) {
	f := newFixture(10)
	f.legacy.Reports = []domain.StatusReport{{Status: domain.StatusSucceeded}}
	f.guard.ChangedErr = errors.New("artifact was renamed")

	_, err := f.uc.Run(context.Background(), artifact, legacyCred)

	assert.ErrorIs(t, err, domain.ErrStaple)
	assert.Empty(t, f.stapler.Stapled)
}

func TestRun_StapleFailure(t *testing.T) {
	f := newFixture(10)
	f.legacy.Reports = []domain.StatusReport{{Status: domain.StatusSucceeded}}
	f.stapler.Err = errors.New("exit status 65")

	_, err := f.uc.Run(context.Background(), artifact, legacyCred)

	assert.ErrorIs(t, err, domain.ErrStaple)
	assert.Empty(t, f.inspect.Inspected)
}

func TestRun_RejectsSecondSubmissionWhileActive(t *testing.T) {
	f := newFixture(10)
	require.NoError(t, f.uc.acquire(artifact))

	_, err := f.uc.Run(context.Background(), artifact, legacyCred)

	assert.ErrorIs(t, err, domain.ErrSubmission)
	assert.Zero(t, f.legacy.Submitted)

	f.uc.release(artifact)
	f.legacy.Reports = []domain.StatusReport{{Status: domain.StatusSucceeded}}
	_, err = f.uc.Run(context.Background(), artifact, legacyCred)
	assert.NoError(t, err)
}

func TestStatus_SinglePoll(t *testing.T) {
	f := newFixture(10)
	f.legacy.Reports = pending(1)

	rep, err := f.uc.Status(context.Background(), handle, legacyCred)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, rep.Status)
	assert.Equal(t, 1, f.legacy.Polled)
	assert.Empty(t, f.timer.starts)
}

func TestStatus_WrapsQueryErrors(t *testing.T) {
	f := newFixture(10)
	f.modern.Err = errors.New("exit status 69")

	_, err := f.uc.Status(context.Background(), handle, domain.ModernAuth{Profile: "notary"})

	assert.ErrorIs(t, err, domain.ErrPoll)
	assert.Equal(t, 1, f.modern.Polled)
}
