package domain

import (
	"context"
	"time"
)

type MockLegacyNotary struct {
	Handle    SubmissionHandle
	SubmitErr error
	// Reports are returned in order; the last one repeats.
	Reports []StatusReport
	PollErr error

	Submitted int
	Polled    int
}

func (m *MockLegacyNotary) Submit(ctx context.Context, a Artifact, cred LegacyAuth) (SubmissionHandle, error) {
	m.Submitted++
	if m.SubmitErr != nil {
		return "", m.SubmitErr
	}
	return m.Handle, nil
}

func (m *MockLegacyNotary) Poll(ctx context.Context, h SubmissionHandle, cred LegacyAuth) (StatusReport, error) {
	m.Polled++
	if m.PollErr != nil {
		return StatusReport{}, m.PollErr
	}
	if len(m.Reports) == 0 {
		return StatusReport{Handle: h, Status: StatusPending}, nil
	}
	i := m.Polled - 1
	if i >= len(m.Reports) {
		i = len(m.Reports) - 1
	}
	r := m.Reports[i]
	r.Handle = h
	return r, nil
}

type MockModernNotary struct {
	Report StatusReport
	Err    error

	Calls   int
	Polled  int
	Timeout time.Duration
}

func (m *MockModernNotary) SubmitAndWait(ctx context.Context, a Artifact, cred ModernAuth, timeout time.Duration) (StatusReport, error) {
	m.Calls++
	m.Timeout = timeout
	if m.Err != nil {
		return StatusReport{}, m.Err
	}
	return m.Report, nil
}

func (m *MockModernNotary) Poll(ctx context.Context, h SubmissionHandle, cred ModernAuth) (StatusReport, error) {
	m.Polled++
	if m.Err != nil {
		return StatusReport{}, m.Err
	}
	r := m.Report
	r.Handle = h
	return r, nil
}

type MockStapler struct {
	Stapled []Artifact
	Err     error
}

func (s *MockStapler) Staple(ctx context.Context, a Artifact) error {
	s.Stapled = append(s.Stapled, a)
	return s.Err
}

type MockInspector struct {
	Inspected []Artifact
	Out       []Diagnostic
}

func (i *MockInspector) Inspect(ctx context.Context, a Artifact) []Diagnostic {
	i.Inspected = append(i.Inspected, a)
	return i.Out
}

type MockGuard struct {
	ValidateErr error
	WatchErr    error
	ChangedErr  error

	Closed int
}

func (g *MockGuard) Validate(a Artifact) error { return g.ValidateErr }

func (g *MockGuard) Watch(a Artifact) (ArtifactWatch, error) {
	if g.WatchErr != nil {
		return nil, g.WatchErr
	}
	return mockWatch{g}, nil
}

type mockWatch struct{ g *MockGuard }

func (w mockWatch) Changed() error { return w.g.ChangedErr }

func (w mockWatch) Close() error {
	w.g.Closed++
	return nil
}
