package domain

import (
	"context"
	"time"
)

// LegacyNotary exposes the separate submit and query primitives of the older
// vendor tool. The caller owns the wait.
type LegacyNotary interface {
	Submit(ctx context.Context, a Artifact, cred LegacyAuth) (SubmissionHandle, error)
	Poll(ctx context.Context, h SubmissionHandle, cred LegacyAuth) (StatusReport, error)
}

// ModernNotary blocks inside the vendor tool until a verdict or the timeout.
type ModernNotary interface {
	SubmitAndWait(ctx context.Context, a Artifact, cred ModernAuth, timeout time.Duration) (StatusReport, error)
	Poll(ctx context.Context, h SubmissionHandle, cred ModernAuth) (StatusReport, error)
}

type Stapler interface {
	Staple(ctx context.Context, a Artifact) error
}

// Inspector prints post-hoc verification output. Its result never decides
// success or failure.
type Inspector interface {
	Inspect(ctx context.Context, a Artifact) []Diagnostic
}

type Diagnostic struct {
	Tool   string
	Output string
	Err    error
}

type ArtifactGuard interface {
	Validate(a Artifact) error
	Watch(a Artifact) (ArtifactWatch, error)
}

// ArtifactWatch reports whether the artifact moved or vanished since Watch.
type ArtifactWatch interface {
	Changed() error
	Close() error
}
