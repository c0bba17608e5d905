package domain

import "go.uber.org/zap/zapcore"

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusUnknown   JobStatus = "unknown"
)

// Artifact is a locally built, already signed package identified by its path.
type Artifact struct {
	Path string
}

type SubmissionHandle string

// StatusReport is one answer from the notary service: the mapped status plus
// whatever the vendor printed, kept for display.
type StatusReport struct {
	Handle SubmissionHandle
	Status JobStatus
	Detail string
}

// Credentials is either ModernAuth or LegacyAuth.
type Credentials interface {
	zapcore.ObjectMarshaler
	Mode() string
	isCredentials()
}

// ModernAuth refers to a keychain profile stored by the vendor tool.
type ModernAuth struct {
	Profile string
}

func (ModernAuth) Mode() string  { return "modern" }
func (ModernAuth) isCredentials() {}

func (m ModernAuth) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("mode", m.Mode())
	enc.AddString("profile", m.Profile)
	return nil
}

// LegacyAuth carries an account name and an app-specific password.
type LegacyAuth struct {
	Username string
	Password string
	BundleID string
}

func (LegacyAuth) Mode() string  { return "legacy" }
func (LegacyAuth) isCredentials() {}

func (l LegacyAuth) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("mode", l.Mode())
	enc.AddString("username", l.Username)
	enc.AddString("password", redact(l.Password))
	if l.BundleID != "" {
		enc.AddString("bundle_id", l.BundleID)
	}
	return nil
}

func (l LegacyAuth) String() string {
	return "legacy(" + l.Username + ", password=" + redact(l.Password) + ")"
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
