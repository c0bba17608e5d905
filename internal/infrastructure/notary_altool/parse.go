package notary_altool

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/davarch/notarize/internal/domain"
	"github.com/google/uuid"
)

var (
	requestUUIDRe = regexp.MustCompile(`(?m)RequestUUID\s*=\s*(\S+)`)
	// "Status Code:" and "Status Message:" must not match.
	statusRe = regexp.MustCompile(`(?m)^\s*Status:[ \t]*(.*?)\s*$`)
)

var ErrNoStatus = errors.New("no Status line in notarization info")

// ParseRequestUUID extracts the submission handle printed by --notarize-app.
func ParseRequestUUID(out string) (domain.SubmissionHandle, error) {
	m := requestUUIDRe.FindStringSubmatch(out)
	if m == nil {
		return "", errors.New("no RequestUUID in altool output")
	}
	if err := ValidateHandle(m[1]); err != nil {
		return "", err
	}
	return domain.SubmissionHandle(strings.ToLower(m[1])), nil
}

// ValidateHandle accepts only the canonical 8-4-4-4-12 hex form.
func ValidateHandle(s string) error {
	if len(s) != 36 {
		return fmt.Errorf("malformed RequestUUID %q", s)
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("malformed RequestUUID %q: %w", s, err)
	}
	return nil
}

// ParseStatus maps the Status line of --notarization-info output.
func ParseStatus(out string) (domain.JobStatus, error) {
	m := statusRe.FindStringSubmatch(out)
	if m == nil || m[1] == "" {
		return "", ErrNoStatus
	}
	return mapStatus(m[1]), nil
}

func mapStatus(s string) domain.JobStatus {
	switch strings.ToLower(s) {
	case "in progress":
		return domain.StatusPending
	case "success":
		return domain.StatusSucceeded
	case "invalid":
		return domain.StatusFailed
	default:
		return domain.StatusUnknown
	}
}
