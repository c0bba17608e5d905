package notary_notarytool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davarch/notarize/internal/domain"
	"github.com/davarch/notarize/internal/infrastructure/xcrun_exec"
)

// grace lets notarytool report its own timeout before we kill it.
const grace = time.Minute

type Client struct {
	run *xcrun_exec.Runner
}

func New(run *xcrun_exec.Runner) *Client {
	return &Client{run: run}
}

type resultDTO struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

func (c *Client) SubmitAndWait(ctx context.Context, a domain.Artifact, cred domain.ModernAuth, timeout time.Duration) (domain.StatusReport, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+grace)
	defer cancel()

	res, err := c.run.Run(ctx, nil,
		"notarytool", "submit", a.Path,
		"--keychain-profile", cred.Profile,
		"--wait",
		"--timeout", FormatTimeout(timeout),
		"--output-format", "json",
	)

	if rep, ok := decode(res.Stdout); ok {
		return rep, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.StatusReport{}, domain.TimeoutError("notarytool submit", fmt.Errorf("no verdict within %s", timeout))
	}
	if errors.Is(err, context.Canceled) {
		return domain.StatusReport{}, domain.PollError("notarytool submit", fmt.Errorf("interrupted: %w", err))
	}
	if err != nil {
		return domain.StatusReport{}, domain.SubmissionError("notarytool submit", err)
	}
	return domain.StatusReport{}, domain.Errorf(domain.KindSubmission, "notarytool submit", "unreadable output: %s", strings.TrimSpace(res.Combined()))
}

func (c *Client) Poll(ctx context.Context, h domain.SubmissionHandle, cred domain.ModernAuth) (domain.StatusReport, error) {
	res, err := c.run.Run(ctx, nil,
		"notarytool", "info", string(h),
		"--keychain-profile", cred.Profile,
		"--output-format", "json",
	)
	if err != nil {
		return domain.StatusReport{}, domain.PollError("notarytool info", err)
	}

	rep, ok := decode(res.Stdout)
	if !ok {
		return domain.StatusReport{}, domain.Errorf(domain.KindPoll, "notarytool info", "unreadable output: %s", strings.TrimSpace(res.Combined()))
	}
	if rep.Handle == "" {
		rep.Handle = h
	}
	return rep, nil
}

func decode(out string) (domain.StatusReport, bool) {
	out = strings.TrimSpace(out)
	// notarytool may print progress lines before the JSON document.
	if i := strings.Index(out, "{"); i > 0 {
		out = out[i:]
	}

	var dto resultDTO
	if err := json.Unmarshal([]byte(out), &dto); err != nil || dto.Status == "" {
		return domain.StatusReport{}, false
	}

	detail := dto.Status
	if dto.Message != "" {
		detail += ": " + dto.Message
	}
	return domain.StatusReport{
		Handle: domain.SubmissionHandle(dto.ID),
		Status: mapStatus(dto.Status),
		Detail: detail,
	}, true
}

func mapStatus(s string) domain.JobStatus {
	switch s {
	case "Accepted":
		return domain.StatusSucceeded
	case "In Progress":
		return domain.StatusPending
	case "Invalid", "Rejected":
		return domain.StatusFailed
	default:
		return domain.StatusUnknown
	}
}

// FormatTimeout renders d the way notarytool's --timeout expects it.
func FormatTimeout(d time.Duration) string {
	switch {
	case d <= 0:
		return "0"
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", int64((d+time.Second-1)/time.Second))
	}
}
