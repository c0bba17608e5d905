package notary_altool

import (
	"context"
	"strings"

	"github.com/davarch/notarize/internal/domain"
	"github.com/davarch/notarize/internal/infrastructure/xcrun_exec"
)

// The password reaches altool through its @env: indirection so it never
// appears on the command line.
const passwordEnv = "NOTARIZE_ALTOOL_PASSWORD"

type Client struct {
	run *xcrun_exec.Runner
}

func New(run *xcrun_exec.Runner) *Client {
	return &Client{run: run}
}

func (c *Client) Submit(ctx context.Context, a domain.Artifact, cred domain.LegacyAuth) (domain.SubmissionHandle, error) {
	args := []string{"altool", "--notarize-app", "--file", a.Path}
	args = append(args, authArgs(cred)...)
	if cred.BundleID != "" {
		args = append(args, "--primary-bundle-id", cred.BundleID)
	}

	res, err := c.run.Run(ctx, authEnv(cred), args...)
	if err != nil {
		return "", domain.SubmissionError("altool --notarize-app", err)
	}

	h, err := ParseRequestUUID(res.Combined())
	if err != nil {
		return "", domain.SubmissionError("altool --notarize-app", err)
	}
	return h, nil
}

func (c *Client) Poll(ctx context.Context, h domain.SubmissionHandle, cred domain.LegacyAuth) (domain.StatusReport, error) {
	args := append([]string{"altool", "--notarization-info", string(h)}, authArgs(cred)...)

	res, err := c.run.Run(ctx, authEnv(cred), args...)
	if err != nil {
		return domain.StatusReport{}, domain.PollError("altool --notarization-info", err)
	}

	out := strings.TrimSpace(res.Combined())
	st, err := ParseStatus(out)
	if err != nil {
		return domain.StatusReport{}, domain.PollError("altool --notarization-info", err)
	}
	return domain.StatusReport{Handle: h, Status: st, Detail: out}, nil
}

func authArgs(cred domain.LegacyAuth) []string {
	return []string{"--username", cred.Username, "--password", "@env:" + passwordEnv}
}

func authEnv(cred domain.LegacyAuth) map[string]string {
	return map[string]string{passwordEnv: cred.Password}
}
