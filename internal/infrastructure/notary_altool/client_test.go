package notary_altool

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/davarch/notarize/internal/domain"
	"github.com/davarch/notarize/internal/infrastructure/xcrun_exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cred = domain.LegacyAuth{Username: "dev@example.com", Password: "abcd-efgh", BundleID: "com.example.app"}

// fakeXcrun writes a script that logs its argv and the password env var to
// argsFile, then prints out.
func fakeXcrun(t *testing.T, out string, code int) (*Client, string) {
	t.Helper()
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	outFile := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(outFile, []byte(out), 0o644))

	body := "#!/bin/sh\n" +
		"echo \"$*|$" + passwordEnv + "\" > '" + argsFile + "'\n" +
		"cat '" + outFile + "'\n" +
		"exit " + strconv.Itoa(code) + "\n"
	bin := filepath.Join(dir, "xcrun")
	require.NoError(t, os.WriteFile(bin, []byte(body), 0o755))

	return New(xcrun_exec.New(bin, nil)), argsFile
}

func readArgs(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(b)
}

func TestSubmit(t *testing.T) {
	c, argsFile := fakeXcrun(t, "No errors uploading 'App.pkg'.\nRequestUUID = 2b1d3c4e-5f60-4a7b-8c9d-0e1f2a3b4c5d\n", 0)

	h, err := c.Submit(context.Background(), domain.Artifact{Path: "/tmp/App.pkg"}, cred)
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionHandle("2b1d3c4e-5f60-4a7b-8c9d-0e1f2a3b4c5d"), h)
	args := readArgs(t, argsFile)
	assert.Contains(t, args, "altool --notarize-app --file /tmp/App.pkg --username dev@example.com --password @env:NOTARIZE_ALTOOL_PASSWORD --primary-bundle-id com.example.app|abcd-efgh")
}

func TestSubmit_MalformedHandle(t *testing.T) {
	c, _ := fakeXcrun(t, "RequestUUID = 1234\n", 0)

	_, err := c.Submit(context.Background(), domain.Artifact{Path: "/tmp/App.pkg"}, cred)

	assert.ErrorIs(t, err, domain.ErrSubmission)
}

func TestSubmit_ToolFailure(t *testing.T) {
	c, _ := fakeXcrun(t, "*** Error: Unable to upload your app for notarization.\n", 1)

	_, err := c.Submit(context.Background(), domain.Artifact{Path: "/tmp/App.pkg"}, cred)

	assert.ErrorIs(t, err, domain.ErrSubmission)
	assert.Contains(t, err.Error(), "Unable to upload")
	assert.NotContains(t, err.Error(), "abcd-efgh")
}

func TestPoll(t *testing.T) {
	c, argsFile := fakeXcrun(t, infoSuccess, 0)
	h := domain.SubmissionHandle("2b1d3c4e-5f60-4a7b-8c9d-0e1f2a3b4c5d")

	rep, err := c.Poll(context.Background(), h, cred)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSucceeded, rep.Status)
	assert.Equal(t, h, rep.Handle)
	assert.Contains(t, rep.Detail, "Package Approved")
	assert.Contains(t, readArgs(t, argsFile), "altool --notarization-info "+string(h)+" --username dev@example.com")
}

func TestPoll_UnparseableOutputIsFatal(t *testing.T) {
	c, _ := fakeXcrun(t, "something unexpected\n", 0)

	_, err := c.Poll(context.Background(), "2b1d3c4e-5f60-4a7b-8c9d-0e1f2a3b4c5d", cred)

	assert.ErrorIs(t, err, domain.ErrPoll)
	assert.ErrorIs(t, err, ErrNoStatus)
}

func TestPoll_ToolFailure(t *testing.T) {
	c, _ := fakeXcrun(t, "*** Error: Apple Services operation failed.\n", 2)

	_, err := c.Poll(context.Background(), "2b1d3c4e-5f60-4a7b-8c9d-0e1f2a3b4c5d", cred)

	assert.ErrorIs(t, err, domain.ErrPoll)
}
