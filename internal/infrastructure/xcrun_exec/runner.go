package xcrun_exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Runner struct {
	bin string
	log *zap.Logger
}

func New(bin string, l *zap.Logger) *Runner {
	if l == nil {
		l = zap.NewNop()
	}
	return &Runner{bin: bin, log: l}
}

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined is stdout followed by stderr. Vendor tools are not consistent
// about which stream carries the interesting lines.
func (r Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// ExitError is returned when the tool ran but exited nonzero.
type ExitError struct {
	Tool   string
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
	if line := lastLine(e.Output); line != "" {
		msg += ": " + line
	}
	return msg
}

// Run executes the tool with args. env is appended to the current
// environment and never logged.
func (r *Runner) Run(ctx context.Context, env map[string]string, args ...string) (Result, error) {
	tool := r.bin
	if len(args) > 0 {
		tool += " " + args[0]
	}

	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.WaitDelay = 5 * time.Second
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	r.log.Debug("exec",
		zap.String("tool", r.bin),
		zap.Strings("args", args),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)

	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", tool, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Tool: tool, Code: res.ExitCode, Output: res.Combined()}
	}

	res.ExitCode = -1
	return res, fmt.Errorf("%s: %w", tool, err)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
