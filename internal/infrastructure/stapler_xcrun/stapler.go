package stapler_xcrun

import (
	"context"
	"strings"

	"github.com/davarch/notarize/internal/domain"
	"github.com/davarch/notarize/internal/infrastructure/xcrun_exec"
)

type Stapler struct {
	xcrun *xcrun_exec.Runner
}

func New(xcrun *xcrun_exec.Runner) *Stapler {
	return &Stapler{xcrun: xcrun}
}

func (s *Stapler) Staple(ctx context.Context, a domain.Artifact) error {
	if _, err := s.xcrun.Run(ctx, nil, "stapler", "staple", a.Path); err != nil {
		return domain.StapleError("stapler staple", err)
	}
	return nil
}

// Inspector runs read-only verification tools after stapling.
type Inspector struct {
	xcrun *xcrun_exec.Runner
	spctl *xcrun_exec.Runner
}

func NewInspector(xcrun, spctl *xcrun_exec.Runner) *Inspector {
	return &Inspector{xcrun: xcrun, spctl: spctl}
}

func (i *Inspector) Inspect(ctx context.Context, a domain.Artifact) []domain.Diagnostic {
	var out []domain.Diagnostic

	res, err := i.xcrun.Run(ctx, nil, "stapler", "validate", a.Path)
	out = append(out, domain.Diagnostic{Tool: "stapler validate", Output: strings.TrimSpace(res.Combined()), Err: err})

	if i.spctl != nil {
		res, err = i.spctl.Run(ctx, nil, "--assess", "-vvv", "--type", "install", a.Path)
		out = append(out, domain.Diagnostic{Tool: "spctl --assess", Output: strings.TrimSpace(res.Combined()), Err: err})
	}

	return out
}
