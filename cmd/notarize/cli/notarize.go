package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/davarch/notarize/internal/application"
	"github.com/davarch/notarize/internal/domain"
	"github.com/davarch/notarize/internal/infrastructure/artifact_fs"
	"github.com/davarch/notarize/internal/infrastructure/config"
	"github.com/davarch/notarize/internal/infrastructure/logging"
	"github.com/davarch/notarize/internal/infrastructure/notary_altool"
	"github.com/davarch/notarize/internal/infrastructure/notary_notarytool"
	"github.com/davarch/notarize/internal/infrastructure/stapler_xcrun"
	"github.com/davarch/notarize/internal/infrastructure/xcrun_exec"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runNotarize(cmd *cobra.Command, args []string) error {
	log := logging.New(verbose)
	defer func() { _ = log.Sync() }()

	cfg, cred, err := loadCredentials()
	if err != nil {
		return err
	}

	uc := newUseCase(log, cfg)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("start",
		zap.String("version", version),
		zap.String("artifact", args[0]),
		zap.String("mode", cred.Mode()),
		zap.Duration("poll_interval", cfg.Notary.PollInterval),
		zap.Int("max_attempts", cfg.Notary.MaxAttempts),
		zap.Duration("timeout", cfg.Notary.Timeout),
	)

	rep, err := uc.Run(ctx, domain.Artifact{Path: args[0]}, cred)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rep.Detail != "" {
		_, _ = fmt.Fprintln(out, rep.Detail)
	}
	_, _ = fmt.Fprintf(out, "✅ %s notarized and stapled (submission %s)\n", args[0], rep.Handle)
	return nil
}

// loadCredentials fails before any vendor call when the selected mode is
// missing its values.
func loadCredentials() (config.Config, domain.Credentials, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, nil, err
	}
	cred, err := cfg.Credentials()
	if err != nil {
		return cfg, nil, err
	}
	return cfg, cred, nil
}

func newUseCase(log *zap.Logger, cfg config.Config) *application.NotarizeUseCase {
	xcrun := xcrun_exec.New(cfg.Notary.Xcrun, log)

	var spctl *xcrun_exec.Runner
	if cfg.Notary.Spctl != "" {
		spctl = xcrun_exec.New(cfg.Notary.Spctl, log)
	}

	return application.NewNotarizeUseCase(log,
		notary_notarytool.New(xcrun),
		notary_altool.New(xcrun),
		stapler_xcrun.New(xcrun),
		stapler_xcrun.NewInspector(xcrun, spctl),
		artifact_fs.New(log),
		application.Options{
			PollInterval: cfg.Notary.PollInterval,
			MaxAttempts:  cfg.Notary.MaxAttempts,
			Timeout:      cfg.Notary.Timeout,
			Diagnostics:  cfg.Notary.Diagnostics,
		},
	)
}
