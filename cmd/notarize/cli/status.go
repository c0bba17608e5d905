package cli

import (
	"fmt"

	"github.com/davarch/notarize/internal/domain"
	"github.com/davarch/notarize/internal/infrastructure/logging"
	"github.com/davarch/notarize/internal/infrastructure/notary_altool"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <submission-id>",
	Short: "Query the status of a submission once",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
			return domain.Errorf(domain.KindUsage, "args", "expected exactly one submission id, got %d", len(args))
		}
		return nil
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(verbose)
		defer func() { _ = log.Sync() }()

		cfg, cred, err := loadCredentials()
		if err != nil {
			return err
		}

		h := domain.SubmissionHandle(args[0])
		if _, ok := cred.(domain.LegacyAuth); ok {
			if err := notary_altool.ValidateHandle(args[0]); err != nil {
				return domain.UsageError("submission id", err)
			}
		}

		rep, err := newUseCase(log, cfg).Status(cmd.Context(), h, cred)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "%s: %s\n", h, rep.Status)
		if rep.Detail != "" {
			_, _ = fmt.Fprintln(out, rep.Detail)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
