package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/davarch/notarize/internal/domain"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "notarize <artifact>",
	Short: "Submit a signed package for notarization, wait for the verdict and staple it",
	Long: `notarize submits an already signed package to the notary service, waits
for the verdict and staples the ticket into the package.

Authentication is selected by USE_LEGACY_AUTH:
  unset/false  KEYCHAIN_PROFILE_REF (notarytool keychain profile)
  true         LEGACY_USERNAME and LEGACY_PASSWORD (altool)`,
	Args:          requireArtifact,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runNotarize,
}

// Execute runs the CLI and exits with the status of the failure kind.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

func Run(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(stderr, "❌ %s\n", err)
		return domain.ExitCode(err)
	}
	return 0
}

func requireArtifact(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return nil
	}
	_, _ = fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
	if len(args) == 0 {
		return domain.Errorf(domain.KindUsage, "args", "missing artifact path")
	}
	return domain.Errorf(domain.KindUsage, "args", "expected exactly one artifact path, got %d", len(args))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "notarize.yaml", "path to notarize.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return domain.UsageError("flags", err)
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	comp := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	rootCmd.AddCommand(comp)
}
