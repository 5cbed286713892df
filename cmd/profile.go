package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/sap-compass/internal/scoring"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or validate scoring profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active scoring profile as TOML",
	Long: `show prints the profile selected with --profile, or the built-in reference
profile. The output is a valid profile file and can be edited and passed back
with --profile.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := scoring.DefaultProfile()
		if flagProfile != "" {
			loaded, err := scoring.LoadProfile(flagProfile)
			if err != nil {
				return err
			}
			p = loaded
		}
		data, err := p.EncodeTOML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var profileValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check that profile files load and are consistent",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			p, err := scoring.LoadProfile(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (version %s)\n", path, p.Version)
		}
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd, profileValidateCmd)
}
