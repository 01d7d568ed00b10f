package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var frameworksJSON bool

var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "List the frameworks in the corpus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if alignmentService == nil {
			return errors.New("alignment service not configured")
		}
		fws := alignmentService.Frameworks()
		if frameworksJSON {
			return printJSON(cmd, fws)
		}
		for _, fw := range fws {
			cmd.Printf("%-6s %-60s %2d topics  %2d jurisdictions  %s\n", fw.Code, fw.Name, len(fw.Topics), len(fw.Jurisdictions), strings.Join(fw.Jurisdictions, ", "))
		}
		return nil
	},
}

func init() {
	frameworksCmd.Flags().BoolVar(&frameworksJSON, "json", false, "output the corpus as JSON")
	rootCmd.AddCommand(frameworksCmd)
}
