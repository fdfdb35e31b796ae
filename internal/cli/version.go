package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the appraiser release.
const Version = "0.1.0"

const modulePath = "github.com/mitchellmoss/appraisal-generator"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the appraiser version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "appraiser v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
