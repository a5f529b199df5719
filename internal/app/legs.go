package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarklab/pixelci/internal/ci"
	"github.com/quarklab/pixelci/internal/output"
)

var legsCmd = &cobra.Command{
	Use:   "legs <config.yml>",
	Short: "List the build legs a configuration expands to",
	Long: `Expand the environment matrix and platform list of a CI
configuration and list the resulting build legs with their indexes,
platforms and environment variables.`,
	Example: `  pixelci legs appveyor.yml`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ci.ParseFile(args[0])
		if err != nil {
			return err
		}
		legs := ci.ExpandMatrix(cfg)
		fmt.Print(output.RenderLegTable(legs))
		return nil
	},
}
