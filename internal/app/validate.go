package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarklab/pixelci/internal/ci"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config.yml>",
	Short: "Check a CI configuration without running it",
	Long: `Parse and validate a CI configuration file.

Reports unknown top-level keys, malformed commands and a missing
test_script section. Exits non-zero when the configuration is invalid.`,
	Example: `  pixelci validate appveyor.yml`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ci.ParseFile(args[0])
		if err != nil {
			return err
		}
		legs := ci.ExpandMatrix(cfg)
		fmt.Printf("%s is valid (%d legs)\n", args[0], len(legs))
		return nil
	},
}
