package main

import (
	"github.com/spf13/cobra"

	"kestrel/internal/driver"
)

func newBuildCmd() *cobra.Command {
	var f unitFlags
	cmd := &cobra.Command{
		Use:   "build [files or dirs...]",
		Short: "Verify and generate NASM assembly",
		Long: `build verifies every unit and writes <name>.asm for those that pass.
Sources default to [build].sources of the nearest kestrel.toml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnits(cmd, driver.ModeBuild, &f, args)
		},
	}
	f.register(cmd, driver.ModeBuild)
	return cmd
}
