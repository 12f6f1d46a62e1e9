package main

import (
	"github.com/spf13/cobra"

	"kestrel/internal/driver"
)

func newCheckCmd() *cobra.Command {
	var f unitFlags
	cmd := &cobra.Command{
		Use:   "check [files or dirs...]",
		Short: "Verify ownership rules without generating code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnits(cmd, driver.ModeCheck, &f, args)
		},
	}
	f.register(cmd, driver.ModeCheck)
	return cmd
}
