package cli

import (
	"fmt"
	"runtime"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

func newVersionCmd(version string) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !short {
				fmt.Fprintln(cmd.OutOrStdout(), figure.NewFigure("dashsession", "cybermedium", true).String())
			}
			printf(cmd, "dashsession %s (%s)\n", version, runtime.Version())
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Omit the banner")
	return cmd
}
