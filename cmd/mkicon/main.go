package main

import (
	"fmt"
	"os"

	"savekeep/internal/icon"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkicon INPUT.png [OUTPUT.ico]",
		Short: "Convert a PNG into a square multi-size ICO",
		Long: "Center-crops INPUT to a square and writes an ICO holding 16, 32, 48 and 256 pixel images. " +
			"OUTPUT defaults to INPUT with the .ico extension.",
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := ""
			if len(args) > 1 {
				output = args[1]
			}

			out, err := icon.Convert(args[0], output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", out)
			return nil
		},
	}
}
