package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lookfor-ai/maestro/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of maestro",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("maestro", version.Get())
		},
	}
}
