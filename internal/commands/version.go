package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	v1 "github.com/xiaot623/gogo/nexus/internal/transport/http/v1"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the nexus version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nexus %s\n", v1.Version)
	},
}

func init() {
	AddCommand(versionCmd)
}
