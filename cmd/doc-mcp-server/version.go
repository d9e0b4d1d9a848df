package main

import (
	"fmt"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", common.ServiceName, common.GetFullVersion())
			return nil
		},
	}
}
