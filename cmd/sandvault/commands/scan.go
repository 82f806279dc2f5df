package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "scan",
		Short:        "Run one monitoring pass over all monitored leases",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}
			scanner, err := svc.newScanner()
			if err != nil {
				return err
			}
			if err := scanner.Scan(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Scan complete")
			return nil
		},
	}
}
