// Package commands wires the sandvault CLI.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sandvault",
	Short: "Sandbox account lease orchestrator",
	Long: `sandvault manages a pool of disposable AWS sandbox accounts.

Users lease an account from the pool for a bounded time and budget; sandvault
allocates the account, grants access through IAM Identity Center, watches
spend and remaining time against the lease's thresholds, and recycles the
account through cleanup when the lease ends.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sandvault.yaml)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newRequestCommand())
	rootCmd.AddCommand(newApproveCommand())
	rootCmd.AddCommand(newDenyCommand())
	rootCmd.AddCommand(newFreezeCommand())
	rootCmd.AddCommand(newTerminateCommand())
	rootCmd.AddCommand(newRegisterCommand())
	rootCmd.AddCommand(newRetryCleanupCommand())
	rootCmd.AddCommand(newEjectCommand())
	rootCmd.AddCommand(newQuarantineCommand())
	rootCmd.AddCommand(newVersionCommand())
}
