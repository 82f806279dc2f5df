package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandvault/sandvault/pkg/types"
)

func newRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "register <aws-account-id>",
		Short:        "Register a vended account into the sandbox pool",
		SilenceUsage: true,
		Long: `Register takes an account sitting in the entry organizational unit,
grants the operator groups access, and sends it through cleanup. Once cleanup
succeeds the account joins the available pool.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}
			account, err := svc.orch.RegisterAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Account %s (%s) registered, cleanup requested\n", account.AwsAccountID, account.Name)
			return nil
		},
	}
}

func newRetryCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "retry-cleanup <aws-account-id>",
		Short:        "Re-request cleanup for a quarantined or stuck account",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.orch.RetryCleanup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Cleanup re-requested for account %s\n", args[0])
			return nil
		},
	}
}

func newEjectCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "eject <aws-account-id>",
		Short:        "Remove an account from the pool entirely",
		SilenceUsage: true,
		Long: `Eject terminates any leases on the account on a best-effort basis,
moves it to the exit organizational unit, revokes the operator groups, and
forgets the account record. The account itself is left for manual closure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.orch.EjectAccount(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Account %s ejected\n", args[0])
			return nil
		},
	}
}

func newQuarantineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "quarantine <aws-account-id>",
		Short:        "Isolate a drifted or failed account",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE:         runQuarantine,
	}

	cmd.Flags().String("from", string(types.AccountStatusActive), "container the account is currently in")
	cmd.Flags().String("reason", "manual quarantine", "why the account is being quarantined")
	return cmd
}

func runQuarantine(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	reason, _ := cmd.Flags().GetString("reason")

	svc, err := buildServices(cmd.Context())
	if err != nil {
		return err
	}
	if err := svc.orch.QuarantineAccount(cmd.Context(), args[0], types.AccountStatus(from), reason); err != nil {
		return err
	}
	fmt.Printf("Account %s quarantined\n", args[0])
	return nil
}
