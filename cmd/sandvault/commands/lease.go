package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandvault/sandvault/pkg/types"
)

func newRequestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "request",
		Short:        "Request a lease from a template",
		SilenceUsage: true,
		Example: `  # Request a lease for a user
  sandvault request --template ./template.json --user dev@example.com`,
		RunE: runRequest,
	}

	cmd.Flags().String("template", "", "path to a lease template JSON file")
	cmd.Flags().String("user", "", "email of the requesting user")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("user")
	return cmd
}

func runRequest(cmd *cobra.Command, args []string) error {
	templatePath, _ := cmd.Flags().GetString("template")
	userEmail, _ := cmd.Flags().GetString("user")

	data, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template file: %w", err)
	}
	var template types.LeaseTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return fmt.Errorf("failed to parse template file: %w", err)
	}

	svc, err := buildServices(cmd.Context())
	if err != nil {
		return err
	}
	lease, err := svc.orch.RequestLease(cmd.Context(), &template, userEmail)
	if err != nil {
		return err
	}

	fmt.Printf("Lease %s created for %s (status: %s)\n", lease.UUID, lease.UserEmail, lease.Status)
	return nil
}

func newApproveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "approve <lease-id>",
		Short:        "Approve a pending lease and allocate an account",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE:         runApprove,
	}

	cmd.Flags().String("approver", "", "email of the approving manager")
	cmd.MarkFlagRequired("approver")
	return cmd
}

func runApprove(cmd *cobra.Command, args []string) error {
	approvedBy, _ := cmd.Flags().GetString("approver")

	svc, err := buildServices(cmd.Context())
	if err != nil {
		return err
	}
	lease, err := svc.leases.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	approved, err := svc.orch.ApproveLease(cmd.Context(), lease, approvedBy)
	if err != nil {
		return err
	}

	fmt.Printf("Lease %s approved; account %s leased to %s until %s\n",
		approved.UUID, *approved.AwsAccountID, approved.UserEmail,
		approved.ExpirationDate.Format("2006-01-02 15:04 MST"))
	return nil
}

func newDenyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deny <lease-id>",
		Short:        "Deny a pending lease",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE:         runDeny,
	}

	cmd.Flags().String("approver", "", "email of the denying manager")
	cmd.MarkFlagRequired("approver")
	return cmd
}

func runDeny(cmd *cobra.Command, args []string) error {
	deniedBy, _ := cmd.Flags().GetString("approver")

	svc, err := buildServices(cmd.Context())
	if err != nil {
		return err
	}
	lease, err := svc.leases.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := svc.orch.DenyLease(cmd.Context(), lease, deniedBy); err != nil {
		return err
	}

	fmt.Printf("Lease %s denied\n", lease.UUID)
	return nil
}

func newFreezeCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "freeze <lease-id>",
		Short:        "Freeze an active lease, suspending the user's access",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}
			lease, err := svc.leases.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := svc.orch.FreezeLease(cmd.Context(), lease, types.FreezeReasonManual); err != nil {
				return err
			}
			fmt.Printf("Lease %s frozen\n", lease.UUID)
			return nil
		},
	}
}

func newTerminateCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "terminate <lease-id>",
		Short:        "Terminate a lease and send its account to cleanup",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}
			lease, err := svc.leases.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := svc.orch.TerminateLease(cmd.Context(), lease, types.LeaseStatusManuallyTerminated, true); err != nil {
				return err
			}
			fmt.Printf("Lease %s terminated\n", lease.UUID)
			return nil
		},
	}
}
