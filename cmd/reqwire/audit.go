package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqwire/reqwire/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit [subject]",
	Short: "Show recent store mutations from the audit log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		limit, _ := cmd.Flags().GetInt("limit")

		var (
			entries []audit.Entry
			err     error
		)
		if len(args) == 1 {
			entries, err = svc.AuditHistory(args[0], limit)
		} else {
			entries, err = svc.AuditRecent(limit)
		}
		if err != nil {
			return err
		}
		if entries == nil {
			fmt.Println("audit logging is not enabled (set audit_enabled: true)")
			return nil
		}
		for _, entry := range entries {
			fmt.Printf("%s  %-20s %-10s %s\n", entry.CreatedAt, entry.Operation, entry.Subject, entry.Detail)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().Int("limit", 20, "maximum entries to show")
	rootCmd.AddCommand(auditCmd)
}
