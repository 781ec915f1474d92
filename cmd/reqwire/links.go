package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link <source-rid> <target-rid>",
	Short: "Link a requirement to a parent requirement",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		revision, _ := cmd.Flags().GetInt("revision")
		if revision < 1 {
			return fmt.Errorf("--revision is required and must be positive")
		}
		req, err := svc.LinkRequirements(args[0], args[1], revision)
		if err != nil {
			return err
		}
		fmt.Printf("linked %s -> %s\n", req.RID, args[1])
		return nil
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <source-rid> <target-rid>",
	Short: "Remove a link between two requirements",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		revision, _ := cmd.Flags().GetInt("revision")
		if revision < 1 {
			return fmt.Errorf("--revision is required and must be positive")
		}
		req, err := svc.UnlinkRequirements(args[0], args[1], revision)
		if err != nil {
			return err
		}
		fmt.Printf("unlinked %s -> %s\n", req.RID, args[1])
		return nil
	},
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "List every link edge in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		records, err := svc.IterLinks()
		if err != nil {
			return err
		}
		for _, record := range records {
			marker := ""
			if record.Suspect {
				marker = " [suspect]"
			}
			fmt.Printf("%s -> %s%s\n", record.SourceRID, record.TargetRID, marker)
		}
		return nil
	},
}

func init() {
	linkCmd.Flags().Int("revision", 0, "source requirement's current revision")
	unlinkCmd.Flags().Int("revision", 0, "source requirement's current revision")
	rootCmd.AddCommand(linkCmd, unlinkCmd, linksCmd)
}
