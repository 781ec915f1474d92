package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reqwire/reqwire/internal/docstore"
	"github.com/reqwire/reqwire/internal/model"
)

func requirementOutput(req *model.Requirement) map[string]any {
	m := model.RequirementToMap(req)
	m["rid"] = req.RID
	m["doc_prefix"] = req.DocPrefix
	return m
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List requirements with optional filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()

		status, _ := cmd.Flags().GetString("status")
		labels, _ := cmd.Flags().GetStringSlice("label")
		pageNum, _ := cmd.Flags().GetInt("page")
		query, _ := cmd.Flags().GetString("query")
		perPage := viper.GetInt("page_size")

		var (
			page *docstore.RequirementPage
			err  error
		)
		if query != "" {
			page, err = svc.SearchRequirements(docstore.SearchOptions{
				Page: pageNum, PerPage: perPage,
				Status: status, Labels: labels, Query: query,
			})
		} else {
			page, err = svc.ListRequirements(docstore.ListOptions{
				Page: pageNum, PerPage: perPage,
				Status: status, Labels: labels,
			})
		}
		if err != nil {
			return err
		}
		for _, req := range page.Items {
			suspect := ""
			for _, link := range req.Links {
				if link.Suspect {
					suspect = " [suspect]"
					break
				}
			}
			fmt.Printf("%-10s r%-3d %-10s %s%s\n", req.RID, req.Revision, req.Status, req.Title, suspect)
		}
		fmt.Printf("%d of %d (page %d)\n", len(page.Items), page.Total, page.Page)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <rid>",
	Short: "Show one requirement as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		req, err := svc.GetRequirement(args[0])
		if err != nil {
			return err
		}
		return printJSON(requirementOutput(req))
	},
}

var addCmd = &cobra.Command{
	Use:   "add <prefix>",
	Short: "Create a requirement from a JSON payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		raw, _ := cmd.Flags().GetString("data")
		if raw == "" {
			return fmt.Errorf("--data is required")
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return fmt.Errorf("--data must be a JSON object: %w", err)
		}
		req, err := svc.CreateRequirement(args[0], data)
		if err != nil {
			return err
		}
		return printJSON(requirementOutput(req))
	},
}

var patchCmd = &cobra.Command{
	Use:   "patch <rid>",
	Short: "Apply a JSON patch to a requirement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		raw, _ := cmd.Flags().GetString("patch")
		revision, _ := cmd.Flags().GetInt("revision")
		if raw == "" {
			return fmt.Errorf("--patch is required")
		}
		if revision < 1 {
			return fmt.Errorf("--revision is required and must be positive")
		}
		req, err := svc.PatchRequirement(args[0], json.RawMessage(raw), revision)
		if err != nil {
			return err
		}
		return printJSON(requirementOutput(req))
	},
}

var delCmd = &cobra.Command{
	Use:   "del <rid>",
	Short: "Delete a requirement, scrubbing links to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
			plan, err := svc.PlanDeleteRequirement(args[0])
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"rid": plan.RID, "referencing": plan.Referencing})
		}
		revision, _ := cmd.Flags().GetInt("revision")
		if revision < 1 {
			return fmt.Errorf("--revision is required and must be positive")
		}
		canonical, err := svc.DeleteRequirement(args[0], revision)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", canonical)
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <rid> <new-prefix>",
	Short: "Move a requirement into another document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		req, err := svc.MoveRequirement(args[0], args[1], nil)
		if err != nil {
			return err
		}
		fmt.Printf("moved %s -> %s\n", args[0], req.RID)
		return nil
	},
}

func init() {
	listCmd.Flags().String("status", "", "filter by status")
	listCmd.Flags().StringSlice("label", nil, "filter by label (repeatable, all must match)")
	listCmd.Flags().String("query", "", "free-text search")
	listCmd.Flags().Int("page", 1, "page number")

	addCmd.Flags().String("data", "", "requirement payload as a JSON object")

	patchCmd.Flags().String("patch", "", "RFC 6902 patch as a JSON array")
	patchCmd.Flags().Int("revision", 0, "expected current revision")

	delCmd.Flags().Int("revision", 0, "expected current revision")
	delCmd.Flags().Bool("dry-run", false, "preview the cascade without deleting")

	rootCmd.AddCommand(listCmd, showCmd, addCmd, patchCmd, delCmd, moveCmd)
}
