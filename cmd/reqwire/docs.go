package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage documents",
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents and their hierarchy",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		docs, err := svc.ListDocuments()
		if err != nil {
			return err
		}
		prefixes := make([]string, 0, len(docs))
		for prefix := range docs {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)
		for _, prefix := range prefixes {
			doc := docs[prefix]
			parent := ""
			if doc.Parent != "" {
				parent = " <- " + doc.Parent
			}
			fmt.Printf("%-10s %s%s\n", doc.Prefix, doc.Title, parent)
		}
		return nil
	},
}

var docAddCmd = &cobra.Command{
	Use:   "add <prefix>",
	Short: "Create a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		title, _ := cmd.Flags().GetString("title")
		parent, _ := cmd.Flags().GetString("parent")
		doc, err := svc.CreateDocument(args[0], title, parent)
		if err != nil {
			return err
		}
		fmt.Printf("created %s (%s)\n", doc.Prefix, doc.Title)
		return nil
	},
}

var docDelCmd = &cobra.Command{
	Use:   "del <prefix>",
	Short: "Delete a document and its subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
			plan, err := svc.PlanDeleteDocument(args[0])
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"documents":   plan.Prefixes,
				"items":       plan.Items,
				"referencing": plan.Referencing,
			})
		}
		removed, err := svc.DeleteDocument(args[0])
		if err != nil {
			return err
		}
		for _, prefix := range removed {
			fmt.Printf("deleted %s\n", prefix)
		}
		return nil
	},
}

var docLabelsCmd = &cobra.Command{
	Use:   "labels <prefix>",
	Short: "Show the inherited label vocabulary of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup := newService()
		defer cleanup()
		defs, freeform, err := svc.CollectLabelDefs(args[0])
		if err != nil {
			return err
		}
		for _, def := range defs {
			fmt.Printf("%-20s %-30s %s\n", def.Key, def.Title, def.Color)
		}
		if freeform {
			fmt.Println("(free-form labels allowed)")
		}
		return nil
	},
}

func init() {
	docAddCmd.Flags().String("title", "", "document title (defaults to the prefix)")
	docAddCmd.Flags().String("parent", "", "parent document prefix")
	docDelCmd.Flags().Bool("dry-run", false, "preview the cascade without deleting")
	docCmd.AddCommand(docListCmd, docAddCmd, docDelCmd, docLabelsCmd)
	rootCmd.AddCommand(docCmd)
}
