package main

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/reqwire/reqwire/internal/config"
	"github.com/reqwire/reqwire/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := server.New(config.Load())
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		defer cleanup()
		return mcpserver.ServeStdio(s)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the reqwire version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reqwire v%s\n", server.Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
