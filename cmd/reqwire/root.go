package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reqwire/reqwire/internal/audit"
	"github.com/reqwire/reqwire/internal/config"
	"github.com/reqwire/reqwire/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "reqwire",
	Short: "Filesystem-backed requirements store",
	Long: "Reqwire manages requirements as JSON files under a document hierarchy,\n" +
		"with revision-gated edits, trace links, and coverage reporting.",
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .reqwire.yaml)")
	rootCmd.PersistentFlags().StringP("root", "r", "", "requirements root directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".reqwire")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("REQWIRE")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// newService builds a service for a one-shot CLI command: audit log when
// enabled, no filesystem watcher. The cleanup function must be deferred.
func newService() (*service.Service, func()) {
	cfg := config.Load()
	svc := service.New(cfg.Root)
	cleanup := func() {}
	if cfg.AuditEnabled {
		auditor, err := audit.Open(cfg.AuditPath)
		if err != nil {
			log.Printf("WARNING: audit log disabled: %v", err)
		} else {
			svc.AttachAudit(auditor)
			cleanup = func() {
				if err := auditor.Close(); err != nil {
					log.Printf("WARNING: closing audit log: %v", err)
				}
			}
		}
	}
	return svc, cleanup
}

// printJSON renders a command result as indented JSON on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
