package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL string
	user   string
	output string
)

var rootCmd = &cobra.Command{
	Use:   "wsdctl",
	Short: "wsd CLI - hosted workspace control plane command line tool",
	Long:  `wsdctl is a command line interface for the wsd workspace control plane.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api-url", "a", "http://localhost:3121", "wsd API URL")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", os.Getenv("USER"), "Caller identity sent as X-User")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
}
