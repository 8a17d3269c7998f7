package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

type OperationRow struct {
	ID            string `json:"id"`
	WorkspaceID   string `json:"workspace_id"`
	OperationType string `json:"operation_type"`
	Status        string `json:"status"`
	StartedAt     string `json:"started_at"`
	CompletedAt   string `json:"completed_at,omitempty"`
	Error         string `json:"error,omitempty"`
}

var (
	opWorkspaceID string
	opType        string
	opStatus      string
)

var operationCmd = &cobra.Command{
	Use:     "operation",
	Aliases: []string{"op"},
	Short:   "Operation audit trail commands",
}

var opListCmd = &cobra.Command{
	Use:   "list",
	Short: "List operations",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, user)

		q := url.Values{}
		if opWorkspaceID != "" {
			q.Set("workspace_id", opWorkspaceID)
		}
		if opType != "" {
			q.Set("type", opType)
		}
		if opStatus != "" {
			q.Set("status", opStatus)
		}
		path := "/api/v1/operations"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var operations []OperationRow
		if err := client.Get(path, &operations); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(operations)
	},
}

var opGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get operation details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, user)

		var op OperationRow
		if err := client.Get("/api/v1/operations/"+args[0], &op); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(op)
	},
}

func init() {
	opListCmd.Flags().StringVar(&opWorkspaceID, "workspace", "", "Filter by workspace id")
	opListCmd.Flags().StringVar(&opType, "type", "", "Filter by operation type")
	opListCmd.Flags().StringVar(&opStatus, "status", "", "Filter by operation status")

	operationCmd.AddCommand(opListCmd, opGetCmd)
	rootCmd.AddCommand(operationCmd)
}
