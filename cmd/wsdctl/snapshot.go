package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type SnapshotRow struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	CreatedAt   string `json:"created_at"`
	SizeBytes   int64  `json:"size_bytes"`
}

var snapshotName string

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Aliases: []string{"snap"},
	Short:   "Workspace snapshot commands",
}

var snapListCmd = &cobra.Command{
	Use:   "list <workspace-id>",
	Short: "List snapshots of a workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, user)

		var snapshots []SnapshotRow
		if err := client.Get("/api/v1/workspaces/"+args[0]+"/snapshots", &snapshots); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(snapshots)
	},
}

var snapCreateCmd = &cobra.Command{
	Use:   "create <workspace-id>",
	Short: "Create a snapshot of a workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, user)

		req := map[string]string{"name": snapshotName}
		var snap SnapshotRow
		if err := client.Post("/api/v1/workspaces/"+args[0]+"/snapshots", req, &snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(snap)
	},
}

func init() {
	snapCreateCmd.Flags().StringVar(&snapshotName, "name", "", "Snapshot name")
	snapCreateCmd.MarkFlagRequired("name")

	snapshotCmd.AddCommand(snapListCmd, snapCreateCmd)
	rootCmd.AddCommand(snapshotCmd)
}
