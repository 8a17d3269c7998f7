package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

func printResult(v interface{}) {
	if output == "json" {
		json.NewEncoder(os.Stdout).Encode(v)
		return
	}
	printTable(v)
}

func printTable(v interface{}) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	switch data := v.(type) {
	case []WorkspaceRow:
		if len(data) == 0 {
			fmt.Println("No workspaces found.")
			return
		}
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPROVIDER\tEXPIRES\tCREATED")
		for _, ws := range data {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", ws.ID[:8], ws.Name, ws.Status, ws.Provider, orDash(ws.ExpiresAt), ws.CreatedAt)
		}
	case WorkspaceRow:
		fmt.Fprintf(w, "ID:\t%s\n", data.ID)
		fmt.Fprintf(w, "Name:\t%s\n", data.Name)
		fmt.Fprintf(w, "Owner:\t%s\n", data.Owner)
		fmt.Fprintf(w, "Provider:\t%s\n", data.Provider)
		fmt.Fprintf(w, "Status:\t%s\n", data.Status)
		fmt.Fprintf(w, "Created:\t%s\n", data.CreatedAt)
		if data.ExpiresAt != "" {
			fmt.Fprintf(w, "Expires:\t%s\n", data.ExpiresAt)
		}
		if data.ProviderID != "" {
			fmt.Fprintf(w, "Provider ID:\t%s\n", data.ProviderID)
		}
		if data.ErrorMessage != "" {
			fmt.Fprintf(w, "Error:\t%s\n", data.ErrorMessage)
		}
	case []OperationRow:
		if len(data) == 0 {
			fmt.Println("No operations found.")
			return
		}
		fmt.Fprintln(w, "ID\tWORKSPACE\tTYPE\tSTATUS\tSTARTED")
		for _, op := range data {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", op.ID[:8], op.WorkspaceID[:8], op.OperationType, op.Status, op.StartedAt)
		}
	case OperationRow:
		fmt.Fprintf(w, "ID:\t%s\n", data.ID)
		fmt.Fprintf(w, "Workspace:\t%s\n", data.WorkspaceID)
		fmt.Fprintf(w, "Type:\t%s\n", data.OperationType)
		fmt.Fprintf(w, "Status:\t%s\n", data.Status)
		fmt.Fprintf(w, "Started:\t%s\n", data.StartedAt)
		if data.CompletedAt != "" {
			fmt.Fprintf(w, "Completed:\t%s\n", data.CompletedAt)
		}
		if data.Error != "" {
			fmt.Fprintf(w, "Error:\t%s\n", truncate(data.Error, 120))
		}
	case []SnapshotRow:
		if len(data) == 0 {
			fmt.Println("No snapshots found.")
			return
		}
		fmt.Fprintln(w, "ID\tNAME\tSIZE\tCREATED")
		for _, s := range data {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID[:8], truncate(s.Name, 40), s.SizeBytes, s.CreatedAt)
		}
	case SnapshotRow:
		fmt.Fprintf(w, "ID:\t%s\n", data.ID)
		fmt.Fprintf(w, "Workspace:\t%s\n", data.WorkspaceID)
		fmt.Fprintf(w, "Name:\t%s\n", data.Name)
		fmt.Fprintf(w, "Size:\t%d\n", data.SizeBytes)
		fmt.Fprintf(w, "Created:\t%s\n", data.CreatedAt)
	default:
		json.NewEncoder(os.Stdout).Encode(v)
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
