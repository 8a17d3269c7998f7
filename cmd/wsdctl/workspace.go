package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type WorkspaceRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Owner        string `json:"owner"`
	Provider     string `json:"provider"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	ProviderID   string `json:"provider_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

var (
	createTemplate string
	createRepoURL  string
	createProvider string
	createTTL      int64
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Workspace management commands",
}

var wsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new workspace (provisioned asynchronously)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, user)

		req := map[string]interface{}{"name": args[0]}
		if createTemplate != "" {
			req["template"] = createTemplate
		}
		if createRepoURL != "" {
			req["repo_url"] = createRepoURL
		}
		if createProvider != "" {
			req["provider"] = createProvider
		}
		if createTTL > 0 {
			req["ttl_seconds"] = createTTL
		}

		var ws WorkspaceRow
		if err := client.Post("/api/v1/workspaces", req, &ws); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Workspace %s created (status: %s).\n", ws.ID, ws.Status)
		fmt.Printf("Check progress: wsdctl workspace get %s\n", ws.ID)
	},
}

var wsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, user)

		var workspaces []WorkspaceRow
		if err := client.Get("/api/v1/workspaces", &workspaces); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(workspaces)
	},
}

var wsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get workspace details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, user)

		var ws WorkspaceRow
		if err := client.Get("/api/v1/workspaces/"+args[0], &ws); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(ws)
	},
}

var wsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a workspace and destroy its backing resource",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, user)

		var resp struct {
			Message string `json:"message"`
		}
		if err := client.Delete("/api/v1/workspaces/"+args[0], &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(resp.Message)
	},
}

var wsStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start a stopped workspace",
	Args:  cobra.ExactArgs(1),
	Run:   lifecycleRun("start"),
}

var wsStopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop a running workspace",
	Args:  cobra.ExactArgs(1),
	Run:   lifecycleRun("stop"),
}

var wsRestartCmd = &cobra.Command{
	Use:   "restart <id>",
	Short: "Restart a running workspace",
	Args:  cobra.ExactArgs(1),
	Run:   lifecycleRun("restart"),
}

func lifecycleRun(action string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, user)

		var ws WorkspaceRow
		if err := client.Post("/api/v1/workspaces/"+args[0]+"/"+action, nil, &ws); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workspace %s is %s.\n", ws.ID, ws.Status)
	}
}

func init() {
	wsCreateCmd.Flags().StringVar(&createTemplate, "template", "", "Provisioning template (nodejs, python, ...)")
	wsCreateCmd.Flags().StringVar(&createRepoURL, "repo-url", "", "Repository to clone into the workspace")
	wsCreateCmd.Flags().StringVar(&createProvider, "provider", "", "Backend provider (docker, hetzner)")
	wsCreateCmd.Flags().Int64Var(&createTTL, "ttl", 0, "Lease in seconds; workspace is reaped after it expires")

	workspaceCmd.AddCommand(wsCreateCmd, wsListCmd, wsGetCmd, wsDeleteCmd,
		wsStartCmd, wsStopCmd, wsRestartCmd)
	rootCmd.AddCommand(workspaceCmd)
}
