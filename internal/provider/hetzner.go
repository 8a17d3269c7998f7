package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/exp/actionutil"

	"github.com/hostbench/wsd/internal/core"
)

// Hetzner provisions workspaces as Hetzner Cloud servers.
type Hetzner struct {
	client     *hcloud.Client
	serverType string
	location   string
	image      string
	sshKeyIDs  []int64
}

type HetznerConfig struct {
	Token      string
	ServerType string
	Location   string
	Image      string
	SSHKeyIDs  []int64
}

func NewHetzner(cfg HetznerConfig) (*Hetzner, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("hetzner API token is required")
	}
	if cfg.ServerType == "" {
		cfg.ServerType = "cx22"
	}
	if cfg.Location == "" {
		cfg.Location = "fsn1"
	}
	if cfg.Image == "" {
		cfg.Image = "ubuntu-24.04"
	}

	client := hcloud.NewClient(
		hcloud.WithToken(cfg.Token),
		hcloud.WithApplication("wsd", "1.0.0"),
	)

	return &Hetzner{
		client:     client,
		serverType: cfg.ServerType,
		location:   cfg.Location,
		image:      cfg.Image,
		sshKeyIDs:  cfg.SSHKeyIDs,
	}, nil
}

func (h *Hetzner) Name() string {
	return "hetzner"
}

func (h *Hetzner) Provision(ctx context.Context, ws *core.Workspace) (*ProvisionResult, error) {
	sshKeys := make([]*hcloud.SSHKey, len(h.sshKeyIDs))
	for i, id := range h.sshKeyIDs {
		sshKeys[i] = &hcloud.SSHKey{ID: id}
	}

	opts := hcloud.ServerCreateOpts{
		Name:       serverNameFor(ws),
		ServerType: &hcloud.ServerType{Name: h.serverType},
		Location:   &hcloud.Location{Name: h.location},
		Image:      &hcloud.Image{Name: h.image},
		SSHKeys:    sshKeys,
		Labels: map[string]string{
			"managed-by":    "wsd",
			"wsd-workspace": ws.ID,
		},
		StartAfterCreate: hcloud.Ptr(true),
	}

	result, _, err := h.client.Server.Create(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}

	if err := h.client.Action.WaitFor(ctx, actionutil.AppendNext(result.Action, result.NextActions)...); err != nil {
		// The half-created server would otherwise leak.
		h.client.Server.Delete(ctx, result.Server)
		return nil, fmt.Errorf("wait for server: %w", err)
	}

	server, _, err := h.client.Server.GetByID(ctx, result.Server.ID)
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}

	publicIP := server.PublicNet.IPv4.IP.String()
	connInfo, _ := json.Marshal(map[string]string{
		"server_id":      strconv.FormatInt(server.ID, 10),
		"server_name":    server.Name,
		"public_ip":      publicIP,
		"access_command": fmt.Sprintf("ssh root@%s", publicIP),
	})

	return &ProvisionResult{
		ProviderID:     strconv.FormatInt(server.ID, 10),
		ConnectionInfo: connInfo,
	}, nil
}

func (h *Hetzner) Teardown(ctx context.Context, ws *core.Workspace) error {
	if ws.ProviderID == nil {
		return nil
	}
	serverID, err := strconv.ParseInt(*ws.ProviderID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid server ID: %w", err)
	}

	result, _, err := h.client.Server.DeleteWithResult(ctx, &hcloud.Server{ID: serverID})
	if err != nil {
		return fmt.Errorf("delete server: %w", err)
	}
	if result.Action != nil {
		if err := h.client.Action.WaitFor(ctx, result.Action); err != nil {
			return fmt.Errorf("wait for deletion: %w", err)
		}
	}
	return nil
}

func (h *Hetzner) Start(ctx context.Context, ws *core.Workspace) error {
	server, err := h.server(ws)
	if err != nil {
		return err
	}
	action, _, err := h.client.Server.Poweron(ctx, server)
	if err != nil {
		return fmt.Errorf("power on server: %w", err)
	}
	return h.client.Action.WaitFor(ctx, action)
}

func (h *Hetzner) Stop(ctx context.Context, ws *core.Workspace) error {
	server, err := h.server(ws)
	if err != nil {
		return err
	}
	action, _, err := h.client.Server.Shutdown(ctx, server)
	if err != nil {
		return fmt.Errorf("shut down server: %w", err)
	}
	return h.client.Action.WaitFor(ctx, action)
}

func (h *Hetzner) server(ws *core.Workspace) (*hcloud.Server, error) {
	if ws.ProviderID == nil {
		return nil, fmt.Errorf("workspace %s has no server", ws.ID)
	}
	serverID, err := strconv.ParseInt(*ws.ProviderID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid server ID: %w", err)
	}
	return &hcloud.Server{ID: serverID}, nil
}

// serverNameFor derives a DNS-safe, unique server name from the
// workspace.
func serverNameFor(ws *core.Workspace) string {
	id := ws.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("wsd-%s-%s", sanitizeName(ws.Name), id)
}
