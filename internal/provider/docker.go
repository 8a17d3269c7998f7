package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hostbench/wsd/internal/core"
)

// Docker drives workspace containers through the docker CLI. Each
// workspace maps to one long-lived container labeled with its id.
type Docker struct {
	binary string
}

func NewDocker() *Docker {
	return &Docker{binary: "docker"}
}

func (d *Docker) Name() string {
	return "docker"
}

// templateImages maps provisioning templates to container images.
// Unknown templates fall back to the base image.
var templateImages = map[string]string{
	"nodejs": "node:20-bookworm",
	"node":   "node:20-bookworm",
	"python": "python:3.11-bookworm",
	"py":     "python:3.11-bookworm",
	"go":     "golang:1.25-bookworm",
	"rust":   "rust:1-bookworm",
}

const baseImage = "ubuntu:24.04"

func (d *Docker) Provision(ctx context.Context, ws *core.Workspace) (*ProvisionResult, error) {
	image := baseImage
	if ws.Template != nil {
		if img, ok := templateImages[*ws.Template]; ok {
			image = img
		}
	}

	containerName := containerNameFor(ws)
	args := []string{
		"run", "-d",
		"--name", containerName,
		"--label", "wsd.workspace=" + ws.ID,
		"--label", "wsd.owner=" + ws.Owner,
	}
	if ws.RepoURL != nil {
		args = append(args, "--env", "WSD_REPO_URL="+*ws.RepoURL)
	}
	args = append(args, image, "sleep", "infinity")

	out, err := d.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	containerID := strings.TrimSpace(out)

	connInfo, _ := json.Marshal(map[string]string{
		"container_id":   containerID,
		"container_name": containerName,
		"image":          image,
		"access_command": fmt.Sprintf("docker exec -it %s /bin/bash", containerName),
	})

	return &ProvisionResult{
		ProviderID:     containerID,
		ConnectionInfo: connInfo,
	}, nil
}

func (d *Docker) Teardown(ctx context.Context, ws *core.Workspace) error {
	if ws.ProviderID == nil {
		// Nothing was ever provisioned.
		return nil
	}
	_, err := d.run(ctx, "rm", "-f", *ws.ProviderID)
	return err
}

func (d *Docker) Start(ctx context.Context, ws *core.Workspace) error {
	if ws.ProviderID == nil {
		return fmt.Errorf("workspace %s has no container", ws.ID)
	}
	_, err := d.run(ctx, "start", *ws.ProviderID)
	return err
}

func (d *Docker) Stop(ctx context.Context, ws *core.Workspace) error {
	if ws.ProviderID == nil {
		return fmt.Errorf("workspace %s has no container", ws.ID)
	}
	_, err := d.run(ctx, "stop", *ws.ProviderID)
	return err
}

func (d *Docker) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, d.binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("docker %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// containerNameFor derives a stable, unique container name. Workspace
// names are caller-supplied and not unique across owners, so the id
// disambiguates.
func containerNameFor(ws *core.Workspace) string {
	id := ws.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("wsd-%s-%s", sanitizeName(ws.Name), id)
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
