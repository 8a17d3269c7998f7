// Package provider holds the provisioning contract the control plane
// depends on. The orchestration core only ever sees this interface; the
// concrete backend (container engine, VM cloud) is chosen per workspace
// through the registry.
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hostbench/wsd/internal/core"
)

// ProvisionResult is what a successful provision reports back: the
// backend-assigned handle and an opaque connection payload (addresses,
// ports, access command) whose shape is provider-specific.
type ProvisionResult struct {
	ProviderID     string
	ConnectionInfo json.RawMessage
}

// Provider creates and destroys the compute backend for one workspace.
// Implementations own their retry and timeout behavior; the core treats
// any returned error as terminal for that attempt.
type Provider interface {
	Name() string
	Provision(ctx context.Context, ws *core.Workspace) (*ProvisionResult, error)
	Teardown(ctx context.Context, ws *core.Workspace) error
	Start(ctx context.Context, ws *core.Workspace) error
	Stop(ctx context.Context, ws *core.Workspace) error
}

// Registry resolves a workspace's provider tag to an implementation.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %q", name)
	}
	return p, nil
}

// ForWorkspace resolves the provider named by the workspace's tag.
func (r *Registry) ForWorkspace(ws *core.Workspace) (Provider, error) {
	return r.Get(ws.Provider)
}
