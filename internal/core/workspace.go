package core

import (
	"encoding/json"
	"time"
)

type WorkspaceStatus string

const (
	WorkspaceCreating WorkspaceStatus = "creating"
	WorkspaceRunning  WorkspaceStatus = "running"
	WorkspaceStopped  WorkspaceStatus = "stopped"
	WorkspaceFailed   WorkspaceStatus = "failed"
)

// ValidWorkspaceStatus reports whether s is a known status value.
func ValidWorkspaceStatus(s string) bool {
	switch WorkspaceStatus(s) {
	case WorkspaceCreating, WorkspaceRunning, WorkspaceStopped, WorkspaceFailed:
		return true
	}
	return false
}

type Workspace struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Owner          string          `json:"owner"`
	RepoURL        *string         `json:"repo_url,omitempty"`
	Template       *string         `json:"template,omitempty"`
	Provider       string          `json:"provider"`
	Status         WorkspaceStatus `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	TTLSeconds     *int64          `json:"ttl_seconds,omitempty"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	ProviderID     *string         `json:"provider_id,omitempty"`
	ConnectionInfo json.RawMessage `json:"connection_info,omitempty"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
}

// Expired reports whether the workspace lease has run out at the given
// instant. Workspaces without a TTL never expire.
func (w *Workspace) Expired(now time.Time) bool {
	return w.ExpiresAt != nil && !w.ExpiresAt.After(now)
}

// CanTransition reports whether moving from the workspace's current
// status to next is a legal state-machine edge. Deletion is row removal,
// not a status, and is allowed from any state.
func (w *Workspace) CanTransition(next WorkspaceStatus) bool {
	switch w.Status {
	case WorkspaceCreating:
		return next == WorkspaceRunning || next == WorkspaceFailed
	case WorkspaceRunning:
		return next == WorkspaceStopped
	case WorkspaceStopped:
		return next == WorkspaceRunning
	case WorkspaceFailed:
		// Terminal for reconciliation: only delete-and-recreate recovers.
		return false
	}
	return false
}

// CreateWorkspaceRequest is the caller-facing creation payload. Owner is
// always overridden with the verified caller identity before use.
type CreateWorkspaceRequest struct {
	Name       string  `json:"name"`
	Owner      string  `json:"owner"`
	RepoURL    *string `json:"repo_url,omitempty"`
	Template   *string `json:"template,omitempty"`
	Provider   *string `json:"provider,omitempty"`
	TTLSeconds *int64  `json:"ttl_seconds,omitempty"`
}

// WorkspaceFilters narrows workspace list queries.
type WorkspaceFilters struct {
	Owner  string
	Status WorkspaceStatus
}
