package core

import (
	"encoding/json"
	"time"
)

// Snapshot is a named, point-in-time capture of a workspace's persistent
// state. Snapshots never outlive their workspace.
type Snapshot struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	Name        string          `json:"name"`
	CreatedAt   time.Time       `json:"created_at"`
	SizeBytes   int64           `json:"size_bytes"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

type CreateSnapshotRequest struct {
	Name     string          `json:"name"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}
