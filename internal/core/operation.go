package core

import "time"

type OperationType string

const (
	OpCreate          OperationType = "create"
	OpDelete          OperationType = "delete"
	OpStart           OperationType = "start"
	OpStop            OperationType = "stop"
	OpRestart         OperationType = "restart"
	OpRebuild         OperationType = "rebuild"
	OpSnapshot        OperationType = "snapshot"
	OpSnapshotRestore OperationType = "snapshot_restore"
)

// ValidOperationType reports whether s names a known operation type.
func ValidOperationType(s string) bool {
	switch OperationType(s) {
	case OpCreate, OpDelete, OpStart, OpStop, OpRestart, OpRebuild,
		OpSnapshot, OpSnapshotRestore:
		return true
	}
	return false
}

type OperationStatus string

const (
	OperationPending OperationStatus = "pending"
	OperationRunning OperationStatus = "running"
	OperationSuccess OperationStatus = "success"
	OperationFailed  OperationStatus = "failed"
)

// ValidOperationStatus reports whether s names a known operation status.
func ValidOperationStatus(s string) bool {
	switch OperationStatus(s) {
	case OperationPending, OperationRunning, OperationSuccess, OperationFailed:
		return true
	}
	return false
}

// Operation is the audit record of one attempted action against a
// workspace. It is finalized exactly once and never mutated afterwards.
type Operation struct {
	ID            string          `json:"id"`
	WorkspaceID   string          `json:"workspace_id"`
	OperationType OperationType   `json:"operation_type"`
	Status        OperationStatus `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Error         *string         `json:"error,omitempty"`
}

// Finalized reports whether the operation has reached a terminal status.
func (o *Operation) Finalized() bool {
	return o.Status == OperationSuccess || o.Status == OperationFailed
}

// OperationFilters narrows operation list queries.
type OperationFilters struct {
	WorkspaceID string
	Type        OperationType
	Status      OperationStatus
}
