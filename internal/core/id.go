package core

import "github.com/google/uuid"

// NewID generates an opaque unique identifier for workspaces, operations
// and snapshots.
func NewID() string {
	return uuid.New().String()
}
