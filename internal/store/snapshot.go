package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hostbench/wsd/internal/core"
)

const snapshotColumns = `id, workspace_id, name, created_at, size_bytes, metadata`

// CreateSnapshot inserts a snapshot record for an existing workspace.
func (s *Store) CreateSnapshot(ctx context.Context, workspaceID string,
	req core.CreateSnapshotRequest, sizeBytes int64) (*core.Snapshot, error) {

	if req.Name == "" {
		return nil, core.Validationf("snapshot name is required")
	}

	id := core.NewID()
	now := time.Now().UTC().Truncate(time.Second)

	var metadata sql.NullString
	if len(req.Metadata) > 0 {
		metadata = sql.NullString{String: string(req.Metadata), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, workspace_id, name, created_at, size_bytes, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, workspaceID, req.Name, now.Unix(), sizeBytes, metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}

	return s.GetSnapshot(ctx, id)
}

// GetSnapshot returns a single snapshot by id.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*core.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, core.NotFoundf("snapshot not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns a workspace's snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, workspaceID string) ([]core.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE workspace_id = ? ORDER BY created_at DESC, id`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return out, nil
}

func scanSnapshot(row rowScanner) (*core.Snapshot, error) {
	var (
		snap      core.Snapshot
		createdAt int64
		metadata  sql.NullString
	)

	err := row.Scan(&snap.ID, &snap.WorkspaceID, &snap.Name, &createdAt, &snap.SizeBytes, &metadata)
	if err != nil {
		return nil, err
	}

	snap.CreatedAt = time.Unix(createdAt, 0).UTC()
	if metadata.Valid && strings.TrimSpace(metadata.String) != "" {
		snap.Metadata = json.RawMessage(metadata.String)
	}
	return &snap, nil
}
