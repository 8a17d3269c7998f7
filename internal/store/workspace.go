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

const workspaceColumns = `id, name, owner, repo_url, template, provider, status,
	created_at, updated_at, ttl_seconds, expires_at, metadata,
	provider_id, connection_info, error_message`

// CreateWorkspace inserts a new workspace in status "creating" and
// records its pending Create operation in the same transaction. If a TTL
// was given, expires_at is fixed to created_at + ttl and never
// recomputed afterwards.
func (s *Store) CreateWorkspace(ctx context.Context, req core.CreateWorkspaceRequest) (*core.Workspace, error) {
	if req.Name == "" {
		return nil, core.Validationf("workspace name is required")
	}
	if req.Owner == "" {
		return nil, core.Validationf("workspace owner is required")
	}
	if req.TTLSeconds != nil && *req.TTLSeconds <= 0 {
		return nil, core.Validationf("ttl_seconds must be positive")
	}

	id := core.NewID()
	now := time.Now().UTC().Truncate(time.Second)
	provider := "docker"
	if req.Provider != nil && *req.Provider != "" {
		provider = *req.Provider
	}

	var expiresAt sql.NullInt64
	if req.TTLSeconds != nil {
		expiresAt = sql.NullInt64{Int64: now.Unix() + *req.TTLSeconds, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning create: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, owner, repo_url, template, provider,
			status, created_at, updated_at, ttl_seconds, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, req.Name, req.Owner, nullString(req.RepoURL), nullString(req.Template),
		provider, string(core.WorkspaceCreating), now.Unix(), now.Unix(),
		nullInt64(req.TTLSeconds), expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting workspace: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO operations (id, workspace_id, operation_type, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		core.NewID(), id, string(core.OpCreate), string(core.OperationPending), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("recording create operation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing create: %w", err)
	}

	return s.GetWorkspaceByID(ctx, id)
}

// GetWorkspace returns the workspace only if it belongs to owner.
// Foreign callers get not-found, never forbidden, so ids don't leak.
func (s *Store) GetWorkspace(ctx context.Context, id, owner string) (*core.Workspace, error) {
	ws, err := s.GetWorkspaceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ws.Owner != owner {
		return nil, core.NotFoundf("workspace not found: %s", id)
	}
	return ws, nil
}

// GetWorkspaceByID is the unscoped lookup used by the background loops.
func (s *Store) GetWorkspaceByID(ctx context.Context, id string) (*core.Workspace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id)
	ws, err := scanWorkspace(row)
	if err == sql.ErrNoRows {
		return nil, core.NotFoundf("workspace not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying workspace: %w", err)
	}
	return ws, nil
}

// ListWorkspaces returns workspaces matching the filters, newest first.
func (s *Store) ListWorkspaces(ctx context.Context, filters core.WorkspaceFilters) ([]core.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE 1=1`
	var args []interface{}

	if filters.Owner != "" {
		query += ` AND owner = ?`
		args = append(args, filters.Owner)
	}
	if filters.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filters.Status))
	}
	query += ` ORDER BY created_at DESC, id`

	return s.queryWorkspaces(ctx, query, args...)
}

// ListPendingCreation returns every workspace still in "creating",
// oldest first so long-waiting workspaces are attempted first.
func (s *Store) ListPendingCreation(ctx context.Context) ([]core.Workspace, error) {
	return s.queryWorkspaces(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE status = ? ORDER BY created_at, id`,
		string(core.WorkspaceCreating))
}

// ListExpired returns every workspace whose lease ran out at or before
// now, regardless of status.
func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]core.Workspace, error) {
	return s.queryWorkspaces(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces
		 WHERE expires_at IS NOT NULL AND expires_at <= ? ORDER BY expires_at, id`,
		now.Unix())
}

// UpdateStatus is the sole status mutation path. It is a compare-and-swap:
// the write only lands if the workspace still exists and its status still
// equals expected, which serializes the provisioner, the janitor and
// explicit deletes against each other. A miss returns a conflict error.
func (s *Store) UpdateStatus(ctx context.Context, id string, expected, next core.WorkspaceStatus,
	providerID *string, connectionInfo json.RawMessage, errorMessage *string) error {

	var connInfo sql.NullString
	if len(connectionInfo) > 0 {
		connInfo = sql.NullString{String: string(connectionInfo), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE workspaces
		SET status = ?, updated_at = ?, provider_id = ?, connection_info = ?, error_message = ?
		WHERE id = ? AND status = ?`,
		string(next), time.Now().UTC().Unix(), nullString(providerID), connInfo,
		nullString(errorMessage), id, string(expected),
	)
	if err != nil {
		return fmt.Errorf("updating workspace status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating workspace status: %w", err)
	}
	if affected == 0 {
		return core.NewAppError(core.ErrConflict,
			fmt.Sprintf("workspace %s is no longer in status %q", id, expected))
	}
	return nil
}

// DeleteWorkspace removes the owner's workspace row; operations and
// snapshots cascade with it. Absent or foreign rows yield not-found.
func (s *Store) DeleteWorkspace(ctx context.Context, id, owner string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workspaces WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	if affected == 0 {
		return core.NotFoundf("workspace not found: %s", id)
	}
	return nil
}

// DeleteWorkspaceByID removes a workspace row regardless of owner.
// Idempotent: deleting an already-absent workspace is not an error, so
// the janitor can safely run twice against the same expired workspace.
func (s *Store) DeleteWorkspaceByID(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	return nil
}

func (s *Store) queryWorkspaces(ctx context.Context, query string, args ...interface{}) ([]core.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workspaces: %w", err)
	}
	defer rows.Close()

	var out []core.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		out = append(out, *ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspaces: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkspace(row rowScanner) (*core.Workspace, error) {
	var (
		ws                       core.Workspace
		repoURL, template        sql.NullString
		status                   string
		createdAt, updatedAt     int64
		ttlSeconds, expiresAt    sql.NullInt64
		metadata, connInfo       sql.NullString
		providerID, errorMessage sql.NullString
	)

	err := row.Scan(&ws.ID, &ws.Name, &ws.Owner, &repoURL, &template, &ws.Provider,
		&status, &createdAt, &updatedAt, &ttlSeconds, &expiresAt, &metadata,
		&providerID, &connInfo, &errorMessage)
	if err != nil {
		return nil, err
	}

	ws.RepoURL = stringPtr(repoURL)
	ws.Template = stringPtr(template)
	ws.Status = core.WorkspaceStatus(status)
	ws.CreatedAt = time.Unix(createdAt, 0).UTC()
	ws.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	ws.TTLSeconds = int64Ptr(ttlSeconds)
	ws.ExpiresAt = timePtr(expiresAt)
	ws.ProviderID = stringPtr(providerID)
	ws.ErrorMessage = stringPtr(errorMessage)
	if metadata.Valid && strings.TrimSpace(metadata.String) != "" {
		ws.Metadata = json.RawMessage(metadata.String)
	}
	if connInfo.Valid && strings.TrimSpace(connInfo.String) != "" {
		ws.ConnectionInfo = json.RawMessage(connInfo.String)
	}
	return &ws, nil
}
