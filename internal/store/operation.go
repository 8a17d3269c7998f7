package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hostbench/wsd/internal/core"
)

const operationColumns = `id, workspace_id, operation_type, status, started_at, completed_at, error`

// RecordOperation inserts a new audit record for an attempted action
// against the workspace and returns its id.
func (s *Store) RecordOperation(ctx context.Context, workspaceID string,
	opType core.OperationType, status core.OperationStatus) (string, error) {

	id := core.NewID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (id, workspace_id, operation_type, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, workspaceID, string(opType), string(status), time.Now().UTC().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("recording operation: %w", err)
	}
	return id, nil
}

// StartOperation moves a pending operation to running. Already-finalized
// operations are left untouched.
func (s *Store) StartOperation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE operations SET status = ?
		WHERE id = ? AND status = ?`,
		string(core.OperationRunning), id, string(core.OperationPending),
	)
	if err != nil {
		return fmt.Errorf("starting operation: %w", err)
	}
	return nil
}

// FinishOperation finalizes an operation exactly once: the write only
// lands while the operation is still pending or running.
func (s *Store) FinishOperation(ctx context.Context, id string,
	status core.OperationStatus, opErr *string) error {

	if status != core.OperationSuccess && status != core.OperationFailed {
		return core.Validationf("operation finalization status must be success or failed, got %q", status)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE operations SET status = ?, completed_at = ?, error = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(status), time.Now().UTC().Unix(), nullString(opErr),
		id, string(core.OperationPending), string(core.OperationRunning),
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

// GetOperation returns a single operation by id.
func (s *Store) GetOperation(ctx context.Context, id string) (*core.Operation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE id = ?`, id)
	op, err := scanOperation(row)
	if err == sql.ErrNoRows {
		return nil, core.NotFoundf("operation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying operation: %w", err)
	}
	return op, nil
}

// FindOperation returns the most recent operation of the given type for
// a workspace, or nil when none exists. The provisioner uses it to claim
// the pending Create record written at workspace creation.
func (s *Store) FindOperation(ctx context.Context, workspaceID string,
	opType core.OperationType) (*core.Operation, error) {

	row := s.db.QueryRowContext(ctx, `
		SELECT `+operationColumns+` FROM operations
		WHERE workspace_id = ? AND operation_type = ?
		ORDER BY started_at DESC, id LIMIT 1`,
		workspaceID, string(opType))
	op, err := scanOperation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying operation: %w", err)
	}
	return op, nil
}

// ListOperations returns the audit trail matching the filters, newest
// first with id as tiebreaker so ordering is stable within a call.
func (s *Store) ListOperations(ctx context.Context, filters core.OperationFilters) ([]core.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE 1=1`
	var args []interface{}

	if filters.WorkspaceID != "" {
		query += ` AND workspace_id = ?`
		args = append(args, filters.WorkspaceID)
	}
	if filters.Type != "" {
		query += ` AND operation_type = ?`
		args = append(args, string(filters.Type))
	}
	if filters.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filters.Status))
	}
	query += ` ORDER BY started_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()

	var out []core.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		out = append(out, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operations: %w", err)
	}
	return out, nil
}

func scanOperation(row rowScanner) (*core.Operation, error) {
	var (
		op          core.Operation
		opType      string
		status      string
		startedAt   int64
		completedAt sql.NullInt64
		opErr       sql.NullString
	)

	err := row.Scan(&op.ID, &op.WorkspaceID, &opType, &status, &startedAt, &completedAt, &opErr)
	if err != nil {
		return nil, err
	}

	op.OperationType = core.OperationType(opType)
	op.Status = core.OperationStatus(status)
	op.StartedAt = time.Unix(startedAt, 0).UTC()
	op.CompletedAt = timePtr(completedAt)
	op.Error = stringPtr(opErr)
	return &op, nil
}
