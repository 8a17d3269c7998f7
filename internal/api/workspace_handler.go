package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hostbench/wsd/internal/api/middleware"
	"github.com/hostbench/wsd/internal/core"
	"github.com/hostbench/wsd/internal/observability"
)

// teardownTimeout bounds the best-effort provider call inside DELETE so
// a hung backend can't wedge the handler.
const teardownTimeout = 2 * time.Minute

// ListWorkspaces lists the caller's workspaces.
func (a *API) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetIdentity(r)

	workspaces, err := a.store.ListWorkspaces(r.Context(), core.WorkspaceFilters{Owner: owner})
	if err != nil {
		a.log.Error("list workspaces failed", zap.Error(err))
		WriteError(w, err)
		return
	}
	if workspaces == nil {
		workspaces = []core.Workspace{}
	}
	WriteJSON(w, http.StatusOK, workspaces)
}

// CreateWorkspace inserts a new workspace and returns it immediately in
// status "creating"; the provisioner picks it up asynchronously.
func (a *API) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req core.CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.Validationf("invalid request body"))
		return
	}

	// The owner is always the verified caller, never the request body.
	req.Owner = middleware.GetIdentity(r)

	ws, err := a.store.CreateWorkspace(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ws)
}

// GetWorkspace returns one of the caller's workspaces. Workspaces owned
// by other identities are indistinguishable from absent ones.
func (a *API) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := a.store.GetWorkspace(r.Context(), chi.URLParam(r, "id"), middleware.GetIdentity(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ws)
}

// DeleteWorkspace tears down the backing resource (best effort) and
// removes the workspace row with its operations and snapshots.
func (a *API) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetIdentity(r)
	id := chi.URLParam(r, "id")

	ws, err := a.store.GetWorkspace(r.Context(), id, owner)
	if err != nil {
		WriteError(w, err)
		return
	}

	// The operation record is cascade-deleted moments later, but an
	// aborted delete leaves an audit trace this way.
	if _, err := a.store.RecordOperation(r.Context(), ws.ID, core.OpDelete, core.OperationRunning); err != nil {
		a.log.Warn("recording delete operation failed", zap.Error(err))
	}

	if ws.ProviderID != nil {
		a.teardown(r.Context(), ws)
	}

	if err := a.store.DeleteWorkspace(r.Context(), id, owner); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Workspace deleted"})
}

// teardown destroys the backing resource, logging failures instead of
// surfacing them: the record must go away even when the backend can't.
func (a *API) teardown(ctx context.Context, ws *core.Workspace) {
	prov, err := a.providers.ForWorkspace(ws)
	if err != nil {
		a.log.Error("no provider for workspace teardown",
			zap.String("workspace_id", ws.ID), zap.Error(err))
		return
	}

	teardownCtx, cancel := context.WithTimeout(ctx, teardownTimeout)
	defer cancel()
	if err := prov.Teardown(teardownCtx, ws); err != nil {
		observability.TeardownFailTotal.Inc()
		a.log.Error("teardown failed, resource may leak",
			zap.String("workspace_id", ws.ID),
			zap.String("provider_id", *ws.ProviderID),
			zap.Error(err))
	}
}

// StartWorkspace powers a stopped workspace back on.
func (a *API) StartWorkspace(w http.ResponseWriter, r *http.Request) {
	a.lifecycleOp(w, r, core.OpStart, core.WorkspaceStopped, core.WorkspaceRunning,
		func(ctx context.Context, ws *core.Workspace) error {
			prov, err := a.providers.ForWorkspace(ws)
			if err != nil {
				return err
			}
			return prov.Start(ctx, ws)
		})
}

// StopWorkspace powers a running workspace off. The lease keeps ticking;
// stopping does not extend expiry.
func (a *API) StopWorkspace(w http.ResponseWriter, r *http.Request) {
	a.lifecycleOp(w, r, core.OpStop, core.WorkspaceRunning, core.WorkspaceStopped,
		func(ctx context.Context, ws *core.Workspace) error {
			prov, err := a.providers.ForWorkspace(ws)
			if err != nil {
				return err
			}
			return prov.Stop(ctx, ws)
		})
}

// RestartWorkspace stops and starts a running workspace; its status is
// unchanged afterwards.
func (a *API) RestartWorkspace(w http.ResponseWriter, r *http.Request) {
	a.lifecycleOp(w, r, core.OpRestart, core.WorkspaceRunning, core.WorkspaceRunning,
		func(ctx context.Context, ws *core.Workspace) error {
			prov, err := a.providers.ForWorkspace(ws)
			if err != nil {
				return err
			}
			if err := prov.Stop(ctx, ws); err != nil {
				return err
			}
			return prov.Start(ctx, ws)
		})
}

// lifecycleOp runs a synchronous provider action wrapped in an Operation
// record and, when the status actually changes, a compare-and-swap
// status update.
func (a *API) lifecycleOp(w http.ResponseWriter, r *http.Request, opType core.OperationType,
	from, to core.WorkspaceStatus, action func(context.Context, *core.Workspace) error) {

	owner := middleware.GetIdentity(r)
	id := chi.URLParam(r, "id")

	ws, err := a.store.GetWorkspace(r.Context(), id, owner)
	if err != nil {
		WriteError(w, err)
		return
	}
	if ws.Status != from {
		WriteError(w, core.NewAppError(core.ErrConflict,
			fmt.Sprintf("workspace is not %s", from)))
		return
	}

	opID, err := a.store.RecordOperation(r.Context(), ws.ID, opType, core.OperationRunning)
	if err != nil {
		a.log.Warn("recording operation failed", zap.Error(err))
	}

	if err := action(r.Context(), ws); err != nil {
		a.log.Error("provider call failed",
			zap.String("workspace_id", ws.ID),
			zap.String("operation", string(opType)),
			zap.Error(err))
		a.finishOperation(r.Context(), opID, core.OperationFailed, err)
		WriteError(w, core.NewAppError(core.ErrProvider, "provider "+string(opType)+" failed"))
		return
	}

	if from != to {
		err = a.store.UpdateStatus(r.Context(), ws.ID, from, to,
			ws.ProviderID, ws.ConnectionInfo, nil)
		if err != nil {
			a.finishOperation(r.Context(), opID, core.OperationFailed, err)
			WriteError(w, err)
			return
		}
		observability.WorkspaceStateTransitions.WithLabelValues(string(from), string(to)).Inc()
	}

	a.finishOperation(r.Context(), opID, core.OperationSuccess, nil)

	ws, err = a.store.GetWorkspace(r.Context(), id, owner)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ws)
}

func (a *API) finishOperation(ctx context.Context, opID string, status core.OperationStatus, opErr error) {
	if opID == "" {
		return
	}
	var msg *string
	if opErr != nil {
		s := opErr.Error()
		msg = &s
	}
	if err := a.store.FinishOperation(ctx, opID, status, msg); err != nil {
		a.log.Warn("finalizing operation failed", zap.Error(err))
	}
}
