package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hostbench/wsd/internal/api/middleware"
	"github.com/hostbench/wsd/internal/core"
)

// ListSnapshots returns a workspace's snapshots.
func (a *API) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	ws, err := a.store.GetWorkspace(r.Context(), chi.URLParam(r, "id"), middleware.GetIdentity(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	snapshots, err := a.store.ListSnapshots(r.Context(), ws.ID)
	if err != nil {
		a.log.Error("list snapshots failed", zap.Error(err))
		WriteError(w, err)
		return
	}
	if snapshots == nil {
		snapshots = []core.Snapshot{}
	}
	WriteJSON(w, http.StatusOK, snapshots)
}

// CreateSnapshot records a named point-in-time capture of the workspace.
func (a *API) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	ws, err := a.store.GetWorkspace(r.Context(), chi.URLParam(r, "id"), middleware.GetIdentity(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	var req core.CreateSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.Validationf("invalid request body"))
		return
	}

	opID, err := a.store.RecordOperation(r.Context(), ws.ID, core.OpSnapshot, core.OperationRunning)
	if err != nil {
		a.log.Warn("recording snapshot operation failed", zap.Error(err))
	}

	snap, err := a.store.CreateSnapshot(r.Context(), ws.ID, req, 0)
	if err != nil {
		a.finishOperation(r.Context(), opID, core.OperationFailed, err)
		WriteError(w, err)
		return
	}
	a.finishOperation(r.Context(), opID, core.OperationSuccess, nil)

	WriteJSON(w, http.StatusCreated, snap)
}
