package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hostbench/wsd/internal/api/middleware"
	"github.com/hostbench/wsd/internal/core"
)

// ListOperations returns the audit trail, filtered by the optional
// workspace_id, type and status query parameters and always scoped to
// workspaces the caller owns.
func (a *API) ListOperations(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetIdentity(r)
	q := r.URL.Query()

	filters := core.OperationFilters{WorkspaceID: q.Get("workspace_id")}
	if t := q.Get("type"); t != "" {
		if !core.ValidOperationType(t) {
			WriteError(w, core.Validationf("unknown operation type: %q", t))
			return
		}
		filters.Type = core.OperationType(t)
	}
	if s := q.Get("status"); s != "" {
		if !core.ValidOperationStatus(s) {
			WriteError(w, core.Validationf("unknown operation status: %q", s))
			return
		}
		filters.Status = core.OperationStatus(s)
	}

	// An explicit workspace filter must belong to the caller.
	if filters.WorkspaceID != "" {
		if _, err := a.store.GetWorkspace(r.Context(), filters.WorkspaceID, owner); err != nil {
			WriteError(w, err)
			return
		}
	}

	operations, err := a.store.ListOperations(r.Context(), filters)
	if err != nil {
		a.log.Error("list operations failed", zap.Error(err))
		WriteError(w, err)
		return
	}

	// Without a workspace filter, drop operations on other owners'
	// workspaces.
	if filters.WorkspaceID == "" {
		owned, err := a.store.ListWorkspaces(r.Context(), core.WorkspaceFilters{Owner: owner})
		if err != nil {
			WriteError(w, err)
			return
		}
		ownedIDs := make(map[string]struct{}, len(owned))
		for _, ws := range owned {
			ownedIDs[ws.ID] = struct{}{}
		}
		filtered := operations[:0]
		for _, op := range operations {
			if _, ok := ownedIDs[op.WorkspaceID]; ok {
				filtered = append(filtered, op)
			}
		}
		operations = filtered
	}

	if operations == nil {
		operations = []core.Operation{}
	}
	WriteJSON(w, http.StatusOK, operations)
}

// GetOperation returns a single operation, provided the caller owns its
// workspace.
func (a *API) GetOperation(w http.ResponseWriter, r *http.Request) {
	op, err := a.store.GetOperation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if _, err := a.store.GetWorkspace(r.Context(), op.WorkspaceID, middleware.GetIdentity(r)); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, op)
}
