package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hostbench/wsd/internal/core"
	"github.com/hostbench/wsd/internal/provider"
	"github.com/hostbench/wsd/internal/provisioner"
	"github.com/hostbench/wsd/internal/store"
)

type testEnv struct {
	router chi.Router
	store  *store.Store
	mock   *provider.Mock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "wsd.db"))
	if err != nil {
		t.Fatalf("opening store: %s", err)
	}
	t.Cleanup(func() { s.Close() })

	mock := provider.NewMock()
	a := NewAPI(s, provider.NewRegistry(mock), zap.NewNop())
	return &testEnv{router: a.Router(), store: s, mock: mock}
}

// request issues an HTTP request against the router as the given user.
// An empty user leaves the identity headers off.
func (e *testEnv) request(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %s", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("parsing response %q: %s", w.Body.String(), err)
	}
}

func (e *testEnv) createWorkspace(t *testing.T, user, name string) core.Workspace {
	t.Helper()

	w := e.request(t, "POST", "/api/v1/workspaces", user, map[string]interface{}{
		"name":     name,
		"provider": "mock",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("creating workspace: status %d, body %s", w.Code, w.Body.String())
	}
	var ws core.Workspace
	decode(t, w, &ws)
	return ws
}

func (e *testEnv) setStatus(t *testing.T, id string, from, to core.WorkspaceStatus) {
	t.Helper()
	pid := "mock-" + id
	if err := e.store.UpdateStatus(context.Background(), id, from, to, &pid, nil, nil); err != nil {
		t.Fatalf("setting status: %s", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", w.Code)
	}

	w = e.request(t, "GET", "/health/ready", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 from /health/ready, got %d", w.Code)
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["database"] != "connected" {
		t.Errorf("expected database connected, got %v", resp)
	}
}

func TestMissingIdentityIsRejected(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "GET", "/api/v1/workspaces", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", w.Code)
	}
	var resp ErrorResponse
	decode(t, w, &resp)
	if resp.Error != "unauthorized" {
		t.Errorf("expected unauthorized error body, got %q", resp.Error)
	}
}

func TestForwardedUserHeader(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/v1/workspaces", nil)
	req.Header.Set("X-Forwarded-User", "alice")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with X-Forwarded-User, got %d", w.Code)
	}
}

func TestCreateWorkspace(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "POST", "/api/v1/workspaces", "alice", map[string]interface{}{
		"name":        "devbox",
		"owner":       "mallory",
		"provider":    "mock",
		"ttl_seconds": 3600,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var ws core.Workspace
	decode(t, w, &ws)
	if ws.Status != core.WorkspaceCreating {
		t.Errorf("expected status creating, got %s", ws.Status)
	}
	// The body's owner claim is ignored in favor of the identity header.
	if ws.Owner != "alice" {
		t.Errorf("expected owner alice, got %s", ws.Owner)
	}
	if ws.ExpiresAt == nil {
		t.Error("expected expires_at from ttl_seconds")
	}
}

func TestCreateWorkspaceValidation(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "POST", "/api/v1/workspaces", "alice", map[string]interface{}{
		"provider": "mock",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", w.Code)
	}

	w = e.request(t, "POST", "/api/v1/workspaces", "alice", map[string]interface{}{
		"name": "devbox", "provider": "mock", "ttl_seconds": -5,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative ttl, got %d", w.Code)
	}
}

func TestListWorkspacesIsOwnerScoped(t *testing.T) {
	e := newTestEnv(t)

	e.createWorkspace(t, "alice", "a1")
	e.createWorkspace(t, "alice", "a2")
	e.createWorkspace(t, "bob", "b1")

	w := e.request(t, "GET", "/api/v1/workspaces", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []core.Workspace
	decode(t, w, &list)
	if len(list) != 2 {
		t.Errorf("expected 2 workspaces for alice, got %d", len(list))
	}

	w = e.request(t, "GET", "/api/v1/workspaces", "carol", nil)
	decode(t, w, &list)
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty array for carol, got %v", list)
	}
}

func TestGetWorkspaceOwnerIsolation(t *testing.T) {
	e := newTestEnv(t)

	ws := e.createWorkspace(t, "alice", "devbox")

	w := e.request(t, "GET", "/api/v1/workspaces/"+ws.ID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for owner, got %d", w.Code)
	}

	// Another identity sees not-found, never forbidden.
	w = e.request(t, "GET", "/api/v1/workspaces/"+ws.ID, "bob", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign owner, got %d", w.Code)
	}
}

func TestDeleteWorkspace(t *testing.T) {
	e := newTestEnv(t)

	ws := e.createWorkspace(t, "alice", "devbox")
	e.setStatus(t, ws.ID, core.WorkspaceCreating, core.WorkspaceRunning)

	w := e.request(t, "DELETE", "/api/v1/workspaces/"+ws.ID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if e.mock.TeardownCount() != 1 {
		t.Errorf("expected backing resource teardown, got %d", e.mock.TeardownCount())
	}

	w = e.request(t, "GET", "/api/v1/workspaces/"+ws.ID, "alice", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}

	// Deletion is not idempotent at the API: the second delete is a 404.
	w = e.request(t, "DELETE", "/api/v1/workspaces/"+ws.ID, "alice", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for repeated delete, got %d", w.Code)
	}
}

func TestDeleteUnknownWorkspace(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "DELETE", "/api/v1/workspaces/no-such-id", "alice", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestStopAndStartWorkspace(t *testing.T) {
	e := newTestEnv(t)

	ws := e.createWorkspace(t, "alice", "devbox")
	e.setStatus(t, ws.ID, core.WorkspaceCreating, core.WorkspaceRunning)

	w := e.request(t, "POST", "/api/v1/workspaces/"+ws.ID+"/stop", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got core.Workspace
	decode(t, w, &got)
	if got.Status != core.WorkspaceStopped {
		t.Errorf("expected stopped, got %s", got.Status)
	}
	if got.ProviderID == nil {
		t.Error("stop must preserve provider_id")
	}
	if len(e.mock.Stopped) != 1 {
		t.Errorf("expected 1 provider stop, got %d", len(e.mock.Stopped))
	}

	w = e.request(t, "POST", "/api/v1/workspaces/"+ws.ID+"/start", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	decode(t, w, &got)
	if got.Status != core.WorkspaceRunning {
		t.Errorf("expected running, got %s", got.Status)
	}
	if len(e.mock.Started) != 1 {
		t.Errorf("expected 1 provider start, got %d", len(e.mock.Started))
	}
}

func TestLifecycleConflicts(t *testing.T) {
	e := newTestEnv(t)

	ws := e.createWorkspace(t, "alice", "devbox")

	// Still creating: no lifecycle action applies.
	for _, action := range []string{"start", "stop", "restart"} {
		w := e.request(t, "POST", "/api/v1/workspaces/"+ws.ID+"/"+action, "alice", nil)
		if w.Code != http.StatusConflict {
			t.Errorf("%s on creating workspace: expected 409, got %d", action, w.Code)
		}
	}

	e.setStatus(t, ws.ID, core.WorkspaceCreating, core.WorkspaceRunning)

	w := e.request(t, "POST", "/api/v1/workspaces/"+ws.ID+"/start", "alice", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("start on running workspace: expected 409, got %d", w.Code)
	}
	var resp ErrorResponse
	decode(t, w, &resp)
	if resp.Error != "workspace is not stopped" {
		t.Errorf("unexpected conflict message: %q", resp.Error)
	}
}

func TestRestartWorkspace(t *testing.T) {
	e := newTestEnv(t)

	ws := e.createWorkspace(t, "alice", "devbox")
	e.setStatus(t, ws.ID, core.WorkspaceCreating, core.WorkspaceRunning)

	w := e.request(t, "POST", "/api/v1/workspaces/"+ws.ID+"/restart", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got core.Workspace
	decode(t, w, &got)
	if got.Status != core.WorkspaceRunning {
		t.Errorf("restart must leave the workspace running, got %s", got.Status)
	}
	if len(e.mock.Stopped) != 1 || len(e.mock.Started) != 1 {
		t.Errorf("expected stop+start, got %d stops and %d starts",
			len(e.mock.Stopped), len(e.mock.Started))
	}
}

func TestSnapshots(t *testing.T) {
	e := newTestEnv(t)

	ws := e.createWorkspace(t, "alice", "devbox")

	w := e.request(t, "POST", "/api/v1/workspaces/"+ws.ID+"/snapshots", "alice",
		map[string]string{"name": "before-upgrade"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var snap core.Snapshot
	decode(t, w, &snap)
	if snap.Name != "before-upgrade" {
		t.Errorf("expected snapshot name, got %q", snap.Name)
	}

	w = e.request(t, "GET", "/api/v1/workspaces/"+ws.ID+"/snapshots", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []core.Snapshot
	decode(t, w, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 snapshot, got %d", len(list))
	}

	// Foreign owners cannot snapshot or list.
	w = e.request(t, "GET", "/api/v1/workspaces/"+ws.ID+"/snapshots", "bob", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign owner, got %d", w.Code)
	}
}

func TestListOperations(t *testing.T) {
	e := newTestEnv(t)

	ws := e.createWorkspace(t, "alice", "devbox")
	e.createWorkspace(t, "bob", "otherbox")

	w := e.request(t, "GET", "/api/v1/operations", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var ops []core.Operation
	decode(t, w, &ops)
	// Only alice's create operation, not bob's.
	if len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(ops))
	}
	if ops[0].WorkspaceID != ws.ID || ops[0].OperationType != core.OpCreate {
		t.Errorf("unexpected operation: %v", ops[0])
	}

	w = e.request(t, "GET", "/api/v1/operations?workspace_id="+ws.ID, "alice", nil)
	decode(t, w, &ops)
	if len(ops) != 1 {
		t.Errorf("expected 1 operation for workspace filter, got %d", len(ops))
	}

	// Filtering by a foreign workspace does not reveal its operations.
	w = e.request(t, "GET", "/api/v1/operations?workspace_id="+ws.ID, "bob", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign workspace filter, got %d", w.Code)
	}
}

func TestListOperationsRejectsUnknownFilters(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, "GET", "/api/v1/operations?type=launch", "alice", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown type, got %d", w.Code)
	}

	w = e.request(t, "GET", "/api/v1/operations?status=done", "alice", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestGetOperation(t *testing.T) {
	e := newTestEnv(t)

	ws := e.createWorkspace(t, "alice", "devbox")
	op, err := e.store.FindOperation(context.Background(), ws.ID, core.OpCreate)
	if err != nil || op == nil {
		t.Fatalf("finding create operation: %v %v", op, err)
	}

	w := e.request(t, "GET", "/api/v1/operations/"+op.ID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = e.request(t, "GET", "/api/v1/operations/"+op.ID, "bob", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign owner, got %d", w.Code)
	}

	w = e.request(t, "GET", "/api/v1/operations/no-such-id", "alice", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown operation, got %d", w.Code)
	}
}

func TestCreateToRunningEndToEnd(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	ws := e.createWorkspace(t, "alice", "devbox")

	p := provisioner.New(e.store, provider.NewRegistry(e.mock), core.NewInFlight(),
		provisioner.Config{}, zap.NewNop())
	p.Tick(ctx)
	p.Wait()

	w := e.request(t, "GET", "/api/v1/workspaces/"+ws.ID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got core.Workspace
	decode(t, w, &got)
	if got.Status != core.WorkspaceRunning {
		t.Errorf("expected running after provisioner tick, got %s", got.Status)
	}
	if len(got.ConnectionInfo) == 0 {
		t.Error("expected connection_info after provisioning")
	}
}
