package janitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hostbench/wsd/internal/core"
	"github.com/hostbench/wsd/internal/provider"
	"github.com/hostbench/wsd/internal/store"
)

func newTestJanitor(t *testing.T) (*Janitor, *store.Store, *provider.Mock, *core.InFlight) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "wsd.db"))
	if err != nil {
		t.Fatalf("opening store: %s", err)
	}
	t.Cleanup(func() { s.Close() })

	mock := provider.NewMock()
	inFlight := core.NewInFlight()
	j := New(s, provider.NewRegistry(mock), inFlight, Config{}, zap.NewNop())
	return j, s, mock, inFlight
}

// createExpiredWorkspace inserts a running workspace whose one-second
// lease is then waited out.
func createExpiredWorkspace(t *testing.T, s *store.Store) *core.Workspace {
	t.Helper()

	prov := "mock"
	ttl := int64(1)
	ws, err := s.CreateWorkspace(context.Background(), core.CreateWorkspaceRequest{
		Name:       "shortlived",
		Owner:      "alice",
		Provider:   &prov,
		TTLSeconds: &ttl,
	})
	if err != nil {
		t.Fatalf("creating workspace: %s", err)
	}

	pid := "mock-" + ws.ID
	err = s.UpdateStatus(context.Background(), ws.ID,
		core.WorkspaceCreating, core.WorkspaceRunning, &pid, nil, nil)
	if err != nil {
		t.Fatalf("updating status: %s", err)
	}

	time.Sleep(1500 * time.Millisecond)
	return ws
}

func TestSweepReapsExpired(t *testing.T) {
	j, s, mock, _ := newTestJanitor(t)
	ctx := context.Background()

	ws := createExpiredWorkspace(t, s)

	j.Sweep(ctx)

	if _, err := s.GetWorkspaceByID(ctx, ws.ID); err == nil {
		t.Error("expired workspace should be deleted")
	}
	if mock.TeardownCount() != 1 {
		t.Errorf("expected 1 teardown, got %d", mock.TeardownCount())
	}
}

func TestSweepLeavesUnexpiredAlone(t *testing.T) {
	j, s, mock, _ := newTestJanitor(t)
	ctx := context.Background()

	prov := "mock"
	ttl := int64(86400)
	leased, err := s.CreateWorkspace(ctx, core.CreateWorkspaceRequest{
		Name: "leased", Owner: "alice", Provider: &prov, TTLSeconds: &ttl,
	})
	if err != nil {
		t.Fatalf("creating workspace: %s", err)
	}
	forever, err := s.CreateWorkspace(ctx, core.CreateWorkspaceRequest{
		Name: "forever", Owner: "alice", Provider: &prov,
	})
	if err != nil {
		t.Fatalf("creating workspace: %s", err)
	}

	j.Sweep(ctx)

	if _, err := s.GetWorkspaceByID(ctx, leased.ID); err != nil {
		t.Errorf("workspace with live lease was reaped: %s", err)
	}
	if _, err := s.GetWorkspaceByID(ctx, forever.ID); err != nil {
		t.Errorf("workspace without TTL was reaped: %s", err)
	}
	if mock.TeardownCount() != 0 {
		t.Errorf("expected no teardowns, got %d", mock.TeardownCount())
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	j, s, mock, _ := newTestJanitor(t)
	ctx := context.Background()

	createExpiredWorkspace(t, s)

	j.Sweep(ctx)
	j.Sweep(ctx)

	if mock.TeardownCount() != 1 {
		t.Errorf("second sweep must be a no-op, got %d teardowns", mock.TeardownCount())
	}
}

func TestSweepSkipsInFlightWorkspaces(t *testing.T) {
	j, s, _, inFlight := newTestJanitor(t)
	ctx := context.Background()

	ws := createExpiredWorkspace(t, s)

	inFlight.TryAcquire(ws.ID)
	j.Sweep(ctx)

	if _, err := s.GetWorkspaceByID(ctx, ws.ID); err != nil {
		t.Fatalf("in-flight workspace must be left for the next sweep: %s", err)
	}

	inFlight.Release(ws.ID)
	j.Sweep(ctx)

	if _, err := s.GetWorkspaceByID(ctx, ws.ID); err == nil {
		t.Error("released workspace should be reaped")
	}
}

func TestSweepDeletesRecordEvenWhenTeardownFails(t *testing.T) {
	j, s, mock, _ := newTestJanitor(t)
	ctx := context.Background()

	mock.FailTeardown = true
	ws := createExpiredWorkspace(t, s)

	j.Sweep(ctx)

	if _, err := s.GetWorkspaceByID(ctx, ws.ID); err == nil {
		t.Error("record must be deleted even when the backend teardown fails")
	}
}

func TestSweepSkipsProviderForUnprovisioned(t *testing.T) {
	j, s, mock, _ := newTestJanitor(t)
	ctx := context.Background()

	// Still "creating" with no provider_id: nothing to tear down.
	prov := "mock"
	ttl := int64(1)
	ws, err := s.CreateWorkspace(ctx, core.CreateWorkspaceRequest{
		Name: "stuck", Owner: "alice", Provider: &prov, TTLSeconds: &ttl,
	})
	if err != nil {
		t.Fatalf("creating workspace: %s", err)
	}
	time.Sleep(1500 * time.Millisecond)

	j.Sweep(ctx)

	if _, err := s.GetWorkspaceByID(ctx, ws.ID); err == nil {
		t.Error("expired workspace should be deleted")
	}
	if mock.TeardownCount() != 0 {
		t.Errorf("expected no teardown for unprovisioned workspace, got %d", mock.TeardownCount())
	}
}
