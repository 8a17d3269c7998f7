package core

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from WorkspaceStatus
		to   WorkspaceStatus
		want bool
	}{
		{WorkspaceCreating, WorkspaceRunning, true},
		{WorkspaceCreating, WorkspaceFailed, true},
		{WorkspaceCreating, WorkspaceStopped, false},
		{WorkspaceRunning, WorkspaceStopped, true},
		{WorkspaceRunning, WorkspaceCreating, false},
		{WorkspaceRunning, WorkspaceFailed, false},
		{WorkspaceStopped, WorkspaceRunning, true},
		{WorkspaceStopped, WorkspaceFailed, false},
		{WorkspaceFailed, WorkspaceRunning, false},
		{WorkspaceFailed, WorkspaceCreating, false},
	}

	for _, c := range cases {
		ws := &Workspace{Status: c.from}
		if got := ws.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestExpired(t *testing.T) {
	now := time.Now().UTC()

	ws := &Workspace{}
	if ws.Expired(now) {
		t.Error("workspace without TTL should never expire")
	}

	past := now.Add(-time.Minute)
	ws.ExpiresAt = &past
	if !ws.Expired(now) {
		t.Error("workspace with past expires_at should be expired")
	}

	future := now.Add(time.Minute)
	ws.ExpiresAt = &future
	if ws.Expired(now) {
		t.Error("workspace with future expires_at should not be expired")
	}

	ws.ExpiresAt = &now
	if !ws.Expired(now) {
		t.Error("expires_at equal to now should count as expired")
	}
}

func TestValidWorkspaceStatus(t *testing.T) {
	for _, s := range []string{"creating", "running", "stopped", "failed"} {
		if !ValidWorkspaceStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "deleting", "RUNNING"} {
		if ValidWorkspaceStatus(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
