package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hostbench/wsd/internal/core"
)

// Mock is an in-memory provider for tests. It records every call and
// can be told to fail.
type Mock struct {
	mu sync.Mutex

	FailProvision bool
	FailTeardown  bool
	// ProvisionDelay, when non-nil, is closed by the test to release
	// in-flight Provision calls.
	ProvisionDelay chan struct{}

	Provisioned []string
	TornDown    []string
	Started     []string
	Stopped     []string
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) Provision(ctx context.Context, ws *core.Workspace) (*ProvisionResult, error) {
	if m.ProvisionDelay != nil {
		select {
		case <-m.ProvisionDelay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailProvision {
		return nil, errors.New("mock provision failure")
	}
	m.Provisioned = append(m.Provisioned, ws.ID)

	connInfo, _ := json.Marshal(map[string]string{
		"instance":       "mock-" + ws.ID,
		"access_command": fmt.Sprintf("wsd ssh %s", ws.Name),
	})
	return &ProvisionResult{
		ProviderID:     "mock-" + ws.ID,
		ConnectionInfo: connInfo,
	}, nil
}

func (m *Mock) Teardown(ctx context.Context, ws *core.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailTeardown {
		return errors.New("mock teardown failure")
	}
	m.TornDown = append(m.TornDown, ws.ID)
	return nil
}

func (m *Mock) Start(ctx context.Context, ws *core.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = append(m.Started, ws.ID)
	return nil
}

func (m *Mock) Stop(ctx context.Context, ws *core.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stopped = append(m.Stopped, ws.ID)
	return nil
}

// ProvisionCount returns how many provisions have completed.
func (m *Mock) ProvisionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Provisioned)
}

// TeardownCount returns how many teardowns have completed.
func (m *Mock) TeardownCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.TornDown)
}
