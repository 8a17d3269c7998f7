// Package provisioner hosts the background loop that drives workspaces
// awaiting creation to a running or failed state through the provider
// gateway.
package provisioner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hostbench/wsd/internal/core"
	"github.com/hostbench/wsd/internal/observability"
	"github.com/hostbench/wsd/internal/provider"
	"github.com/hostbench/wsd/internal/store"
)

type Config struct {
	Interval       time.Duration
	AttemptTimeout time.Duration
	MaxConcurrent  int
}

type Provisioner struct {
	store     *store.Store
	providers *provider.Registry
	inFlight  *core.InFlight
	cfg       Config
	log       *zap.Logger
	wg        sync.WaitGroup
}

func New(st *store.Store, providers *provider.Registry, inFlight *core.InFlight,
	cfg Config, log *zap.Logger) *Provisioner {

	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Minute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	return &Provisioner{
		store:     st,
		providers: providers,
		inFlight:  inFlight,
		cfg:       cfg,
		log:       log,
	}
}

// Run polls for workspaces in "creating" until the context is canceled,
// then waits for in-flight attempts to settle.
func (p *Provisioner) Run(ctx context.Context) {
	p.log.Info("provisioner started", zap.Duration("interval", p.cfg.Interval))

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("provisioner stopping")
			p.wg.Wait()
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick processes one batch. Workspaces are attempted concurrently with
// bounded fan-out; a workspace whose previous attempt is still running
// is skipped, never doubled up. Exported so tests can drive the loop
// deterministically.
func (p *Provisioner) Tick(ctx context.Context) {
	pending, err := p.store.ListPendingCreation(ctx)
	if err != nil {
		// Store failure: leave the whole batch for the next poll.
		p.log.Error("listing pending workspaces failed", zap.Error(err))
		return
	}
	observability.PendingWorkspaces.Set(float64(len(pending)))

	sem := make(chan struct{}, p.cfg.MaxConcurrent)
	for i := range pending {
		ws := pending[i]
		if !p.inFlight.TryAcquire(ws.ID) {
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			p.inFlight.Release(ws.ID)
			return
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer p.inFlight.Release(ws.ID)
			defer func() { <-sem }()
			p.provision(ctx, &ws)
		}()
	}
}

// Wait blocks until all spawned attempts have finished. Test helper.
func (p *Provisioner) Wait() {
	p.wg.Wait()
}

func (p *Provisioner) provision(ctx context.Context, ws *core.Workspace) {
	log := observability.WorkspaceLogger(p.log, ws.ID, ws.Name, ws.Provider)
	log.Info("provisioning workspace")

	opID := p.claimCreateOperation(ctx, ws, log)

	prov, err := p.providers.ForWorkspace(ws)
	if err != nil {
		p.markFailed(ctx, ws, opID, err.Error(), log)
		return
	}

	// The provider call happens outside any store transaction and with
	// its own deadline; the outcome is written back separately.
	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	result, err := prov.Provision(attemptCtx, ws)
	observability.ProvisionDuration.WithLabelValues(ws.Provider).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error("provisioning failed", zap.Error(err))
		observability.ProvisionTotal.WithLabelValues(ws.Provider, "failure").Inc()
		p.markFailed(ctx, ws, opID, err.Error(), log)
		return
	}

	err = p.store.UpdateStatus(ctx, ws.ID, core.WorkspaceCreating, core.WorkspaceRunning,
		&result.ProviderID, result.ConnectionInfo, nil)
	if err != nil {
		// The workspace was deleted (or otherwise moved) while the
		// provider call was in flight. The record won the race, so reap
		// the fresh resource instead of resurrecting the row.
		log.Warn("workspace gone after provisioning, tearing down", zap.Error(err))
		wsCopy := *ws
		wsCopy.ProviderID = &result.ProviderID
		if terr := prov.Teardown(ctx, &wsCopy); terr != nil {
			observability.TeardownFailTotal.Inc()
			log.Error("post-race teardown failed, resource may leak",
				zap.String("provider_id", result.ProviderID), zap.Error(terr))
		}
		return
	}

	observability.ProvisionTotal.WithLabelValues(ws.Provider, "success").Inc()
	observability.WorkspaceStateTransitions.WithLabelValues(
		string(core.WorkspaceCreating), string(core.WorkspaceRunning)).Inc()
	p.finishOperation(ctx, opID, core.OperationSuccess, nil, log)
	log.Info("workspace provisioned", zap.String("provider_id", result.ProviderID))
}

// claimCreateOperation finds the pending Create audit record written at
// workspace creation (recording a fresh one if it is missing) and moves
// it to running.
func (p *Provisioner) claimCreateOperation(ctx context.Context, ws *core.Workspace, log *zap.Logger) string {
	op, err := p.store.FindOperation(ctx, ws.ID, core.OpCreate)
	if err != nil {
		log.Warn("looking up create operation failed", zap.Error(err))
		return ""
	}

	var opID string
	if op != nil {
		opID = op.ID
	} else {
		opID, err = p.store.RecordOperation(ctx, ws.ID, core.OpCreate, core.OperationPending)
		if err != nil {
			log.Warn("recording create operation failed", zap.Error(err))
			return ""
		}
	}

	if err := p.store.StartOperation(ctx, opID); err != nil {
		log.Warn("starting create operation failed", zap.Error(err))
	}
	return opID
}

func (p *Provisioner) markFailed(ctx context.Context, ws *core.Workspace, opID, msg string, log *zap.Logger) {
	err := p.store.UpdateStatus(ctx, ws.ID, core.WorkspaceCreating, core.WorkspaceFailed,
		nil, nil, &msg)
	if err != nil {
		log.Warn("recording provisioning failure failed", zap.Error(err))
	} else {
		observability.WorkspaceStateTransitions.WithLabelValues(
			string(core.WorkspaceCreating), string(core.WorkspaceFailed)).Inc()
	}
	p.finishOperation(ctx, opID, core.OperationFailed, &msg, log)
}

func (p *Provisioner) finishOperation(ctx context.Context, opID string,
	status core.OperationStatus, opErr *string, log *zap.Logger) {

	if opID == "" {
		return
	}
	if err := p.store.FinishOperation(ctx, opID, status, opErr); err != nil {
		log.Warn("finalizing create operation failed", zap.Error(err))
	}
}
