// Package janitor hosts the background loop that enforces TTL-based
// expiry: expired workspaces are torn down at the provider and their
// records deleted.
package janitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hostbench/wsd/internal/core"
	"github.com/hostbench/wsd/internal/observability"
	"github.com/hostbench/wsd/internal/provider"
	"github.com/hostbench/wsd/internal/store"
)

type Config struct {
	Interval        time.Duration
	TeardownTimeout time.Duration
}

type Janitor struct {
	store     *store.Store
	providers *provider.Registry
	inFlight  *core.InFlight
	cfg       Config
	log       *zap.Logger
}

func New(st *store.Store, providers *provider.Registry, inFlight *core.InFlight,
	cfg Config, log *zap.Logger) *Janitor {

	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = 2 * time.Minute
	}
	return &Janitor{
		store:     st,
		providers: providers,
		inFlight:  inFlight,
		cfg:       cfg,
		log:       log,
	}
}

// Run sweeps for expired workspaces until the context is canceled.
func (j *Janitor) Run(ctx context.Context) {
	j.log.Info("janitor started", zap.Duration("interval", j.cfg.Interval))

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor stopping")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep deletes every workspace whose lease has expired. Idempotent: a
// workspace already reaped by a previous pass simply no longer shows up,
// and a concurrent delete makes the row removal a no-op. Exported so
// tests can drive the loop deterministically.
func (j *Janitor) Sweep(ctx context.Context) {
	expired, err := j.store.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		j.log.Error("listing expired workspaces failed", zap.Error(err))
		return
	}

	for i := range expired {
		ws := expired[i]
		// A workspace mid-provision is left for the next sweep; the
		// provisioner's write-back will miss anyway once we delete it,
		// but skipping avoids a pointless provider round trip.
		if j.inFlight.Held(ws.ID) {
			continue
		}
		j.reap(ctx, &ws)
	}
}

func (j *Janitor) reap(ctx context.Context, ws *core.Workspace) {
	log := observability.WorkspaceLogger(j.log, ws.ID, ws.Name, ws.Provider)
	log.Info("workspace lease expired, deleting", zap.Timep("expires_at", ws.ExpiresAt))

	opID, err := j.store.RecordOperation(ctx, ws.ID, core.OpDelete, core.OperationRunning)
	if err != nil {
		log.Warn("recording delete operation failed", zap.Error(err))
	}
	_ = opID // cascade-deleted with the workspace below

	// Teardown is best-effort: the record must disappear from the
	// user-visible inventory even when the backing resource cannot be
	// destroyed. Leakage is logged for operator follow-up, not retried.
	if ws.ProviderID != nil {
		prov, err := j.providers.ForWorkspace(ws)
		if err != nil {
			log.Error("no provider for expired workspace", zap.Error(err))
		} else {
			teardownCtx, cancel := context.WithTimeout(ctx, j.cfg.TeardownTimeout)
			err = prov.Teardown(teardownCtx, ws)
			cancel()
			if err != nil {
				observability.TeardownFailTotal.Inc()
				log.Error("teardown failed, resource may leak",
					zap.String("provider_id", *ws.ProviderID), zap.Error(err))
			}
		}
	}

	if err := j.store.DeleteWorkspaceByID(ctx, ws.ID); err != nil {
		// Store failure: leave the workspace for the next sweep.
		observability.JanitorReapTotal.WithLabelValues("error").Inc()
		log.Error("deleting expired workspace failed", zap.Error(err))
		return
	}

	observability.JanitorReapTotal.WithLabelValues("reaped").Inc()
	log.Info("expired workspace deleted")
}
