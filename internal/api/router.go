// Package api is the synchronous request/response surface of the control
// plane. Handlers translate HTTP verbs into store reads and writes scoped
// to the verified caller identity; provisioning itself always happens
// asynchronously in the background loops.
package api

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hostbench/wsd/internal/api/middleware"
	"github.com/hostbench/wsd/internal/provider"
	"github.com/hostbench/wsd/internal/store"
)

type API struct {
	store     *store.Store
	providers *provider.Registry
	log       *zap.Logger
}

func NewAPI(st *store.Store, providers *provider.Registry, log *zap.Logger) *API {
	return &API{
		store:     st,
		providers: providers,
		log:       log,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recoverer(a.log))
	r.Use(middleware.Logger)

	// Health endpoints don't need an identity.
	r.Get("/health", a.HealthHandler)
	r.Get("/health/ready", a.ReadyHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity)
		r.Use(chiMiddleware.AllowContentType("application/json"))

		// Workspaces
		r.Get("/workspaces", a.ListWorkspaces)
		r.Post("/workspaces", a.CreateWorkspace)
		r.Get("/workspaces/{id}", a.GetWorkspace)
		r.Delete("/workspaces/{id}", a.DeleteWorkspace)
		r.Post("/workspaces/{id}/start", a.StartWorkspace)
		r.Post("/workspaces/{id}/stop", a.StopWorkspace)
		r.Post("/workspaces/{id}/restart", a.RestartWorkspace)

		// Snapshots
		r.Get("/workspaces/{id}/snapshots", a.ListSnapshots)
		r.Post("/workspaces/{id}/snapshots", a.CreateSnapshot)

		// Operations
		r.Get("/operations", a.ListOperations)
		r.Get("/operations/{id}", a.GetOperation)
	})

	return r
}
