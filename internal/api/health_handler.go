package api

import "net/http"

// HealthHandler reports process liveness.
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "wsd",
	})
}

// ReadyHandler reports readiness, which is a side effect of store
// connectivity.
func (a *API) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"service":  "wsd",
			"database": "disconnected",
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"service":  "wsd",
		"database": "connected",
	})
}
