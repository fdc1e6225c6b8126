package controllers

import (
	"net/http"

	"go.uber.org/zap"
)

// HealthCheck returns {"status":"OK"} while both databases answer.
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := a.DB.Ping(r.Context()); err != nil {
		a.logger(r).Error("health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "DOWN"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
