package controllers

import (
	"net/http"

	"stickyboard/auth"
	"stickyboard/config"
	"stickyboard/data"
	"stickyboard/middleware"

	"go.uber.org/zap"
)

// API holds what the HTTP handlers share.
type API struct {
	DB     *data.DB
	Tokens *auth.TokenService
	Demo   config.DemoSection
	Log    *zap.Logger
}

func NewAPI(db *data.DB, tokens *auth.TokenService, demo config.DemoSection, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{DB: db, Tokens: tokens, Demo: demo, Log: logger}
}

// currentUser pulls the authenticated user id, answering 401 when the
// middleware did not run.
func (a *API) currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return userID, true
}

func (a *API) logger(r *http.Request) *zap.Logger {
	return a.Log.With(zap.String("request_id", middleware.RequestIDFrom(r.Context())))
}

func (a *API) isDemo(email string) bool {
	return a.Demo.Enabled && email == a.Demo.Email
}
