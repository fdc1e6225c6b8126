package controllers

import (
	"net/http"

	"stickyboard/middleware"

	"github.com/gorilla/mux"
)

// NewRouter wires every route of the API onto a gorilla/mux router.
func (a *API) NewRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recoverer(a.Log), middleware.RequestLogger(a.Log))

	router.HandleFunc("/api/health", a.HealthCheck).Methods(http.MethodGet)

	authRouter := router.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/register", a.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", a.Login).Methods(http.MethodPost)

	jwt := middleware.JWT(a.Tokens, a.DB, a.Log)

	logoutRouter := router.PathPrefix("/api/auth/logout").Subrouter()
	logoutRouter.Use(jwt)
	logoutRouter.HandleFunc("", a.Logout).Methods(http.MethodPost)

	boards := router.PathPrefix("/api/boards").Subrouter()
	boards.Use(jwt)
	boards.HandleFunc("", a.ListBoards).Methods(http.MethodGet)
	boards.HandleFunc("", a.CreateBoard).Methods(http.MethodPost)
	boards.HandleFunc("/count", a.CountBoards).Methods(http.MethodGet)
	boards.HandleFunc("/{id:[0-9]+}", a.GetBoard).Methods(http.MethodGet)
	boards.HandleFunc("/{id:[0-9]+}", a.UpdateBoard).Methods(http.MethodPut)
	boards.HandleFunc("/{id:[0-9]+}", a.DeleteBoard).Methods(http.MethodDelete)

	notes := router.PathPrefix("/api/notes").Subrouter()
	notes.Use(jwt)
	notes.HandleFunc("", a.ListNotes).Methods(http.MethodGet)
	notes.HandleFunc("", a.CreateNote).Methods(http.MethodPost)
	notes.HandleFunc("/all", a.ListAllNotes).Methods(http.MethodGet)
	notes.HandleFunc("/filter", a.FilterNotes).Methods(http.MethodGet)
	notes.HandleFunc("/{id:[0-9]+}", a.GetNote).Methods(http.MethodGet)
	notes.HandleFunc("/{id:[0-9]+}", a.UpdateNote).Methods(http.MethodPut)
	notes.HandleFunc("/{id:[0-9]+}", a.DeleteNote).Methods(http.MethodDelete)

	backup := router.PathPrefix("/api/backup").Subrouter()
	backup.Use(jwt)
	backup.HandleFunc("", a.ExportBackup).Methods(http.MethodGet)
	backup.HandleFunc("", a.RestoreBackup).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return router
}
