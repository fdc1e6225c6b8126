package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"stickyboard/models"

	"github.com/gorilla/mux"
)

func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, models.ErrorResponse{Error: message})
}

func respondValidation(w http.ResponseWriter, details map[string]string) {
	respondJSON(w, http.StatusBadRequest, models.ValidationErrorResponse{
		Error:   "Validation failed",
		Details: details,
	})
}

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body into dst and answers 400 itself when it cannot.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeBodyLimit(w, r, dst, maxBodyBytes)
}

func decodeBodyLimit(w http.ResponseWriter, r *http.Request, dst interface{}, limit int64) bool {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pathID parses the {id} route variable. Routes constrain it to digits, so a
// failure only happens on overflow.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}
