package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"stickyboard/data"
	"stickyboard/models"

	"go.uber.org/zap"
)

func (a *API) respondNotes(w http.ResponseWriter, r *http.Request, notes []models.Note, err error) {
	if err != nil {
		a.logger(r).Error("load notes failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load notes")
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	respondJSON(w, http.StatusOK, notes)
}

// ownsBoard answers 403 or 500 itself when the board is not the user's.
func (a *API) ownsBoard(w http.ResponseWriter, r *http.Request, boardID, userID int64) bool {
	board, err := a.DB.GetBoardByID(r.Context(), boardID, userID)
	if err != nil {
		a.logger(r).Error("board lookup failed", zap.Int64("board_id", boardID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load board")
		return false
	}
	if board == nil {
		respondError(w, http.StatusForbidden, "Board not found or access denied")
		return false
	}
	return true
}

// GET /api/notes[?boardId=N]
func (a *API) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("boardId")
	if raw == "" {
		notes, err := a.DB.GetNotesByUser(r.Context(), userID)
		a.respondNotes(w, r, notes, err)
		return
	}
	boardID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid boardId")
		return
	}
	if !a.ownsBoard(w, r, boardID, userID) {
		return
	}
	notes, err := a.DB.GetNotesByBoard(r.Context(), boardID, userID)
	a.respondNotes(w, r, notes, err)
}

// GET /api/notes/all
func (a *API) ListAllNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	notes, err := a.DB.GetNotesByUser(r.Context(), userID)
	a.respondNotes(w, r, notes, err)
}

// GET /api/notes/filter?tag=T
func (a *API) FilterNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	tag := strings.TrimSpace(r.URL.Query().Get("tag"))
	if tag == "" {
		respondValidation(w, map[string]string{"tag": "Tag is required"})
		return
	}
	notes, err := a.DB.GetNotesByTag(r.Context(), tag, userID)
	a.respondNotes(w, r, notes, err)
}

// GET /api/notes/{id}
func (a *API) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	note, err := a.DB.GetNoteByID(r.Context(), id, userID)
	if err != nil {
		a.logger(r).Error("get note failed", zap.Int64("note_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load note")
		return
	}
	if note == nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// POST /api/notes
func (a *API) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	var in models.NoteInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.BoardID == nil {
		respondValidation(w, map[string]string{"boardId": "Board ID is required"})
		return
	}
	if details := in.Validate(); len(details) > 0 {
		respondValidation(w, details)
		return
	}
	if !a.ownsBoard(w, r, *in.BoardID, userID) {
		return
	}

	note := in.NewNote()
	note.BoardID = *in.BoardID
	note.UserID = userID
	if err := a.DB.CreateNote(r.Context(), &note); err != nil {
		a.logger(r).Error("create note failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create note")
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

// PUT /api/notes/{id}
// Fields missing from the body keep their stored value. The board of a note never changes.
func (a *API) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in models.NoteInput
	if !decodeBody(w, r, &in) {
		return
	}
	if details := in.Validate(); len(details) > 0 {
		respondValidation(w, details)
		return
	}

	note, err := a.DB.GetNoteByID(r.Context(), id, userID)
	if err != nil {
		a.logger(r).Error("get note failed", zap.Int64("note_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to update note")
		return
	}
	if note == nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}

	in.ApplyTo(note)
	err = a.DB.UpdateNote(r.Context(), note)
	if data.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		a.logger(r).Error("update note failed", zap.Int64("note_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to update note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// DELETE /api/notes/{id}
func (a *API) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := a.DB.DeleteNote(r.Context(), id, userID)
	if data.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		a.logger(r).Error("delete note failed", zap.Int64("note_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
