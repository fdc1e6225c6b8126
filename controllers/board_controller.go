package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"stickyboard/data"
	"stickyboard/models"

	"go.uber.org/zap"
)

// boardName trims and checks a requested name, answering 400 itself.
func boardName(w http.ResponseWriter, req models.BoardRequest) (string, bool) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondValidation(w, map[string]string{"name": "Board name is required"})
		return "", false
	}
	if utf8.RuneCountInString(name) > models.MaxBoardNameLen {
		respondValidation(w, map[string]string{
			"name": fmt.Sprintf("Board name must not exceed %d characters", models.MaxBoardNameLen),
		})
		return "", false
	}
	return name, true
}

// GET /api/boards
func (a *API) ListBoards(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	boards, err := a.DB.GetBoardsByOwner(r.Context(), userID)
	if err != nil {
		a.logger(r).Error("list boards failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load boards")
		return
	}
	respondJSON(w, http.StatusOK, boards)
}

// GET /api/boards/count
func (a *API) CountBoards(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	count, err := a.DB.CountBoardsByOwner(r.Context(), userID)
	if err != nil {
		a.logger(r).Error("count boards failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to count boards")
		return
	}
	respondJSON(w, http.StatusOK, count)
}

// GET /api/boards/{id}
func (a *API) GetBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	board, err := a.DB.GetBoardByID(r.Context(), id, userID)
	if err != nil {
		a.logger(r).Error("get board failed", zap.Int64("board_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load board")
		return
	}
	if board == nil {
		respondError(w, http.StatusNotFound, "Board not found")
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// POST /api/boards
func (a *API) CreateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	var req models.BoardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name, ok := boardName(w, req)
	if !ok {
		return
	}

	board, err := a.DB.CreateBoard(r.Context(), userID, name)
	if errors.Is(err, data.ErrBoardLimit) {
		respondError(w, http.StatusForbidden,
			fmt.Sprintf("Maximum number of boards (%d) reached for this user", models.MaxBoardsPerUser))
		return
	}
	if err != nil {
		a.logger(r).Error("create board failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create board")
		return
	}
	respondJSON(w, http.StatusCreated, board)
}

// PUT /api/boards/{id}
func (a *API) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.BoardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name, ok := boardName(w, req)
	if !ok {
		return
	}

	board, err := a.DB.RenameBoard(r.Context(), id, userID, name)
	if data.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "Board not found")
		return
	}
	if err != nil {
		a.logger(r).Error("rename board failed", zap.Int64("board_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to update board")
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// DELETE /api/boards/{id}
func (a *API) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := a.DB.DeleteBoard(r.Context(), id, userID)
	if data.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "Board not found")
		return
	}
	if err != nil {
		a.logger(r).Error("delete board failed", zap.Int64("board_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete board")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
