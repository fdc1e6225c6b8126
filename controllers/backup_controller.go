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

const (
	maxBackupBytes = 50 << 20
	backupFileName = "stickyboard-backup.json"
)

// GET /api/backup
func (a *API) ExportBackup(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	backup, err := a.DB.ExportBackup(r.Context(), userID)
	if err != nil {
		a.logger(r).Error("export backup failed", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to export backup")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+backupFileName+`"`)
	respondJSON(w, http.StatusOK, backup)
}

// POST /api/backup
func (a *API) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	var backup models.BackupData
	if !decodeBodyLimit(w, r, &backup, maxBackupBytes) {
		return
	}
	if errs := normalizeBackup(&backup); len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	result, err := a.DB.RestoreBackup(r.Context(), userID, &backup)
	if errors.Is(err, data.ErrBoardLimit) {
		respondError(w, http.StatusForbidden,
			fmt.Sprintf("Restoring %d boards would exceed the maximum of %d", len(backup.Boards), models.MaxBoardsPerUser))
		return
	}
	if err != nil {
		a.logger(r).Error("restore backup failed", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to restore backup")
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// normalizeBackup applies the board and note rules to every entry and fills
// note defaults. Keys of the returned map locate the offending field.
func normalizeBackup(b *models.BackupData) map[string]string {
	errs := map[string]string{}
	if len(b.Boards) == 0 {
		errs["boards"] = "Backup contains no boards"
		return errs
	}
	for i := range b.Boards {
		board := &b.Boards[i]
		board.Name = strings.TrimSpace(board.Name)
		switch {
		case board.Name == "":
			errs[fmt.Sprintf("boards[%d].name", i)] = "Board name is required"
		case utf8.RuneCountInString(board.Name) > models.MaxBoardNameLen:
			errs[fmt.Sprintf("boards[%d].name", i)] = fmt.Sprintf("Board name must not exceed %d characters", models.MaxBoardNameLen)
		}
		for j, n := range board.Notes {
			if n.Color == "" {
				n.Color = models.DefaultNoteColor
			}
			in := models.InputFromNote(n)
			for field, msg := range in.Validate() {
				errs[fmt.Sprintf("boards[%d].notes[%d].%s", i, j, field)] = msg
			}
			normalized := in.NewNote()
			normalized.CreatedAt = n.CreatedAt
			board.Notes[j] = normalized
		}
	}
	return errs
}
