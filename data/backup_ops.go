package data

import (
	"context"
	"fmt"
	"time"

	"stickyboard/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ExportBackup collects every board of the user with its notes, oldest first.
func (db *DB) ExportBackup(ctx context.Context, userID int64) (*models.BackupData, error) {
	boards, err := db.GetBoardsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}
	notes, err := db.GetNotesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}

	byBoard := make(map[int64][]models.Note, len(boards))
	for _, n := range notes {
		byBoard[n.BoardID] = append(byBoard[n.BoardID], n)
	}
	backup := &models.BackupData{Boards: make([]models.BoardBackup, 0, len(boards)), CreatedAt: time.Now().UTC()}
	for _, b := range boards {
		bn := byBoard[b.ID]
		if bn == nil {
			bn = []models.Note{}
		}
		backup.Boards = append(backup.Boards, models.BoardBackup{Name: b.Name, Notes: bn})
	}
	return backup, nil
}

// RestoreBackup adds the backed-up boards next to the user's existing ones.
// Either everything is created or nothing is; ErrBoardLimit when the result
// would exceed the board cap.
func (db *DB) RestoreBackup(ctx context.Context, userID int64, backup *models.BackupData) (*models.RestoreResult, error) {
	result := &models.RestoreResult{}
	now := time.Now().UTC()

	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM Boards WHERE OwnerUserId = ?`, userID); err != nil {
			return fmt.Errorf("RestoreBackup: failed to count boards for user %d: %w", userID, err)
		}
		if count+len(backup.Boards) > models.MaxBoardsPerUser {
			return ErrBoardLimit
		}

		for i, bb := range backup.Boards {
			board := &models.Board{Name: bb.Name, OwnerUserID: userID, CreatedAt: now.Add(time.Duration(i) * time.Millisecond)}
			boardID, err := createBoardWithTx(ctx, tx, board)
			if err != nil {
				return err
			}
			result.Boards++

			for _, n := range bb.Notes {
				n.ID = 0
				n.BoardID = boardID
				n.UserID = userID
				if n.CreatedAt.IsZero() {
					n.CreatedAt = now
				}
				if n.Tags == nil {
					n.Tags = []string{}
				}
				noteID, err := createNoteWithTx(ctx, tx, &n)
				if err != nil {
					return err
				}
				if err := replaceTagsWithTx(ctx, tx, noteID, n.Tags); err != nil {
					return err
				}
				result.Notes++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	db.log.Info("restored backup", zap.Int64("user_id", userID), zap.Int("boards", result.Boards), zap.Int("notes", result.Notes))
	return result, nil
}
