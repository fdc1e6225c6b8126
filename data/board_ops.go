package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stickyboard/models"

	"github.com/jmoiron/sqlx"
)

// ErrBoardLimit is returned when the owner already has models.MaxBoardsPerUser boards.
var ErrBoardLimit = fmt.Errorf("maximum number of boards (%d) reached for this user", models.MaxBoardsPerUser)

const boardColumns = `Id, Name, OwnerUserId, CreatedAt`

// CreateBoard inserts a board for the owner. The count check and insert share a
// transaction so concurrent requests cannot overshoot the limit.
func (db *DB) CreateBoard(ctx context.Context, ownerID int64, name string) (*models.Board, error) {
	board := &models.Board{Name: name, OwnerUserID: ownerID, CreatedAt: time.Now().UTC()}

	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM Boards WHERE OwnerUserId = ?`, ownerID); err != nil {
			return fmt.Errorf("CreateBoard: failed to count boards for user %d: %w", ownerID, err)
		}
		if count >= models.MaxBoardsPerUser {
			return ErrBoardLimit
		}

		id, err := createBoardWithTx(ctx, tx, board)
		if err != nil {
			return err
		}
		board.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	db.log.Sugar().Debugf("created board %d for user %d", board.ID, ownerID)
	return board, nil
}

func createBoardWithTx(ctx context.Context, tx *sqlx.Tx, board *models.Board) (int64, error) {
	result, err := tx.NamedExecContext(ctx,
		`INSERT INTO Boards (Name, OwnerUserId, CreatedAt) VALUES (:Name, :OwnerUserId, :CreatedAt)`, board)
	if err != nil {
		return 0, fmt.Errorf("CreateBoard: insert failed: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateBoard: LastInsertId failed: %w", err)
	}
	return id, nil
}

// GetBoardByID returns nil, nil when the board does not exist or belongs to someone else.
func (db *DB) GetBoardByID(ctx context.Context, id, ownerID int64) (*models.Board, error) {
	board := &models.Board{}
	err := db.Main.GetContext(ctx, board,
		`SELECT `+boardColumns+` FROM Boards WHERE Id = ? AND OwnerUserId = ?`, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetBoardByID: failed to get board %d: %w", id, err)
	}
	return board, nil
}

// GetBoardByName returns nil, nil when the owner has no board with that name.
func (db *DB) GetBoardByName(ctx context.Context, ownerID int64, name string) (*models.Board, error) {
	board := &models.Board{}
	err := db.Main.GetContext(ctx, board,
		`SELECT `+boardColumns+` FROM Boards WHERE OwnerUserId = ? AND Name = ? ORDER BY Id LIMIT 1`, ownerID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetBoardByName: failed to get board %q: %w", name, err)
	}
	return board, nil
}

// GetBoardsByOwner lists the owner's boards, oldest first.
func (db *DB) GetBoardsByOwner(ctx context.Context, ownerID int64) ([]models.Board, error) {
	boards := []models.Board{}
	err := db.Main.SelectContext(ctx, &boards,
		`SELECT `+boardColumns+` FROM Boards WHERE OwnerUserId = ? ORDER BY CreatedAt ASC, Id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("GetBoardsByOwner: failed for user %d: %w", ownerID, err)
	}
	return boards, nil
}

// CountBoardsByOwner returns how many boards the owner has.
func (db *DB) CountBoardsByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	if err := db.Main.GetContext(ctx, &count, `SELECT COUNT(*) FROM Boards WHERE OwnerUserId = ?`, ownerID); err != nil {
		return 0, fmt.Errorf("CountBoardsByOwner: failed for user %d: %w", ownerID, err)
	}
	return count, nil
}

// RenameBoard returns sql.ErrNoRows when nothing matched.
func (db *DB) RenameBoard(ctx context.Context, id, ownerID int64, name string) (*models.Board, error) {
	result, err := db.Main.ExecContext(ctx,
		`UPDATE Boards SET Name = ? WHERE Id = ? AND OwnerUserId = ?`, name, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("RenameBoard: failed to update board %d: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, sql.ErrNoRows
	}
	return db.GetBoardByID(ctx, id, ownerID)
}

// DeleteBoard removes the board together with its notes and their tags.
// Returns sql.ErrNoRows when nothing matched.
func (db *DB) DeleteBoard(ctx context.Context, id, ownerID int64) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		return deleteBoardWithTx(ctx, tx, id, ownerID)
	})
}

func deleteBoardWithTx(ctx context.Context, tx *sqlx.Tx, id, ownerID int64) error {
	var exists int
	if err := tx.GetContext(ctx, &exists,
		`SELECT COUNT(*) FROM Boards WHERE Id = ? AND OwnerUserId = ?`, id, ownerID); err != nil {
		return fmt.Errorf("DeleteBoard: failed to look up board %d: %w", id, err)
	}
	if exists == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM NoteTags WHERE NoteId IN (SELECT Id FROM Notes WHERE BoardId = ?)`, id); err != nil {
		return fmt.Errorf("DeleteBoard: failed to delete tags of board %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM Notes WHERE BoardId = ?`, id); err != nil {
		return fmt.Errorf("DeleteBoard: failed to delete notes of board %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM Boards WHERE Id = ? AND OwnerUserId = ?`, id, ownerID); err != nil {
		return fmt.Errorf("DeleteBoard: failed to delete board %d: %w", id, err)
	}
	return nil
}

// DeleteAllBoardsForOwner wipes every board and note of the owner.
func (db *DB) DeleteAllBoardsForOwner(ctx context.Context, ownerID int64) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		var ids []int64
		if err := tx.SelectContext(ctx, &ids, `SELECT Id FROM Boards WHERE OwnerUserId = ?`, ownerID); err != nil {
			return fmt.Errorf("DeleteAllBoardsForOwner: failed to list boards of user %d: %w", ownerID, err)
		}
		for _, id := range ids {
			if err := deleteBoardWithTx(ctx, tx, id, ownerID); err != nil {
				return err
			}
		}
		return nil
	})
}
