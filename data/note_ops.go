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

const noteColumns = `Id, BoardId, UserId, Title, Content, PositionX, PositionY, Width, Height, Color, CreatedAt`

type noteTag struct {
	NoteID int64  `db:"NoteId"`
	Tag    string `db:"Tag"`
}

// CreateNote inserts the note and its tags. note.BoardID and note.UserID must be set;
// the caller has already checked that the board belongs to the user.
func (db *DB) CreateNote(ctx context.Context, note *models.Note) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}

	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		id, err := createNoteWithTx(ctx, tx, note)
		if err != nil {
			return err
		}
		note.ID = id
		return replaceTagsWithTx(ctx, tx, note.ID, note.Tags)
	})
}

func createNoteWithTx(ctx context.Context, tx *sqlx.Tx, note *models.Note) (int64, error) {
	query := `INSERT INTO Notes (BoardId, UserId, Title, Content, PositionX, PositionY, Width, Height, Color, CreatedAt)
	          VALUES (:BoardId, :UserId, :Title, :Content, :PositionX, :PositionY, :Width, :Height, :Color, :CreatedAt)`
	result, err := tx.NamedExecContext(ctx, query, note)
	if err != nil {
		return 0, fmt.Errorf("CreateNote: insert failed: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateNote: LastInsertId failed: %w", err)
	}
	return id, nil
}

// replaceTagsWithTx rewrites the tag set of a note, keeping the given order.
func replaceTagsWithTx(ctx context.Context, tx *sqlx.Tx, noteID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM NoteTags WHERE NoteId = ?`, noteID); err != nil {
		return fmt.Errorf("replaceTags: failed to clear tags of note %d: %w", noteID, err)
	}
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO NoteTags (NoteId, Tag, Position) VALUES (?, ?, ?)`, noteID, tag, i); err != nil {
			return fmt.Errorf("replaceTags: failed to insert tag %q for note %d: %w", tag, noteID, err)
		}
	}
	return nil
}

// attachTags loads the tags of every note in one query.
func (db *DB) attachTags(ctx context.Context, notes []models.Note) error {
	if len(notes) == 0 {
		return nil
	}
	ids := make([]int64, len(notes))
	index := make(map[int64]int, len(notes))
	for i := range notes {
		ids[i] = notes[i].ID
		index[notes[i].ID] = i
		notes[i].Tags = []string{}
	}

	query, args, err := sqlx.In(`SELECT NoteId, Tag FROM NoteTags WHERE NoteId IN (?) ORDER BY NoteId, Position`, ids)
	if err != nil {
		return fmt.Errorf("attachTags: failed to build query: %w", err)
	}
	var rows []noteTag
	if err := db.Main.SelectContext(ctx, &rows, db.Main.Rebind(query), args...); err != nil {
		return fmt.Errorf("attachTags: failed to load tags: %w", err)
	}
	for _, r := range rows {
		i := index[r.NoteID]
		notes[i].Tags = append(notes[i].Tags, r.Tag)
	}
	return nil
}

func (db *DB) selectNotes(ctx context.Context, op, where string, args ...interface{}) ([]models.Note, error) {
	notes := []models.Note{}
	query := `SELECT ` + noteColumns + ` FROM Notes WHERE ` + where + ` ORDER BY CreatedAt ASC, Id ASC`
	if err := db.Main.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.attachTags(ctx, notes); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return notes, nil
}

// GetNoteByID returns nil, nil when the note does not exist or belongs to someone else.
func (db *DB) GetNoteByID(ctx context.Context, id, userID int64) (*models.Note, error) {
	notes, err := db.selectNotes(ctx, "GetNoteByID", `Id = ? AND UserId = ?`, id, userID)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, nil
	}
	return &notes[0], nil
}

// GetNotesByUser lists every note of the user across boards.
func (db *DB) GetNotesByUser(ctx context.Context, userID int64) ([]models.Note, error) {
	return db.selectNotes(ctx, "GetNotesByUser", `UserId = ?`, userID)
}

// GetNotesByBoard lists the notes of one board owned by the user.
func (db *DB) GetNotesByBoard(ctx context.Context, boardID, userID int64) ([]models.Note, error) {
	return db.selectNotes(ctx, "GetNotesByBoard", `BoardId = ? AND UserId = ?`, boardID, userID)
}

// GetNotesByTag lists the user's notes carrying the tag. Matching is case-sensitive.
func (db *DB) GetNotesByTag(ctx context.Context, tag string, userID int64) ([]models.Note, error) {
	return db.selectNotes(ctx, "GetNotesByTag",
		`UserId = ? AND Id IN (SELECT NoteId FROM NoteTags WHERE Tag = ?)`, userID, tag)
}

// UpdateNote overwrites the editable fields and the tag set.
// Returns sql.ErrNoRows when the note does not exist for that user.
func (db *DB) UpdateNote(ctx context.Context, note *models.Note) error {
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		query := `UPDATE Notes SET
		            Title = :Title, Content = :Content, PositionX = :PositionX, PositionY = :PositionY,
		            Width = :Width, Height = :Height, Color = :Color
		          WHERE Id = :Id AND UserId = :UserId`
		result, err := tx.NamedExecContext(ctx, query, note)
		if err != nil {
			return fmt.Errorf("UpdateNote: failed to update note %d: %w", note.ID, err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return sql.ErrNoRows
		}
		return replaceTagsWithTx(ctx, tx, note.ID, note.Tags)
	})
}

// DeleteNote returns sql.ErrNoRows when the note does not exist for that user.
func (db *DB) DeleteNote(ctx context.Context, id, userID int64) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM Notes WHERE Id = ? AND UserId = ?`, id, userID); err != nil {
			return fmt.Errorf("DeleteNote: failed to look up note %d: %w", id, err)
		}
		if exists == 0 {
			return sql.ErrNoRows
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM NoteTags WHERE NoteId = ?`, id); err != nil {
			return fmt.Errorf("DeleteNote: failed to delete tags of note %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM Notes WHERE Id = ?`, id); err != nil {
			return fmt.Errorf("DeleteNote: failed to delete note %d: %w", id, err)
		}
		return nil
	})
}

// IsNotFound reports whether err means "no matching row".
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
