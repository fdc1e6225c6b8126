package data

import (
	"context"
	"fmt"
	"time"

	"stickyboard/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DefaultBoardName is the board every new account starts with.
const DefaultBoardName = "Main Board"

func sizePtr(v float64) *float64 { return &v }

func defaultNotes() []models.Note {
	return []models.Note{
		{
			Title:     "Welcome to Notes Management!",
			Content:   "This is a demo note. You can drag me around, edit me, or delete me. Try it out!",
			PositionX: 100, PositionY: 100,
			Width: sizePtr(385), Height: sizePtr(300),
			Color: "#fef3c7",
		},
		{
			Title: "Getting Started",
			Content: "1. Manage your boards from the board list\n" +
				"2. Create new notes with the + button\n" +
				"3. Drag notes to organize\n" +
				"4. Resize notes from the bottom right corner\n" +
				"5. Use tags to categorize\n" +
				"6. Set reminders\n" +
				"7. Search by tags or title\n" +
				"8. Switch themes with the moon/sun button",
			PositionX: 530, PositionY: 150,
			Width: sizePtr(275), Height: sizePtr(500),
			Color: "#dbeafe",
		},
		{
			Title: "Security Features",
			Content: "This app uses:\n" +
				"• JWT authentication\n" +
				"• BCrypt password hashing\n" +
				"• SQLite storage\n" +
				"• Per-user data authorization\n" +
				"• Parameterized queries against SQL injection",
			PositionX: 850, PositionY: 50,
			Width: sizePtr(300), Height: sizePtr(350),
			Color: "#d1fae5",
		},
	}
}

// SeedDefaultBoard gives the user a "Main Board" with the starter notes.
// It does nothing when a board with that name already exists and reports whether it seeded.
func (db *DB) SeedDefaultBoard(ctx context.Context, userID int64) (bool, error) {
	existing, err := db.GetBoardByName(ctx, userID, DefaultBoardName)
	if err != nil {
		return false, fmt.Errorf("SeedDefaultBoard: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	now := time.Now().UTC()
	err = db.inTx(ctx, func(tx *sqlx.Tx) error {
		board := &models.Board{Name: DefaultBoardName, OwnerUserID: userID, CreatedAt: now}
		boardID, err := createBoardWithTx(ctx, tx, board)
		if err != nil {
			return err
		}
		for i, n := range defaultNotes() {
			n.BoardID = boardID
			n.UserID = userID
			n.Tags = []string{}
			// keep the starter notes in a stable order
			n.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
			noteID, err := createNoteWithTx(ctx, tx, &n)
			if err != nil {
				return err
			}
			if err := replaceTagsWithTx(ctx, tx, noteID, n.Tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("SeedDefaultBoard: %w", err)
	}
	db.log.Info("seeded default board", zap.Int64("user_id", userID))
	return true, nil
}
