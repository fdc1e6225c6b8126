package data

import (
	"context"
	"testing"
	"time"

	"stickyboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportAndRestoreBackup(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	src := mustUser(t, db, "src@example.com")
	dst := mustUser(t, db, "dst@example.com")

	_, err := db.SeedDefaultBoard(ctx, src.ID)
	require.NoError(t, err)
	empty, err := db.CreateBoard(ctx, src.ID, "Empty")
	require.NoError(t, err)
	mainBoard, err := db.GetBoardByName(ctx, src.ID, DefaultBoardName)
	require.NoError(t, err)
	require.NoError(t, db.CreateNote(ctx, &models.Note{
		BoardID: mainBoard.ID, UserID: src.ID, Title: "tagged", Color: models.DefaultNoteColor, Tags: []string{"a", "b"},
		CreatedAt: time.Now().UTC().Add(time.Hour),
	}))

	backup, err := db.ExportBackup(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, backup.Boards, 2)
	assert.Equal(t, DefaultBoardName, backup.Boards[0].Name)
	assert.Len(t, backup.Boards[0].Notes, 4)
	assert.Equal(t, empty.Name, backup.Boards[1].Name)
	assert.NotNil(t, backup.Boards[1].Notes)
	assert.Empty(t, backup.Boards[1].Notes)

	result, err := db.RestoreBackup(ctx, dst.ID, backup)
	require.NoError(t, err)
	assert.Equal(t, &models.RestoreResult{Boards: 2, Notes: 4}, result)

	boards, err := db.GetBoardsByOwner(ctx, dst.ID)
	require.NoError(t, err)
	require.Len(t, boards, 2)
	notes, err := db.GetNotesByBoard(ctx, boards[0].ID, dst.ID)
	require.NoError(t, err)
	require.Len(t, notes, 4)
	assert.Equal(t, []string{"a", "b"}, notes[3].Tags)

	// the source account is untouched
	srcNotes, err := db.GetNotesByUser(ctx, src.ID)
	require.NoError(t, err)
	assert.Len(t, srcNotes, 4)
}

func TestRestoreBackupOverLimitCreatesNothing(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	owner := mustUser(t, db, "owner@example.com")
	_, err := db.CreateBoard(ctx, owner.ID, "existing")
	require.NoError(t, err)

	backup := &models.BackupData{}
	for i := 0; i < models.MaxBoardsPerUser; i++ {
		backup.Boards = append(backup.Boards, models.BoardBackup{Name: "restored", Notes: []models.Note{{Title: "n", Color: models.DefaultNoteColor}}})
	}
	_, err = db.RestoreBackup(ctx, owner.ID, backup)
	assert.ErrorIs(t, err, ErrBoardLimit)

	count, err := db.CountBoardsByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	notes, err := db.GetNotesByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}
