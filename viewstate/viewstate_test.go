package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"stickyboard/localstore"
	"stickyboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI keeps boards and notes in maps and records update calls.
type fakeAPI struct {
	boards  []models.Board
	notes   map[int64]models.Note
	nextID  int64
	updates int
	failing error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{notes: map[int64]models.Note{}, nextID: 100}
}

func (f *fakeAPI) ListBoards(context.Context) ([]models.Board, error) {
	return append([]models.Board(nil), f.boards...), f.failing
}

func (f *fakeAPI) CreateBoard(_ context.Context, name string) (*models.Board, error) {
	f.nextID++
	b := models.Board{ID: f.nextID, Name: name}
	f.boards = append(f.boards, b)
	return &b, nil
}

func (f *fakeAPI) UpdateBoard(_ context.Context, id int64, name string) (*models.Board, error) {
	return &models.Board{ID: id, Name: name}, nil
}

func (f *fakeAPI) DeleteBoard(context.Context, int64) error { return f.failing }

func (f *fakeAPI) ListNotes(_ context.Context, boardID int64) ([]models.Note, error) {
	var out []models.Note
	for _, n := range f.notes {
		if n.BoardID == boardID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, f.failing
}

func (f *fakeAPI) CreateNote(_ context.Context, note models.Note, boardID int64) (*models.Note, error) {
	if f.failing != nil {
		return nil, f.failing
	}
	f.nextID++
	note.ID = f.nextID
	note.BoardID = boardID
	f.notes[note.ID] = note
	return &note, nil
}

func (f *fakeAPI) UpdateNote(_ context.Context, note models.Note) (*models.Note, error) {
	f.updates++
	if f.failing != nil {
		return nil, f.failing
	}
	f.notes[note.ID] = note
	return &note, nil
}

func (f *fakeAPI) DeleteNote(_ context.Context, id int64) error {
	if f.failing != nil {
		return f.failing
	}
	delete(f.notes, id)
	return nil
}

func setup(t *testing.T) (*Holder, *fakeAPI, *localstore.MemoryStore) {
	t.Helper()
	api := newFakeAPI()
	api.boards = []models.Board{{ID: 1, Name: "Main Board"}}
	api.notes[10] = models.Note{ID: 10, BoardID: 1, Title: "Groceries", Content: "milk", Tags: []string{"home"}, Color: models.DefaultNoteColor}
	api.notes[11] = models.Note{ID: 11, BoardID: 1, Title: "Deploy", Content: "Friday release", Tags: []string{"work", "Urgent"}, Color: models.DefaultNoteColor}
	api.notes[12] = models.Note{ID: 12, BoardID: 2, Title: "Elsewhere"}

	store := localstore.NewMemoryStore()
	h := New(api, store, zap.NewNop())
	_, err := h.LoadBoards(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.SelectBoard(context.Background(), 1))
	return h, api, store
}

func mirrored(t *testing.T, store localstore.Store) []models.Note {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), localstore.KeyNotes)
	require.NoError(t, err)
	require.True(t, ok)
	var notes []models.Note
	require.NoError(t, json.Unmarshal([]byte(raw), &notes))
	return notes
}

func TestSelectBoardLoadsAndMirrors(t *testing.T) {
	h, _, store := setup(t)

	assert.Len(t, h.Notes(), 2)
	assert.Equal(t, []string{"Urgent", "home", "work"}, h.AllTags())
	assert.Len(t, mirrored(t, store), 2)
	assert.Equal(t, int64(1), h.SelectedBoard())
}

func TestFilters(t *testing.T) {
	h, _, _ := setup(t)

	h.FilterByTag("work")
	require.Len(t, h.Filtered(), 1)
	assert.Equal(t, int64(11), h.Filtered()[0].ID)

	h.FilterByTag("Work")
	assert.Empty(t, h.Filtered())

	h.FilterByTag("")
	h.Search("MILK")
	require.Len(t, h.Filtered(), 1)
	assert.Equal(t, int64(10), h.Filtered()[0].ID)

	h.Search("urgent")
	require.Len(t, h.Filtered(), 1)
	assert.Equal(t, int64(11), h.Filtered()[0].ID)

	h.FilterByTag("home")
	assert.Empty(t, h.Filtered())

	h.ClearFilter()
	assert.Len(t, h.Filtered(), 2)
}

func TestAddNoteCascadesPosition(t *testing.T) {
	h, _, store := setup(t)
	ctx := context.Background()

	n, err := h.AddNote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 110.0, n.PositionX)
	assert.Equal(t, 110.0, n.PositionY)
	assert.Equal(t, models.DefaultNoteColor, n.Color)
	assert.Empty(t, n.Tags)

	for i := 0; i < 4; i++ {
		_, err = h.AddNote(ctx)
		require.NoError(t, err)
	}
	notes := h.Notes()
	require.Len(t, notes, 7)
	// 6 notes existed when the last one was added: 50 + 180%200
	assert.Equal(t, 230.0, notes[6].PositionX)
	assert.Len(t, mirrored(t, store), 7)
}

func TestAddNoteWithoutBoard(t *testing.T) {
	h := New(newFakeAPI(), localstore.NewMemoryStore(), nil)
	_, err := h.AddNote(context.Background())
	assert.ErrorIs(t, err, ErrNoBoardSelected)
}

func TestMoveResizeColor(t *testing.T) {
	h, api, store := setup(t)
	ctx := context.Background()

	n, err := h.MoveNote(ctx, 10, -20, 35)
	require.NoError(t, err)
	assert.Equal(t, 0.0, n.PositionX)
	assert.Equal(t, 35.0, n.PositionY)
	assert.Equal(t, 0.0, api.notes[10].PositionX)

	n, err = h.ResizeNote(ctx, 10, 50, 240)
	require.NoError(t, err)
	assert.Equal(t, models.MinNoteSide, *n.Width)
	assert.Equal(t, 240.0, *n.Height)

	_, err = h.SetColor(ctx, 10, "#000000")
	assert.ErrorIs(t, err, ErrInvalidColor)

	n, err = h.SetColor(ctx, 10, "#dbeafe")
	require.NoError(t, err)
	assert.Equal(t, "#dbeafe", n.Color)

	for _, m := range mirrored(t, store) {
		if m.ID == 10 {
			assert.Equal(t, "#dbeafe", m.Color)
		}
	}

	_, err = h.MoveNote(ctx, 999, 1, 1)
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestTagsAreCaseSensitiveAndAddIsIdempotent(t *testing.T) {
	h, api, _ := setup(t)
	ctx := context.Background()

	before := api.updates
	_, err := h.AddTag(ctx, 10, "home")
	require.NoError(t, err)
	assert.Equal(t, before, api.updates, "existing tag must not trigger a backend call")

	n, err := h.AddTag(ctx, 10, " Home ")
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "Home"}, n.Tags)
	assert.Contains(t, h.AllTags(), "Home")

	_, err = h.AddTag(ctx, 10, "   ")
	assert.Error(t, err)

	n, err = h.RemoveTag(ctx, 10, "home")
	require.NoError(t, err)
	assert.Equal(t, []string{"Home"}, n.Tags)
	assert.NotContains(t, h.AllTags(), "home")
}

func TestFailedUpdateKeepsOptimisticState(t *testing.T) {
	h, api, store := setup(t)
	api.failing = errors.New("backend down")

	_, err := h.MoveNote(context.Background(), 11, 300, 300)
	require.Error(t, err)

	for _, n := range h.Notes() {
		if n.ID == 11 {
			assert.Equal(t, 300.0, n.PositionX)
		}
	}
	for _, n := range mirrored(t, store) {
		if n.ID == 11 {
			assert.Equal(t, 300.0, n.PositionX)
		}
	}
}

func TestUpdateNoteKeepsBoard(t *testing.T) {
	h, api, _ := setup(t)
	n, err := h.UpdateNote(context.Background(), models.Note{ID: 11, BoardID: 99, Title: "Deploy v2", Color: "#fce7f3"})
	require.NoError(t, err)
	assert.Equal(t, "Deploy v2", n.Title)
	assert.Equal(t, int64(1), api.notes[11].BoardID)
}

func TestDeleteNote(t *testing.T) {
	h, api, store := setup(t)
	ctx := context.Background()

	require.NoError(t, h.DeleteNote(ctx, 10))
	assert.Len(t, h.Notes(), 1)
	assert.NotContains(t, api.notes, int64(10))
	assert.Len(t, mirrored(t, store), 1)
	assert.Equal(t, []string{"Urgent", "work"}, h.AllTags())

	assert.ErrorIs(t, h.DeleteNote(ctx, 10), ErrNoteNotFound)
}

func TestBoards(t *testing.T) {
	h, api, store := setup(t)
	ctx := context.Background()

	for len(h.Boards()) < models.MaxBoardsPerUser {
		_, err := h.CreateBoard(ctx, "extra")
		require.NoError(t, err)
	}
	calls := len(api.boards)
	_, err := h.CreateBoard(ctx, "one more")
	assert.ErrorIs(t, err, ErrBoardLimit)
	assert.Equal(t, calls, len(api.boards))

	b, err := h.RenameBoard(ctx, 1, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", b.Name)
	assert.Equal(t, "Renamed", h.Boards()[0].Name)

	require.NoError(t, h.DeleteBoard(ctx, 1))
	assert.Zero(t, h.SelectedBoard())
	assert.Empty(t, h.Notes())
	assert.Empty(t, mirrored(t, store))
	assert.Len(t, h.Boards(), models.MaxBoardsPerUser-1)
}
