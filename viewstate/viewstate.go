// Package viewstate holds the notes of the selected board for the terminal
// client. Edits apply locally first, then go to the backend; the backend's
// copy wins once it answers.
package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"stickyboard/localstore"
	"stickyboard/models"

	"go.uber.org/zap"
)

var (
	ErrNoBoardSelected = errors.New("no board selected")
	ErrNoteNotFound    = errors.New("note not found on the current board")
	ErrBoardLimit      = fmt.Errorf("maximum number of boards (%d) reached", models.MaxBoardsPerUser)
	ErrInvalidColor    = errors.New("color is not in the note palette")
)

// NotesAPI is the slice of the data-access layer the view state needs.
type NotesAPI interface {
	ListBoards(ctx context.Context) ([]models.Board, error)
	CreateBoard(ctx context.Context, name string) (*models.Board, error)
	UpdateBoard(ctx context.Context, id int64, name string) (*models.Board, error)
	DeleteBoard(ctx context.Context, id int64) error
	ListNotes(ctx context.Context, boardID int64) ([]models.Note, error)
	CreateNote(ctx context.Context, note models.Note, boardID int64) (*models.Note, error)
	UpdateNote(ctx context.Context, note models.Note) (*models.Note, error)
	DeleteNote(ctx context.Context, id int64) error
}

// Holder is safe for concurrent use, though the CLI drives it from one goroutine.
type Holder struct {
	api   NotesAPI
	store localstore.Store
	log   *zap.Logger

	mu        sync.Mutex
	boards    []models.Board
	boardID   int64
	notes     []models.Note
	allTags   []string
	tagFilter string
	search    string
}

func New(api NotesAPI, store localstore.Store, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{api: api, store: store, log: logger}
}

// LoadBoards refreshes the board list.
func (h *Holder) LoadBoards(ctx context.Context) ([]models.Board, error) {
	boards, err := h.api.ListBoards(ctx)
	if err != nil {
		h.log.Error("error loading boards", zap.Error(err))
		return nil, err
	}
	h.mu.Lock()
	h.boards = boards
	h.mu.Unlock()
	return append([]models.Board(nil), boards...), nil
}

func (h *Holder) Boards() []models.Board {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.Board(nil), h.boards...)
}

// SelectedBoard returns 0 when nothing is selected.
func (h *Holder) SelectedBoard() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.boardID
}

// SelectBoard loads the board's notes and resets both filters.
func (h *Holder) SelectBoard(ctx context.Context, boardID int64) error {
	notes, err := h.api.ListNotes(ctx, boardID)
	if err != nil {
		h.log.Error("error loading notes", zap.Int64("board_id", boardID), zap.Error(err))
		return err
	}
	h.mu.Lock()
	h.boardID = boardID
	h.notes = notes
	h.tagFilter = ""
	h.search = ""
	h.updateAllTagsLocked()
	h.mu.Unlock()
	return h.mirror(ctx)
}

func cloneNotes(notes []models.Note) []models.Note {
	out := make([]models.Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}

// Notes returns every note of the selected board.
func (h *Holder) Notes() []models.Note {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneNotes(h.notes)
}

// AllTags is the sorted set of tags used on the selected board.
func (h *Holder) AllTags() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.allTags...)
}

func (h *Holder) updateAllTagsLocked() {
	set := map[string]struct{}{}
	for _, n := range h.notes {
		for _, t := range n.Tags {
			set[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	h.allTags = tags
}

// FilterByTag keeps notes carrying exactly tag. An empty tag clears the tag filter.
func (h *Holder) FilterByTag(tag string) {
	h.mu.Lock()
	h.tagFilter = tag
	h.mu.Unlock()
}

// Search matches text case-insensitively against title, content and tags.
func (h *Holder) Search(text string) {
	h.mu.Lock()
	h.search = strings.TrimSpace(text)
	h.mu.Unlock()
}

func (h *Holder) ClearFilter() {
	h.mu.Lock()
	h.tagFilter = ""
	h.search = ""
	h.mu.Unlock()
}

// Filtered applies the tag filter and the search text to the selected board's notes.
func (h *Holder) Filtered() []models.Note {
	h.mu.Lock()
	defer h.mu.Unlock()

	needle := strings.ToLower(h.search)
	out := []models.Note{}
	for _, n := range h.notes {
		if h.tagFilter != "" && !n.HasTag(h.tagFilter) {
			continue
		}
		if needle != "" && !matches(n, needle) {
			continue
		}
		out = append(out, n.Clone())
	}
	return out
}

func matches(n models.Note, needle string) bool {
	if strings.Contains(strings.ToLower(n.Title), needle) || strings.Contains(strings.ToLower(n.Content), needle) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

// mirror writes the selected board's notes to the local store for the reminder poller.
func (h *Holder) mirror(ctx context.Context) error {
	h.mu.Lock()
	notes := h.notes
	if notes == nil {
		notes = []models.Note{}
	}
	raw, err := json.Marshal(notes)
	h.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode notes mirror: %w", err)
	}
	if err := h.store.Set(ctx, localstore.KeyNotes, string(raw)); err != nil {
		h.log.Warn("could not mirror notes", zap.Error(err))
		return fmt.Errorf("mirror notes: %w", err)
	}
	return nil
}

func (h *Holder) indexLocked(id int64) int {
	for i := range h.notes {
		if h.notes[i].ID == id {
			return i
		}
	}
	return -1
}

// AddNote creates a blank note, cascading the position so new notes do not stack exactly.
func (h *Holder) AddNote(ctx context.Context) (*models.Note, error) {
	h.mu.Lock()
	boardID := h.boardID
	offset := 50 + float64((len(h.notes)*30)%200)
	h.mu.Unlock()
	if boardID == 0 {
		return nil, ErrNoBoardSelected
	}

	draft := models.Note{
		BoardID:   boardID,
		PositionX: offset,
		PositionY: offset,
		Color:     models.DefaultNoteColor,
		Tags:      []string{},
	}
	created, err := h.api.CreateNote(ctx, draft, boardID)
	if err != nil {
		h.log.Error("error creating note", zap.Error(err))
		return nil, err
	}

	h.mu.Lock()
	h.notes = append(h.notes, created.Clone())
	h.updateAllTagsLocked()
	h.mu.Unlock()
	return created, h.mirror(ctx)
}

// edit applies fn to the local copy, mirrors it, then persists it.
func (h *Holder) edit(ctx context.Context, id int64, fn func(n *models.Note) (changed bool)) (*models.Note, error) {
	h.mu.Lock()
	i := h.indexLocked(id)
	if i < 0 {
		h.mu.Unlock()
		return nil, ErrNoteNotFound
	}
	if !fn(&h.notes[i]) {
		n := h.notes[i].Clone()
		h.mu.Unlock()
		return &n, nil
	}
	h.updateAllTagsLocked()
	local := h.notes[i].Clone()
	h.mu.Unlock()

	if err := h.mirror(ctx); err != nil {
		return nil, err
	}

	updated, err := h.api.UpdateNote(ctx, local)
	if err != nil {
		h.log.Error("error updating note", zap.Int64("note_id", id), zap.Error(err))
		return nil, err
	}

	h.mu.Lock()
	if j := h.indexLocked(id); j >= 0 {
		h.notes[j] = updated.Clone()
		h.updateAllTagsLocked()
	}
	h.mu.Unlock()
	return updated, h.mirror(ctx)
}

// UpdateNote replaces the note with note's editable fields.
func (h *Holder) UpdateNote(ctx context.Context, note models.Note) (*models.Note, error) {
	return h.edit(ctx, note.ID, func(n *models.Note) bool {
		boardID, createdAt := n.BoardID, n.CreatedAt
		*n = note.Clone()
		n.BoardID, n.CreatedAt = boardID, createdAt
		return true
	})
}

// MoveNote clamps negative coordinates to the canvas origin.
func (h *Holder) MoveNote(ctx context.Context, id int64, x, y float64) (*models.Note, error) {
	return h.edit(ctx, id, func(n *models.Note) bool {
		n.PositionX = max(0, x)
		n.PositionY = max(0, y)
		return true
	})
}

// ResizeNote raises either side to the minimum note size.
func (h *Holder) ResizeNote(ctx context.Context, id int64, width, height float64) (*models.Note, error) {
	return h.edit(ctx, id, func(n *models.Note) bool {
		w, ht := max(models.MinNoteSide, width), max(models.MinNoteSide, height)
		n.Width, n.Height = &w, &ht
		return true
	})
}

func (h *Holder) SetColor(ctx context.Context, id int64, color string) (*models.Note, error) {
	if !models.IsPaletteColor(color) {
		return nil, ErrInvalidColor
	}
	return h.edit(ctx, id, func(n *models.Note) bool {
		if n.Color == color {
			return false
		}
		n.Color = color
		return true
	})
}

// AddTag is a no-op when the note already carries tag.
func (h *Holder) AddTag(ctx context.Context, id int64, tag string) (*models.Note, error) {
	tag = strings.TrimSpace(tag)
	if msg := models.ValidateTag(tag); msg != "" {
		return nil, errors.New(msg)
	}
	return h.edit(ctx, id, func(n *models.Note) bool {
		return n.AddTag(tag)
	})
}

func (h *Holder) RemoveTag(ctx context.Context, id int64, tag string) (*models.Note, error) {
	return h.edit(ctx, id, func(n *models.Note) bool {
		return n.RemoveTag(tag)
	})
}

// DeleteNote removes the note locally before asking the backend.
func (h *Holder) DeleteNote(ctx context.Context, id int64) error {
	h.mu.Lock()
	i := h.indexLocked(id)
	if i < 0 {
		h.mu.Unlock()
		return ErrNoteNotFound
	}
	h.notes = append(h.notes[:i:i], h.notes[i+1:]...)
	h.updateAllTagsLocked()
	h.mu.Unlock()

	if err := h.mirror(ctx); err != nil {
		return err
	}
	if err := h.api.DeleteNote(ctx, id); err != nil {
		h.log.Error("error deleting note", zap.Int64("note_id", id), zap.Error(err))
		return err
	}
	return nil
}

// CreateBoard refuses before calling the backend once the cap is reached.
func (h *Holder) CreateBoard(ctx context.Context, name string) (*models.Board, error) {
	h.mu.Lock()
	count := len(h.boards)
	h.mu.Unlock()
	if count >= models.MaxBoardsPerUser {
		return nil, ErrBoardLimit
	}

	board, err := h.api.CreateBoard(ctx, name)
	if err != nil {
		h.log.Error("error creating board", zap.Error(err))
		return nil, err
	}
	h.mu.Lock()
	h.boards = append(h.boards, *board)
	h.mu.Unlock()
	return board, nil
}

func (h *Holder) RenameBoard(ctx context.Context, id int64, name string) (*models.Board, error) {
	board, err := h.api.UpdateBoard(ctx, id, name)
	if err != nil {
		h.log.Error("error renaming board", zap.Int64("board_id", id), zap.Error(err))
		return nil, err
	}
	h.mu.Lock()
	for i := range h.boards {
		if h.boards[i].ID == id {
			h.boards[i] = *board
		}
	}
	h.mu.Unlock()
	return board, nil
}

// DeleteBoard clears the view when the deleted board was selected.
func (h *Holder) DeleteBoard(ctx context.Context, id int64) error {
	if err := h.api.DeleteBoard(ctx, id); err != nil {
		h.log.Error("error deleting board", zap.Int64("board_id", id), zap.Error(err))
		return err
	}

	h.mu.Lock()
	kept := h.boards[:0:0]
	for _, b := range h.boards {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	h.boards = kept
	selected := h.boardID == id
	if selected {
		h.boardID = 0
		h.notes = nil
		h.allTags = nil
		h.tagFilter = ""
		h.search = ""
	}
	h.mu.Unlock()

	if selected {
		return h.mirror(ctx)
	}
	return nil
}
