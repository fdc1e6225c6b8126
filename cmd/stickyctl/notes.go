package main

import (
	"context"
	"fmt"
	"strconv"

	"stickyboard/models"
	"stickyboard/reminder"
	"stickyboard/viewstate"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	noteBoard   int64
	listTag     string
	listSearch  string
	listAll     bool
	listCards   bool
	noteTitle   string
	noteContent string
	noteColor   string
	noteTags    []string
)

var notesCmd = &cobra.Command{
	Use:     "notes",
	Aliases: []string{"note"},
	Short:   "Work with the notes on a board",
	Long: `Note commands act on the current board (see "boards use") unless
--board is given. Every change is mirrored to the local store so reminders
see it.`,
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, optionally filtered by tag or search text",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if listAll {
			if err := rt.requireLogin(); err != nil {
				return err
			}
			var notes []models.Note
			var err error
			if listTag != "" {
				notes, err = rt.api.NotesByTag(ctx, listTag)
			} else {
				notes, err = rt.api.ListAllNotes(ctx)
			}
			if err != nil {
				return describe(err)
			}
			return rt.printer().notes(notes, listCards)
		}

		view, err := rt.holder(cmd, noteBoard)
		if err != nil {
			return err
		}
		view.FilterByTag(listTag)
		view.Search(listSearch)
		return rt.printer().notes(view.Filtered(), listCards)
	},
}

var notesTagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every tag used on the board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := rt.holder(cmd, noteBoard)
		if err != nil {
			return err
		}
		tags := view.AllTags()
		p := rt.printer()
		if ok, err := p.structured(tags); ok {
			return err
		}
		for _, t := range tags {
			fmt.Fprintln(rt.out, p.styles.Tag.Render(t))
		}
		return nil
	},
}

var notesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := rt.requireLogin(); err != nil {
			return err
		}
		n, err := rt.api.GetNote(cmd.Context(), id)
		if err != nil {
			return describe(err)
		}
		return rt.printer().note(n)
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a note to the board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		view, err := rt.holder(cmd, noteBoard)
		if err != nil {
			return err
		}
		n, err := view.AddNote(ctx)
		if err != nil {
			return describe(err)
		}
		if edited, changed := applyNoteFlags(cmd, *n); changed {
			if n, err = view.UpdateNote(ctx, edited); err != nil {
				return describe(err)
			}
		}
		return rt.printer().note(n)
	},
}

var notesEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a note's title, content, color or tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNote(cmd, args[0], func(ctx context.Context, view *viewstate.Holder, n models.Note) (*models.Note, error) {
			edited, changed := applyNoteFlags(cmd, n)
			if !changed {
				return &n, nil
			}
			return view.UpdateNote(ctx, edited)
		})
	},
}

var notesMoveCmd = &cobra.Command{
	Use:   "move <id> <x> <y>",
	Short: "Move a note on the canvas",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, y, err := parsePair(args[1], args[2])
		if err != nil {
			return err
		}
		return withNote(cmd, args[0], func(ctx context.Context, view *viewstate.Holder, n models.Note) (*models.Note, error) {
			return view.MoveNote(ctx, n.ID, x, y)
		})
	},
}

var notesResizeCmd = &cobra.Command{
	Use:   "resize <id> <width> <height>",
	Short: "Resize a note",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, h, err := parsePair(args[1], args[2])
		if err != nil {
			return err
		}
		return withNote(cmd, args[0], func(ctx context.Context, view *viewstate.Holder, n models.Note) (*models.Note, error) {
			return view.ResizeNote(ctx, n.ID, w, h)
		})
	},
}

var notesColorCmd = &cobra.Command{
	Use:   "color <id> <color>",
	Short: "Recolor a note",
	Long:  fmt.Sprintf("Recolor a note. Palette: %v", models.NotePalette),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNote(cmd, args[0], func(ctx context.Context, view *viewstate.Holder, n models.Note) (*models.Note, error) {
			return view.SetColor(ctx, n.ID, args[1])
		})
	},
}

var notesTagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Add or remove note tags",
}

var notesTagAddCmd = &cobra.Command{
	Use:   "add <id> <tag>",
	Short: "Tag a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNote(cmd, args[0], func(ctx context.Context, view *viewstate.Holder, n models.Note) (*models.Note, error) {
			return view.AddTag(ctx, n.ID, args[1])
		})
	},
}

var notesTagRemoveCmd = &cobra.Command{
	Use:     "remove <id> <tag>",
	Aliases: []string{"rm"},
	Short:   "Remove a tag from a note",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNote(cmd, args[0], func(ctx context.Context, view *viewstate.Holder, n models.Note) (*models.Note, error) {
			return view.RemoveTag(ctx, n.ID, args[1])
		})
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a note and its reminder",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		view, err := rt.holder(cmd, noteBoard)
		if err != nil {
			return err
		}
		if err := view.DeleteNote(ctx, id); err != nil {
			return describe(err)
		}
		if err := reminder.New(rt.store, reminder.WithLogger(rt.log)).Remove(ctx, id); err != nil {
			rt.log.Warn("could not drop reminder of deleted note", zap.Int64("note_id", id), zap.Error(err))
		}
		return rt.printer().message("Note %d deleted", id)
	},
}

// withNote loads the board holding the note, runs fn and prints the result.
func withNote(cmd *cobra.Command, rawID string, fn func(context.Context, *viewstate.Holder, models.Note) (*models.Note, error)) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	view, err := rt.holder(cmd, noteBoard)
	if err != nil {
		return err
	}
	var found *models.Note
	for _, n := range view.Notes() {
		if n.ID == id {
			found = &n
			break
		}
	}
	if found == nil {
		return viewstate.ErrNoteNotFound
	}
	updated, err := fn(cmd.Context(), view, *found)
	if err != nil {
		return describe(err)
	}
	return rt.printer().note(updated)
}

// applyNoteFlags copies the note fields given on the command line onto n.
func applyNoteFlags(cmd *cobra.Command, n models.Note) (models.Note, bool) {
	n = n.Clone()
	changed := false
	f := cmd.Flags()
	if f.Changed("title") {
		n.Title, changed = noteTitle, true
	}
	if f.Changed("content") {
		n.Content, changed = noteContent, true
	}
	if f.Changed("color") {
		n.Color, changed = noteColor, true
	}
	if f.Changed("tag") {
		n.Tags = []string{}
		for _, t := range noteTags {
			n.AddTag(t)
		}
		changed = true
	}
	return n, changed
}

func parsePair(a, b string) (float64, float64, error) {
	x, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", a)
	}
	y, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", b)
	}
	return x, y, nil
}

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.PersistentFlags().Int64Var(&noteBoard, "board", 0, "board id (default: current board)")

	notesListCmd.Flags().StringVar(&listTag, "tag", "", "only notes carrying this exact tag")
	notesListCmd.Flags().StringVar(&listSearch, "search", "", "case-insensitive text search over title, content and tags")
	notesListCmd.Flags().BoolVar(&listAll, "all", false, "list notes from every board")
	notesListCmd.Flags().BoolVar(&listCards, "cards", false, "render notes as colored cards")

	for _, c := range []*cobra.Command{notesAddCmd, notesEditCmd} {
		c.Flags().StringVar(&noteTitle, "title", "", "note title")
		c.Flags().StringVar(&noteContent, "content", "", "note content")
		c.Flags().StringVar(&noteColor, "color", "", "palette color")
		c.Flags().StringSliceVar(&noteTags, "tag", nil, "replace the tags (repeatable)")
	}

	notesTagCmd.AddCommand(notesTagAddCmd, notesTagRemoveCmd)
	notesCmd.AddCommand(notesListCmd, notesTagsCmd, notesShowCmd, notesAddCmd, notesEditCmd,
		notesMoveCmd, notesResizeCmd, notesColorCmd, notesTagCmd, notesDeleteCmd)
}
