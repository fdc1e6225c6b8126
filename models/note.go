package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultNoteColor = "#fef3c7"

	MaxTitleLen   = 255
	MaxContentLen = 1000
	MaxTagLen     = 50

	// MinNoteSide is the smallest width or height a resized note may have.
	MinNoteSide = 100.0

	DefaultPositionX = 100.0
	DefaultPositionY = 100.0
)

// NotePalette lists the colors a note may take, in picker order.
var NotePalette = []string{"#fef3c7", "#dbeafe", "#fce7f3", "#d1fae5", "#f3e8ff", "#ffedd5"}

// IsPaletteColor reports whether c is one of NotePalette.
func IsPaletteColor(c string) bool {
	for _, p := range NotePalette {
		if p == c {
			return true
		}
	}
	return false
}

// Note is a sticky note placed on a board's canvas.
//
// ReminderAt and ReminderTriggered are never stored by the server: the client
// merges them in from its local reminder records.
type Note struct {
	ID                int64      `json:"id,omitempty" db:"Id"`
	BoardID           int64      `json:"boardId" db:"BoardId"`
	UserID            int64      `json:"-" db:"UserId"`
	Title             string     `json:"title" db:"Title"`
	Content           string     `json:"content" db:"Content"`
	PositionX         float64    `json:"positionX" db:"PositionX"`
	PositionY         float64    `json:"positionY" db:"PositionY"`
	Width             *float64   `json:"width,omitempty" db:"Width"`
	Height            *float64   `json:"height,omitempty" db:"Height"`
	Color             string     `json:"color" db:"Color"`
	CreatedAt         time.Time  `json:"createdAt" db:"CreatedAt"`
	Tags              []string   `json:"tags" db:"-"`
	ReminderAt        *time.Time `json:"reminderAt,omitempty" db:"-"`
	ReminderTriggered bool       `json:"reminderTriggered,omitempty" db:"-"`
}

// HasTag is a case-sensitive membership check.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag unless it is already present. It reports whether the set changed.
func (n *Note) AddTag(tag string) bool {
	if n.HasTag(tag) {
		return false
	}
	n.Tags = append(n.Tags, tag)
	return true
}

// RemoveTag drops tag from the set. It reports whether the set changed.
func (n *Note) RemoveTag(tag string) bool {
	for i, t := range n.Tags {
		if t == tag {
			n.Tags = append(n.Tags[:i:i], n.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate it freely.
func (n Note) Clone() Note {
	c := n
	if n.Width != nil {
		w := *n.Width
		c.Width = &w
	}
	if n.Height != nil {
		h := *n.Height
		c.Height = &h
	}
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	if n.ReminderAt != nil {
		r := *n.ReminderAt
		c.ReminderAt = &r
	}
	return c
}

// NoteInput is the body of note create and update requests. Nil fields keep
// the current value on update and take the default on create. Tags is always
// encoded so an empty list clears the tags; an absent or null list decodes to nil.
type NoteInput struct {
	BoardID   *int64   `json:"boardId,omitempty"`
	Title     *string  `json:"title,omitempty"`
	Content   *string  `json:"content,omitempty"`
	PositionX *float64 `json:"positionX,omitempty"`
	PositionY *float64 `json:"positionY,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	Color     *string  `json:"color,omitempty"`
	Tags      []string `json:"tags"`
}

// InputFromNote builds a full update body from a note.
func InputFromNote(n Note) NoteInput {
	in := NoteInput{
		Title:     &n.Title,
		Content:   &n.Content,
		PositionX: &n.PositionX,
		PositionY: &n.PositionY,
		Width:     n.Width,
		Height:    n.Height,
		Color:     &n.Color,
		Tags:      n.Tags,
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	return in
}

// NewNote builds a note with defaults filled in for every missing field.
func (in NoteInput) NewNote() Note {
	n := Note{
		Color:     DefaultNoteColor,
		PositionX: DefaultPositionX,
		PositionY: DefaultPositionY,
		Tags:      []string{},
	}
	in.ApplyTo(&n)
	return n
}

// ApplyTo copies every non-nil field onto n. Tags are deduplicated on the way in.
func (in NoteInput) ApplyTo(n *Note) {
	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	if in.PositionX != nil {
		n.PositionX = *in.PositionX
	}
	if in.PositionY != nil {
		n.PositionY = *in.PositionY
	}
	if in.Width != nil {
		w := *in.Width
		n.Width = &w
	}
	if in.Height != nil {
		h := *in.Height
		n.Height = &h
	}
	if in.Color != nil {
		n.Color = *in.Color
	}
	if in.Tags != nil {
		n.Tags = make([]string, 0, len(in.Tags))
		for _, t := range in.Tags {
			n.AddTag(strings.TrimSpace(t))
		}
	}
}

// Validate returns field -> message for every rule the input breaks.
func (in NoteInput) Validate() map[string]string {
	errs := map[string]string{}
	if in.Title != nil && utf8.RuneCountInString(*in.Title) > MaxTitleLen {
		errs["title"] = fmt.Sprintf("Title must not exceed %d characters", MaxTitleLen)
	}
	if in.Content != nil && utf8.RuneCountInString(*in.Content) > MaxContentLen {
		errs["content"] = fmt.Sprintf("Content must not exceed %d characters", MaxContentLen)
	}
	if in.Color != nil && !IsPaletteColor(*in.Color) {
		errs["color"] = "Color must be one of the palette colors"
	}
	if in.PositionX != nil && *in.PositionX < 0 {
		errs["positionX"] = "Position must not be negative"
	}
	if in.PositionY != nil && *in.PositionY < 0 {
		errs["positionY"] = "Position must not be negative"
	}
	if in.Width != nil && *in.Width < MinNoteSide {
		errs["width"] = fmt.Sprintf("Width must be at least %.0f", MinNoteSide)
	}
	if in.Height != nil && *in.Height < MinNoteSide {
		errs["height"] = fmt.Sprintf("Height must be at least %.0f", MinNoteSide)
	}
	for _, t := range in.Tags {
		if msg := ValidateTag(t); msg != "" {
			errs["tags"] = msg
			break
		}
	}
	return errs
}

// ValidateTag returns an empty string when tag is acceptable.
func ValidateTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "Tags must not be empty"
	}
	if utf8.RuneCountInString(tag) > MaxTagLen {
		return fmt.Sprintf("Tags must not exceed %d characters", MaxTagLen)
	}
	return ""
}
