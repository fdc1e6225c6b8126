// Package theme keeps the dark/light preference and the terminal styles for it.
package theme

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"stickyboard/localstore"

	"github.com/charmbracelet/lipgloss"
)

var (
	LightBackground = lipgloss.Color("#ffffff")
	LightForeground = lipgloss.Color("#1f2937")
	LightMuted      = lipgloss.Color("#6b7280")
	LightBorder     = lipgloss.Color("#e5e7eb")

	DarkBackground = lipgloss.Color("#1f2937")
	DarkForeground = lipgloss.Color("#f9fafb")
	DarkMuted      = lipgloss.Color("#9ca3af")
	DarkBorder     = lipgloss.Color("#374151")

	Alert   = lipgloss.Color("#ef4444")
	Primary = lipgloss.Color("#6366f1")
)

// Styles is the style set for one mode.
type Styles struct {
	Dark bool

	Title    lipgloss.Style
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Tag      lipgloss.Style
	Error    lipgloss.Style
	Box      lipgloss.Style
	AlertBox lipgloss.Style
}

// NewStyles builds the styles for dark or light mode.
func NewStyles(dark bool) Styles {
	fg, muted, border, bg := LightForeground, LightMuted, LightBorder, LightBackground
	if dark {
		fg, muted, border, bg = DarkForeground, DarkMuted, DarkBorder, DarkBackground
	}
	return Styles{
		Dark:  dark,
		Title: lipgloss.NewStyle().Bold(true).Foreground(Primary),
		Text:  lipgloss.NewStyle().Foreground(fg),
		Muted: lipgloss.NewStyle().Foreground(muted),
		Tag:   lipgloss.NewStyle().Foreground(Primary).Padding(0, 1),
		Error: lipgloss.NewStyle().Bold(true).Foreground(Alert),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		AlertBox: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(Alert).
			Background(bg).
			Padding(1, 4).
			Align(lipgloss.Center),
	}
}

// Note renders a sticky note card in its own palette color.
func (s Styles) Note(color, body string) string {
	return s.Box.
		BorderForeground(lipgloss.Color(color)).
		Render(body)
}

// ReminderAlert renders the box shown when a reminder fires.
func (s Styles) ReminderAlert(title string) string {
	if title == "" {
		title = "Untitled Note"
	}
	heading := lipgloss.NewStyle().Bold(true).Foreground(Alert).Render("Note Reminder")
	name := s.Text.Bold(true).Render(fmt.Sprintf("%q", title))
	hint := s.Muted.Render("Your reminder went off!")
	return s.AlertBox.Render(lipgloss.JoinVertical(lipgloss.Center, heading, "", name, hint))
}

// State is the persisted dark-mode flag.
type State struct {
	store localstore.Store

	mu   sync.Mutex
	dark bool
}

// New reads the stored preference: only "true" is dark. With nothing stored,
// fallbackDark decides and nothing is written until the user toggles.
func New(ctx context.Context, store localstore.Store, fallbackDark bool) (*State, error) {
	s := &State{store: store, dark: fallbackDark}
	raw, ok, err := store.Get(ctx, localstore.KeyDarkMode)
	if err != nil {
		return nil, fmt.Errorf("read theme: %w", err)
	}
	if ok {
		s.dark = raw == "true"
	}
	return s, nil
}

func (s *State) IsDark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}

// Set stores the preference as "true" or "false".
func (s *State) Set(ctx context.Context, dark bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, localstore.KeyDarkMode, strconv.FormatBool(dark)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	s.dark = dark
	return nil
}

// Toggle flips and persists the preference, returning the new value.
func (s *State) Toggle(ctx context.Context) (bool, error) {
	next := !s.IsDark()
	if err := s.Set(ctx, next); err != nil {
		return !next, err
	}
	return next, nil
}

func (s *State) Styles() Styles {
	return NewStyles(s.IsDark())
}
