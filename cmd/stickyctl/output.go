package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"stickyboard/models"
	"stickyboard/reminder"
	"stickyboard/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// printer writes command results in the format picked with --output.
type printer struct {
	w      io.Writer
	format string
	styles theme.Styles
}

func (a *app) printer() printer {
	return printer{w: a.out, format: outputFmt, styles: a.theme.Styles()}
}

// structured writes v as JSON or YAML. It reports false for table output.
func (p printer) structured(v interface{}) (bool, error) {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		// round-trip through JSON so YAML keys match the API field names
		raw, err := json.Marshal(v)
		if err != nil {
			return true, err
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return true, err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return true, err
		}
		_, err = p.w.Write(out)
		return true, err
	}
	return false, nil
}

func (p printer) table(headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.Muted).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.Title.Padding(0, 1)
			}
			return p.styles.Text.Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(p.w, t.Render())
	return err
}

func (p printer) message(format string, args ...interface{}) error {
	if ok, err := p.structured(map[string]string{"message": fmt.Sprintf(format, args...)}); ok {
		return err
	}
	_, err := fmt.Fprintln(p.w, p.styles.Text.Render(fmt.Sprintf(format, args...)))
	return err
}

func (p printer) boards(boards []models.Board, current int64) error {
	if ok, err := p.structured(boards); ok {
		return err
	}
	rows := make([][]string, 0, len(boards))
	for _, b := range boards {
		mark := ""
		if b.ID == current {
			mark = "*"
		}
		rows = append(rows, []string{mark, strconv.FormatInt(b.ID, 10), b.Name, b.CreatedAt.Local().Format("2006-01-02")})
	}
	return p.table([]string{"", "ID", "NAME", "CREATED"}, rows)
}

func (p printer) board(b *models.Board) error {
	return p.boards([]models.Board{*b}, 0)
}

// notes renders each note as a colored card, or a summary table when cards is false.
func (p printer) notes(notes []models.Note, cards bool) error {
	if ok, err := p.structured(notes); ok {
		return err
	}
	if !cards {
		rows := make([][]string, 0, len(notes))
		for _, n := range notes {
			rows = append(rows, []string{
				strconv.FormatInt(n.ID, 10),
				n.Title,
				strings.Join(n.Tags, ", "),
				fmt.Sprintf("%.0f,%.0f", n.PositionX, n.PositionY),
				n.Color,
			})
		}
		return p.table([]string{"ID", "TITLE", "TAGS", "POS", "COLOR"}, rows)
	}
	for _, n := range notes {
		if _, err := fmt.Fprintln(p.w, p.styles.Note(n.Color, noteBody(p.styles, n))); err != nil {
			return err
		}
	}
	return nil
}

func (p printer) note(n *models.Note) error {
	if ok, err := p.structured(n); ok {
		return err
	}
	return p.notes([]models.Note{*n}, true)
}

func noteBody(s theme.Styles, n models.Note) string {
	title := n.Title
	if title == "" {
		title = "Untitled"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", n.ID, title)
	if n.Content != "" {
		b.WriteString("\n" + n.Content)
	}
	if len(n.Tags) > 0 {
		tags := make([]string, len(n.Tags))
		for i, t := range n.Tags {
			tags[i] = s.Tag.Render(t)
		}
		b.WriteString("\n" + strings.Join(tags, " "))
	}
	return b.String()
}

type reminderRow struct {
	NoteID      int64      `json:"noteId"`
	ReminderAt  *time.Time `json:"reminderAt"`
	Triggered   bool       `json:"reminderTriggered"`
	TriggeredAt *time.Time `json:"triggeredAt"`
}

func (p printer) reminders(records map[int64]reminder.Record) error {
	ids := make([]int64, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	list := make([]reminderRow, 0, len(ids))
	for _, id := range ids {
		r := records[id]
		list = append(list, reminderRow{NoteID: id, ReminderAt: r.ReminderAt, Triggered: r.ReminderTriggered, TriggeredAt: r.TriggeredAt})
	}
	if ok, err := p.structured(list); ok {
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, r := range list {
		rows = append(rows, []string{strconv.FormatInt(r.NoteID, 10), formatTime(r.ReminderAt), strconv.FormatBool(r.Triggered)})
	}
	return p.table([]string{"NOTE", "AT", "TRIGGERED"}, rows)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
