package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ViewMode selects how notes are laid out.
type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// rowsPerCard is the number of table rows a grid card occupies, including
// the blank spacer row below it.
const rowsPerCard = 4

func ParseViewMode(s string) ViewMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ViewList)) {
		return ViewList
	}
	return ViewGrid
}

func (m ViewMode) Toggle() ViewMode {
	if m == ViewGrid {
		return ViewList
	}
	return ViewGrid
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}
	return title
}

// excerpt collapses whitespace and shortens content to at most max runes.
func excerpt(content string, max int) string {
	flat := strings.Join(strings.Fields(content), " ")
	if max <= 0 || utf8.RuneCountInString(flat) <= max {
		return flat
	}
	runes := []rune(flat)
	if max == 1 {
		return "…"
	}
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}

// gridColumns returns how many cards of at least minWidth fit into width.
func gridColumns(width, minWidth int) int {
	if minWidth <= 0 || width < 2*minWidth {
		return 1
	}
	return width / minWidth
}

// gridIndex maps a selected table cell back to the note index it shows.
func gridIndex(row, col, columns int) int {
	return (row/rowsPerCard)*columns + col
}

// gridCell is the table cell holding the title of note i.
func gridCell(i, columns int) (row, col int) {
	return (i / columns) * rowsPerCard, i % columns
}

func statusText(loading bool, count int, query string) string {
	if loading {
		return "Loading…"
	}

	noun := "notes"
	if count == 1 {
		noun = "note"
	}
	if strings.TrimSpace(query) != "" {
		return fmt.Sprintf("%d %s matching %q", count, noun, query)
	}
	return fmt.Sprintf("%d %s", count, noun)
}
