package store

import (
	"sort"
	"strings"
	"time"
)

// timestampLayouts lists the layouts accepted for raw timestamps, covering
// RFC 3339 and the text forms PostgreSQL uses for timestamp/timestamptz.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp returns the zero time for empty or unparseable input.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// normalize turns a raw record into a fully populated Note. Missing title and
// content become empty strings, a missing created_at becomes now and a missing
// updated_at falls back to created_at. updated_at never precedes created_at.
func normalize(rec Record, now time.Time) Note {
	note := Note{ID: rec.ID}
	if rec.Title != nil {
		note.Title = *rec.Title
	}
	if rec.Content != nil {
		note.Content = *rec.Content
	}

	note.CreatedAt = parseTimestamp(rec.CreatedAt)
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}

	note.UpdatedAt = parseTimestamp(rec.UpdatedAt)
	if note.UpdatedAt.IsZero() || note.UpdatedAt.Before(note.CreatedAt) {
		note.UpdatedAt = note.CreatedAt
	}

	return note
}

func normalizeAll(recs []Record, now time.Time) []Note {
	notes := make([]Note, 0, len(recs))
	for _, rec := range recs {
		notes = append(notes, normalize(rec, now))
	}
	return notes
}

// Record converts a note back into its persisted form.
func (n Note) Record() Record {
	return Record{
		ID:        n.ID,
		Title:     stringPtr(n.Title),
		Content:   stringPtr(n.Content),
		CreatedAt: formatTimestamp(n.CreatedAt),
		UpdatedAt: formatTimestamp(n.UpdatedAt),
	}
}

// sortByUpdatedAt orders notes most recently updated first, keeping the
// relative order of notes updated at the same instant.
func sortByUpdatedAt(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
}

// matchesQuery reports whether q (already lower-cased) occurs in the title or content.
func (n Note) matchesQuery(q string) bool {
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q)
}

// filterNotes keeps notes matching query in the order given.
func filterNotes(notes []Note, query string) []Note {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return notes
	}

	filtered := make([]Note, 0, len(notes))
	for _, note := range notes {
		if note.matchesQuery(q) {
			filtered = append(filtered, note)
		}
	}
	return filtered
}
