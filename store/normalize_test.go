package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	updated := time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		record   Record
		expected Note
	}{
		{
			name:     "empty record gets defaults",
			record:   Record{ID: "a"},
			expected: Note{ID: "a", CreatedAt: now, UpdatedAt: now},
		},
		{
			name: "complete record is kept",
			record: Record{
				ID:        "b",
				Title:     stringPtr("Title"),
				Content:   stringPtr("Body"),
				CreatedAt: "2025-06-01T08:30:00Z",
				UpdatedAt: "2025-06-02T08:30:00Z",
			},
			expected: Note{ID: "b", Title: "Title", Content: "Body", CreatedAt: created, UpdatedAt: updated},
		},
		{
			name:     "missing updated_at falls back to created_at",
			record:   Record{ID: "c", CreatedAt: "2025-06-01T08:30:00Z"},
			expected: Note{ID: "c", CreatedAt: created, UpdatedAt: created},
		},
		{
			name:     "updated_at before created_at is clamped",
			record:   Record{ID: "d", CreatedAt: "2025-06-02T08:30:00Z", UpdatedAt: "2025-06-01T08:30:00Z"},
			expected: Note{ID: "d", CreatedAt: updated, UpdatedAt: updated},
		},
		{
			name:     "postgres timestamptz text form",
			record:   Record{ID: "e", CreatedAt: "2025-06-01 10:30:00+02", UpdatedAt: "2025-06-02 08:30:00.000+00:00"},
			expected: Note{ID: "e", CreatedAt: created, UpdatedAt: updated},
		},
		{
			name:     "timestamp without zone is read as UTC",
			record:   Record{ID: "f", CreatedAt: "2025-06-01T08:30:00", UpdatedAt: "2025-06-02 08:30:00"},
			expected: Note{ID: "f", CreatedAt: created, UpdatedAt: updated},
		},
		{
			name:     "garbage timestamps get defaults",
			record:   Record{ID: "g", Title: stringPtr(""), CreatedAt: "yesterday", UpdatedAt: "soon"},
			expected: Note{ID: "g", CreatedAt: now, UpdatedAt: now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.record, now)
			require.Equal(t, tt.expected.ID, got.ID)
			require.Equal(t, tt.expected.Title, got.Title)
			require.Equal(t, tt.expected.Content, got.Content)
			require.True(t, tt.expected.CreatedAt.Equal(got.CreatedAt), "created_at: expected %v, got %v", tt.expected.CreatedAt, got.CreatedAt)
			require.True(t, tt.expected.UpdatedAt.Equal(got.UpdatedAt), "updated_at: expected %v, got %v", tt.expected.UpdatedAt, got.UpdatedAt)
		})
	}
}

func TestNormalize_RecordRoundTrip(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 123_000_000, time.UTC)
	note := Note{ID: "x", Title: "t", Content: "c", CreatedAt: now, UpdatedAt: now.Add(time.Hour)}

	require.Equal(t, note, normalize(note.Record(), time.Time{}))
}

func TestFilterNotes_KeepsOrder(t *testing.T) {
	notes := []Note{
		{ID: "1", Title: "Alpha", Content: "shared"},
		{ID: "2", Title: "Beta", Content: "other"},
		{ID: "3", Title: "Gamma", Content: "SHARED too"},
	}

	filtered := filterNotes(notes, "Shared")
	require.Len(t, filtered, 2)
	require.Equal(t, "1", filtered[0].ID)
	require.Equal(t, "3", filtered[1].ID)

	require.Equal(t, notes, filterNotes(notes, ""))
}
