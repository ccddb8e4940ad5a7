package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestLocalStore_Properties drives the local store with random operations and
// checks the listing against a simple model after every step.
func TestLocalStore_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clock := newFakeClock()
		s := New(NewLocalBackend(newMemBlobStore(), DefaultStorageKey, discardLogger()),
			WithLogger(discardLogger()),
			WithClock(clock.Now),
		)
		ctx := context.Background()

		model := map[string]Note{}
		var ids []string

		text := rapid.StringMatching(`[a-zA-Z ]{0,12}`)

		t.Repeat(map[string]func(*rapid.T){
			"create": func(t *rapid.T) {
				clock.Advance(time.Duration(rapid.IntRange(0, 5000).Draw(t, "advance")) * time.Millisecond)
				n := s.Create(ctx, text.Draw(t, "title"), text.Draw(t, "content"))
				if _, exists := model[n.ID]; exists {
					t.Fatalf("duplicate id %s", n.ID)
				}
				model[n.ID] = n
				ids = append(ids, n.ID)
			},
			"update": func(t *rapid.T) {
				if len(ids) == 0 {
					t.Skip("no notes")
				}
				id := rapid.SampledFrom(ids).Draw(t, "id")
				clock.Advance(time.Duration(rapid.IntRange(0, 5000).Draw(t, "advance")) * time.Millisecond)
				updated := s.Update(ctx, id, text.Draw(t, "title"), text.Draw(t, "content"))
				if updated == nil {
					t.Fatalf("update of existing note %s returned nil", id)
				}
				if !updated.CreatedAt.Equal(model[id].CreatedAt) {
					t.Fatalf("created_at changed on update")
				}
				model[id] = *updated
			},
			"delete": func(t *rapid.T) {
				if len(ids) == 0 {
					t.Skip("no notes")
				}
				i := rapid.IntRange(0, len(ids)-1).Draw(t, "index")
				if !s.Delete(ctx, ids[i]) {
					t.Fatalf("delete of %s failed", ids[i])
				}
				delete(model, ids[i])
				ids = append(ids[:i], ids[i+1:]...)
			},
			"": func(t *rapid.T) {
				notes := s.List(ctx, "")
				if len(notes) != len(model) {
					t.Fatalf("listed %d notes, model has %d", len(notes), len(model))
				}
				for i, n := range notes {
					want, ok := model[n.ID]
					if !ok {
						t.Fatalf("listed unknown note %s", n.ID)
					}
					if n.Title != want.Title || n.Content != want.Content {
						t.Fatalf("note %s does not match model", n.ID)
					}
					if n.UpdatedAt.Before(n.CreatedAt) {
						t.Fatalf("note %s updated before it was created", n.ID)
					}
					if i > 0 && notes[i-1].UpdatedAt.Before(n.UpdatedAt) {
						t.Fatalf("notes not ordered by updated_at at index %d", i)
					}
				}

				query := strings.ToLower(text.Draw(t, "query"))
				for _, n := range s.List(ctx, query) {
					if !n.matchesQuery(strings.TrimSpace(query)) {
						t.Fatalf("note %s does not match query %q", n.ID, query)
					}
				}
			},
		})
	})
}
