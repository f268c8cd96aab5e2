package tree

import (
	"testing"
	"time"

	models "arbor/internal/domain/models/tree"

	"github.com/stretchr/testify/assert"
)

func TestParentClause(t *testing.T) {
	parent := "4f0c7a3e-2b1d-4c55-9a6e-0d5b8f1e2a77"

	tests := []struct {
		name     string
		parentID *string
		next     int
		clause   string
		args     []any
	}{
		{
			name:     "roots",
			parentID: nil,
			next:     2,
			clause:   "parent_id IS NULL",
			args:     nil,
		},
		{
			name:     "children after one argument",
			parentID: &parent,
			next:     2,
			clause:   "parent_id = $2",
			args:     []any{parent},
		},
		{
			name:     "children after four arguments",
			parentID: &parent,
			next:     5,
			clause:   "parent_id = $5",
			args:     []any{parent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args := parentClause(tt.parentID, tt.next)
			assert.Equal(t, tt.clause, clause)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestUpdateAssignments(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	title := "Season 2"
	synopsis := "The second run"
	slug := "my-show"
	media := "video"

	tests := []struct {
		name string
		upd  *models.NodeUpdate
		sets []string
		args []any
	}{
		{
			name: "empty update only touches updated_at",
			upd:  &models.NodeUpdate{},
			sets: []string{"updated_at = $1"},
			args: []any{now},
		},
		{
			name: "title and synopsis",
			upd:  &models.NodeUpdate{Title: &title, Synopsis: &synopsis},
			sets: []string{"title = $1", "synopsis = $2", "updated_at = $3"},
			args: []any{title, synopsis, now},
		},
		{
			name: "clears write NULL",
			upd:  &models.NodeUpdate{ClearSynopsis: true, ClearSlug: true, ClearMedia: true},
			sets: []string{"synopsis = $1", "slug = $2", "media_kind_id = $3", "updated_at = $4"},
			args: []any{nil, nil, nil, now},
		},
		{
			name: "clear wins over a value",
			upd:  &models.NodeUpdate{Slug: &slug, ClearSlug: true},
			sets: []string{"slug = $1", "updated_at = $2"},
			args: []any{nil, now},
		},
		{
			name: "every field",
			upd:  &models.NodeUpdate{Title: &title, Synopsis: &synopsis, Slug: &slug, MediaKindID: &media},
			sets: []string{"title = $1", "synopsis = $2", "slug = $3", "media_kind_id = $4", "updated_at = $5"},
			args: []any{title, synopsis, slug, media, now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sets, args := updateAssignments(tt.upd, now)
			assert.Equal(t, tt.sets, sets)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestSplitRelations(t *testing.T) {
	ids, depths := splitRelations([]models.Relation{{ID: "a", Depth: 0}, {ID: "b", Depth: 2}})
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, []int32{0, 2}, depths)
}
