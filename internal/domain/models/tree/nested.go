package tree

import "time"

// NestedNode is a node with its children attached, as rendered by the dashboard.
type NestedNode struct {
	ID          string        `json:"id"`
	ParentID    *string       `json:"parent_id"`
	NodeType    NodeType      `json:"node_type"`
	Title       string        `json:"title"`
	Synopsis    *string       `json:"synopsis,omitempty"`
	Slug        *string       `json:"slug,omitempty"`
	Position    int64         `json:"position"`
	MediaKindID *string       `json:"media_kind_id,omitempty"`
	Depth       int           `json:"depth"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Children    []*NestedNode `json:"children"`
}

// BuildNested turns a flat subtree listing into a nested tree. The listing
// must be ordered so that a parent precedes its children (depth first);
// the first row is the subtree root. Returns nil for an empty listing.
func BuildNested(flat []SubtreeNode) *NestedNode {
	if len(flat) == 0 {
		return nil
	}

	byID := make(map[string]*NestedNode, len(flat))
	var root *NestedNode

	for i := range flat {
		row := &flat[i]
		n := &NestedNode{
			ID:          row.ID,
			ParentID:    row.ParentID,
			NodeType:    row.NodeType,
			Title:       row.Title,
			Synopsis:    row.Synopsis,
			Slug:        row.Slug,
			Position:    row.Position,
			MediaKindID: row.MediaKindID,
			Depth:       row.Depth,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
			Children:    []*NestedNode{},
		}
		byID[n.ID] = n

		if root == nil {
			root = n
			continue
		}
		if row.ParentID == nil {
			continue
		}
		if parent, ok := byID[*row.ParentID]; ok {
			parent.Children = append(parent.Children, n)
		}
	}

	return root
}
