package tree

// ClosureEntry is one (ancestor, descendant, depth) row of the closure index.
// Depth 0 is the reflexive row of a node with itself.
type ClosureEntry struct {
	TenantID     string `json:"tenant_id" db:"tenant_id"`
	AncestorID   string `json:"ancestor_id" db:"ancestor_id"`
	DescendantID string `json:"descendant_id" db:"descendant_id"`
	Depth        int    `json:"depth" db:"depth"`
}

// Relation is one side of a closure row: the other node's id and the
// distance to it. DescendantsOf and AncestorsOf return these.
type Relation struct {
	ID    string `json:"id"`
	Depth int    `json:"depth"`
}

// RelationIDs extracts the ids from rels, preserving order.
func RelationIDs(rels []Relation) []string {
	ids := make([]string, len(rels))
	for i, r := range rels {
		ids[i] = r.ID
	}
	return ids
}

// SubtreeNode is a node in a flattened subtree listing, with its depth
// relative to the subtree root.
type SubtreeNode struct {
	Node
	Depth int `json:"depth"`
}

// RootSummary is a project root with the number of nodes below it.
type RootSummary struct {
	Node
	DescendantCount int `json:"descendant_count"`
}
