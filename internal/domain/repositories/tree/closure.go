package tree

import (
	"context"

	models "arbor/internal/domain/models/tree"
)

// ClosureIndex maintains the (ancestor, descendant, depth) relation.
// Callers keep it consistent with NodeStore inside one transaction.
type ClosureIndex interface {
	// InsertReflexive adds (id, id, 0) for each id
	InsertReflexive(ctx context.Context, tenantID string, nodeIDs ...string) error

	// InsertAncestorsOf copies every ancestor row of parentID (including the
	// parent's own reflexive row) for nodeID with depth + 1
	InsertAncestorsOf(ctx context.Context, tenantID, parentID, nodeID string) error

	// InsertPaths inserts one row per (ancestor, descendant) pair with
	// depth = ancestor.Depth + descendant.Depth + 1
	InsertPaths(ctx context.Context, tenantID string, ancestors, descendants []models.Relation) error

	// DescendantsOf returns (descendant, depth) for every row whose ancestor
	// is nodeID, ordered by depth. Depth 0 is the node itself.
	DescendantsOf(ctx context.Context, tenantID, nodeID string) ([]models.Relation, error)

	// AncestorsOf returns (ancestor, depth) for every row whose descendant is
	// nodeID, ordered by depth. Depth 0 is the node itself.
	AncestorsOf(ctx context.Context, tenantID, nodeID string) ([]models.Relation, error)

	// IsAncestor reports whether a row (ancestorID, descendantID, depth > 0) exists
	IsAncestor(ctx context.Context, tenantID, ancestorID, descendantID string) (bool, error)

	// DetachSubtree deletes rows whose descendant is in nodeIDs and whose
	// ancestor is not, cutting the subtree loose from its external ancestors
	// while keeping intra-subtree rows
	DetachSubtree(ctx context.Context, tenantID string, nodeIDs []string) (int64, error)

	// DeleteForDescendants deletes every row whose descendant is in nodeIDs
	DeleteForDescendants(ctx context.Context, tenantID string, nodeIDs []string) (int64, error)
}

// TreeReader serves the read-side queries that join nodes with the closure index.
type TreeReader interface {
	// GetSubtreeFlat lists the subtree rooted at nodeID ordered by depth,
	// parent_id (nulls first), position, created_at
	GetSubtreeFlat(ctx context.Context, tenantID, nodeID string) ([]models.SubtreeNode, error)

	// ListRootsWithDescendantCounts lists project roots ordered by position,
	// created_at, each with the number of nodes below it (excluding itself)
	ListRootsWithDescendantCounts(ctx context.Context, tenantID string) ([]models.RootSummary, error)
}
