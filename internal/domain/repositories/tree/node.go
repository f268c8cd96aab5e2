package tree

import (
	"context"

	models "arbor/internal/domain/models/tree"
)

// NodeStore defines data access operations for tree nodes. Every method is
// scoped by tenant: a node that exists under another tenant is reported as
// domain.ErrNotFound. NodeStore never touches the closure index.
type NodeStore interface {
	// Insert assigns the node an id (when empty) and timestamps, then stores it
	Insert(ctx context.Context, node *models.Node) error

	// GetByID retrieves a node by ID
	GetByID(ctx context.Context, tenantID, nodeID string) (*models.Node, error)

	// GetRootBySlug retrieves a project root by slug
	GetRootBySlug(ctx context.Context, tenantID, slug string) (*models.Node, error)

	// Update applies a partial update, bumps updated_at and returns the node
	Update(ctx context.Context, tenantID, nodeID string, upd *models.NodeUpdate) (*models.Node, error)

	// SetParent re-points a node at a new parent (nil = root) and position
	SetParent(ctx context.Context, tenantID, nodeID string, parentID *string, position int64) error

	// SetPosition changes a node's position only if it is a child of parentID
	// (a root when parentID is nil). Reports whether a row matched.
	SetPosition(ctx context.Context, tenantID string, parentID *string, nodeID string, position int64) (bool, error)

	// Delete removes the given nodes and returns how many rows were deleted
	Delete(ctx context.Context, tenantID string, nodeIDs []string) (int64, error)

	// MaxPosition returns the largest sibling position under parentID.
	// ok is false when parentID has no children.
	MaxPosition(ctx context.Context, tenantID string, parentID *string) (max int64, ok bool, err error)

	// ListChildren lists direct children ordered by position, created_at
	ListChildren(ctx context.Context, tenantID string, parentID *string) ([]models.Node, error)
}
