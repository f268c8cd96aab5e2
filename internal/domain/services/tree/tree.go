package tree

import (
	"context"

	models "arbor/internal/domain/models/tree"
	"arbor/internal/httputil"
)

// TreeService is the tree engine: every structural mutation keeps the node
// store and closure index consistent inside one transaction. Tenant ids are
// supplied by the caller; the service performs no permission checks.
type TreeService interface {
	// CreateNode creates a node under a group parent (or a root when ParentID is nil)
	CreateNode(ctx context.Context, req *CreateNodeRequest) (*models.Node, error)

	// GetNode retrieves a node by ID
	GetNode(ctx context.Context, tenantID, nodeID string) (*models.Node, error)

	// UpdateNode updates descriptive fields (title, synopsis, slug, media kind)
	UpdateNode(ctx context.Context, tenantID, nodeID string, req *UpdateNodeRequest) (*models.Node, error)

	// DeleteNode deletes a node and its whole subtree, returning the number of nodes removed
	DeleteNode(ctx context.Context, tenantID, nodeID string) (int, error)

	// MoveNode re-parents a node, rebuilding closure rows for its subtree
	MoveNode(ctx context.Context, req *MoveNodeRequest) (*models.Node, error)

	// ReorderSiblings sets positions for children of one parent
	ReorderSiblings(ctx context.Context, req *ReorderSiblingsRequest) error

	// RenumberSiblings compacts sibling positions to 0..n-1, keeping their order
	RenumberSiblings(ctx context.Context, tenantID string, parentID *string) ([]models.Node, error)

	// GetSubtreeFlat lists a subtree ordered so parents precede children
	GetSubtreeFlat(ctx context.Context, tenantID, nodeID string) ([]models.SubtreeNode, error)

	// GetSubtreeNested returns the subtree as a nested structure
	GetSubtreeNested(ctx context.Context, tenantID, nodeID string) (*models.NestedNode, error)

	// ListRootsWithDescendantCounts lists project roots with their subtree sizes
	ListRootsWithDescendantCounts(ctx context.Context, tenantID string) ([]models.RootSummary, error)
}

// ProjectService exposes the node operations specialised to project roots.
// Addressing a non-root node through it is reported as not found.
type ProjectService interface {
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*models.Node, error)
	GetProject(ctx context.Context, tenantID, projectID string) (*models.Node, error)
	ListProjects(ctx context.Context, tenantID string) ([]models.RootSummary, error)
	UpdateProject(ctx context.Context, tenantID, projectID string, req *UpdateNodeRequest) (*models.Node, error)
	DeleteProject(ctx context.Context, tenantID, projectID string) (int, error)
	ReorderProjects(ctx context.Context, tenantID string, items []models.ReorderItem) error
}

// CreateNodeRequest represents a node creation request
type CreateNodeRequest struct {
	TenantID    string          `json:"-"`
	ParentID    *string         `json:"parent_id"` // nil = project root
	NodeType    models.NodeType `json:"node_type"`
	Title       string          `json:"title"`
	Synopsis    *string         `json:"synopsis,omitempty"`
	Slug        *string         `json:"slug,omitempty"`
	MediaKindID *string         `json:"media_kind_id,omitempty"`
	Position    *int64          `json:"position,omitempty"` // nil = append after last sibling
}

// UpdateNodeRequest represents a partial node update
type UpdateNodeRequest struct {
	Title       *string                 `json:"title,omitempty"`
	Synopsis    httputil.OptionalString `json:"synopsis"`
	Slug        httputil.OptionalString `json:"slug"`
	MediaKindID httputil.OptionalString `json:"media_kind_id"`
}

// MoveNodeRequest represents a move. ParentID must be present; JSON null
// moves the node out to become a project root.
type MoveNodeRequest struct {
	TenantID string                  `json:"-"`
	NodeID   string                  `json:"-"`
	ParentID httputil.OptionalString `json:"parent_id"`
	Position *int64                  `json:"position,omitempty"`
}

// ReorderSiblingsRequest assigns positions to children of ParentID (roots when nil)
type ReorderSiblingsRequest struct {
	TenantID string               `json:"-"`
	ParentID *string              `json:"-"`
	Items    []models.ReorderItem `json:"items"`
}

// CreateProjectRequest represents a project creation request
type CreateProjectRequest struct {
	TenantID string  `json:"-"`
	Title    string  `json:"title"`
	Synopsis *string `json:"synopsis,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	Position *int64  `json:"position,omitempty"`
}
