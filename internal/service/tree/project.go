package tree

import (
	"context"

	models "arbor/internal/domain/models/tree"
	treeSvc "arbor/internal/domain/services/tree"
)

// projectService specialises the engine to project roots
type projectService struct {
	tree *treeService
}

// NewServices builds the tree engine and the project service sharing one engine
func NewServices(deps Dependencies) (treeSvc.TreeService, treeSvc.ProjectService) {
	engine := newTreeService(deps)
	return engine, &projectService{tree: engine}
}

// CreateProject creates a group root
func (s *projectService) CreateProject(ctx context.Context, req *treeSvc.CreateProjectRequest) (*models.Node, error) {
	if err := validateCreateProject(req); err != nil {
		return nil, err
	}

	return s.tree.CreateNode(ctx, &treeSvc.CreateNodeRequest{
		TenantID: req.TenantID,
		NodeType: models.NodeTypeGroup,
		Title:    req.Title,
		Synopsis: req.Synopsis,
		Slug:     req.Slug,
		Position: req.Position,
	})
}

// GetProject retrieves a project root; a non-root id is not found
func (s *projectService) GetProject(ctx context.Context, tenantID, projectID string) (*models.Node, error) {
	node, err := s.tree.GetNode(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	if err := requireRoot(node); err != nil {
		return nil, err
	}
	return node, nil
}

// ListProjects lists project roots with their subtree sizes
func (s *projectService) ListProjects(ctx context.Context, tenantID string) ([]models.RootSummary, error) {
	return s.tree.ListRootsWithDescendantCounts(ctx, tenantID)
}

// UpdateProject updates a project root's descriptive fields
func (s *projectService) UpdateProject(ctx context.Context, tenantID, projectID string, req *treeSvc.UpdateNodeRequest) (*models.Node, error) {
	return s.tree.updateNode(ctx, tenantID, projectID, req, requireRoot)
}

// DeleteProject deletes a project root with its whole tree
func (s *projectService) DeleteProject(ctx context.Context, tenantID, projectID string) (int, error) {
	return s.tree.deleteNode(ctx, tenantID, projectID, requireRoot)
}

// ReorderProjects assigns positions among the tenant's project roots
func (s *projectService) ReorderProjects(ctx context.Context, tenantID string, items []models.ReorderItem) error {
	return s.tree.ReorderSiblings(ctx, &treeSvc.ReorderSiblingsRequest{
		TenantID: tenantID,
		Items:    items,
	})
}
