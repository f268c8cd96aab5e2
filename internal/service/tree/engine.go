package tree

import (
	"context"
	"fmt"
	"time"

	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	treeSvc "arbor/internal/domain/services/tree"
)

// CreateNode inserts a node and inherits its parent's ancestor rows
func (s *treeService) CreateNode(ctx context.Context, req *treeSvc.CreateNodeRequest) (node *models.Node, err error) {
	defer s.metrics.observe("create_node", time.Now(), &err)

	if err := validateCreateNode(req); err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if req.ParentID != nil {
			parent, err := s.loadNode(ctx, req.TenantID, *req.ParentID, domain.CodeParentNotFound, "parent")
			if err != nil {
				return err
			}
			if !parent.NodeType.CanHaveChildren() {
				return domain.NewTreeError(domain.CodeInvalidParent,
					fmt.Sprintf("parent is a %s node; only groups can have children", parent.NodeType))
			}
		}

		position, err := s.resolvePosition(ctx, req.TenantID, req.ParentID, req.Position)
		if err != nil {
			return err
		}

		node = &models.Node{
			TenantID:    req.TenantID,
			ParentID:    req.ParentID,
			NodeType:    req.NodeType,
			Title:       req.Title,
			Synopsis:    req.Synopsis,
			Slug:        req.Slug,
			Position:    position,
			MediaKindID: req.MediaKindID,
		}
		if err := s.nodes.Insert(ctx, node); err != nil {
			return err
		}

		if err := s.closure.InsertReflexive(ctx, req.TenantID, node.ID); err != nil {
			return err
		}
		if req.ParentID == nil {
			return nil
		}
		return s.closure.InsertAncestorsOf(ctx, req.TenantID, *req.ParentID, node.ID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.TenantID)
	s.logger.Info("node created",
		"id", node.ID,
		"tenant_id", node.TenantID,
		"parent_id", node.ParentID,
		"node_type", node.NodeType,
		"position", node.Position,
	)

	return node, nil
}

// GetNode retrieves a node by ID
func (s *treeService) GetNode(ctx context.Context, tenantID, nodeID string) (*models.Node, error) {
	if err := validateIDs(tenantID, nodeID); err != nil {
		return nil, err
	}
	return s.loadNode(ctx, tenantID, nodeID, domain.CodeNodeNotFound, "node")
}

// UpdateNode updates descriptive fields. Structure is never touched here.
func (s *treeService) UpdateNode(ctx context.Context, tenantID, nodeID string, req *treeSvc.UpdateNodeRequest) (*models.Node, error) {
	return s.updateNode(ctx, tenantID, nodeID, req, anyNode)
}

func (s *treeService) updateNode(ctx context.Context, tenantID, nodeID string, req *treeSvc.UpdateNodeRequest, guard nodeGuard) (node *models.Node, err error) {
	defer s.metrics.observe("update_node", time.Now(), &err)

	if err := validateIDs(tenantID, nodeID); err != nil {
		return nil, err
	}
	if err := validateUpdateNode(req); err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		current, err := s.loadNode(ctx, tenantID, nodeID, domain.CodeNodeNotFound, "node")
		if err != nil {
			return err
		}
		if err := guard(current); err != nil {
			return err
		}

		upd, err := buildUpdate(current, req)
		if err != nil {
			return err
		}

		node, err = s.nodes.Update(ctx, tenantID, nodeID, upd)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID)
	s.logger.Info("node updated",
		"id", node.ID,
		"tenant_id", tenantID,
	)

	return node, nil
}

// buildUpdate turns the request into a store update, enforcing which
// fields the node's kind may carry.
func buildUpdate(current *models.Node, req *treeSvc.UpdateNodeRequest) (*models.NodeUpdate, error) {
	upd := &models.NodeUpdate{Title: req.Title}

	if req.Synopsis.Present {
		upd.Synopsis = req.Synopsis.Value
		upd.ClearSynopsis = req.Synopsis.IsNull()
	}

	if req.Slug.Present {
		if req.Slug.Value != nil && !current.IsRoot() {
			return nil, fmt.Errorf("%w: slug: only project roots may have a slug", domain.ErrValidation)
		}
		upd.Slug = req.Slug.Value
		upd.ClearSlug = req.Slug.IsNull()
	}

	if req.MediaKindID.Present {
		if req.MediaKindID.Value != nil && !current.NodeType.CarriesMedia() {
			return nil, fmt.Errorf("%w: media_kind_id: only content nodes carry a media kind", domain.ErrValidation)
		}
		upd.MediaKindID = req.MediaKindID.Value
		upd.ClearMedia = req.MediaKindID.IsNull()
	}

	return upd, nil
}

// DeleteNode removes a node with its whole subtree
func (s *treeService) DeleteNode(ctx context.Context, tenantID, nodeID string) (int, error) {
	return s.deleteNode(ctx, tenantID, nodeID, anyNode)
}

func (s *treeService) deleteNode(ctx context.Context, tenantID, nodeID string, guard nodeGuard) (deleted int, err error) {
	defer s.metrics.observe("delete_node", time.Now(), &err)

	if err := validateIDs(tenantID, nodeID); err != nil {
		return 0, err
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		node, err := s.loadNode(ctx, tenantID, nodeID, domain.CodeNodeNotFound, "node")
		if err != nil {
			return err
		}
		if err := guard(node); err != nil {
			return err
		}

		subtree, err := s.closure.DescendantsOf(ctx, tenantID, nodeID)
		if err != nil {
			return err
		}
		if len(subtree) == 0 {
			return domain.NewTreeError(domain.CodeNodeNotFound, "node not found")
		}
		ids := models.RelationIDs(subtree)

		if _, err := s.closure.DeleteForDescendants(ctx, tenantID, ids); err != nil {
			return err
		}
		removed, err := s.nodes.Delete(ctx, tenantID, ids)
		if err != nil {
			return err
		}
		if removed != int64(len(ids)) {
			return fmt.Errorf("delete subtree %s: removed %d of %d nodes", nodeID, removed, len(ids))
		}

		deleted = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, tenantID)
	s.metrics.observeSubtree(deleted)
	s.logger.Info("node deleted",
		"id", nodeID,
		"tenant_id", tenantID,
		"nodes_removed", deleted,
	)

	return deleted, nil
}
