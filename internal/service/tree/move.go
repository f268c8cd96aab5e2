package tree

import (
	"context"
	"time"

	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	treeSvc "arbor/internal/domain/services/tree"
)

// MoveNode re-parents a node. The subtree's closure rows are rebuilt from
// two reads, the subtree's descendants and the new parent's ancestors,
// without walking the subtree node by node.
//
// A null ParentID moves the node out to become a project root.
func (s *treeService) MoveNode(ctx context.Context, req *treeSvc.MoveNodeRequest) (node *models.Node, err error) {
	defer s.metrics.observe("move_node", time.Now(), &err)

	if err := validateMoveNode(req); err != nil {
		return nil, err
	}
	newParentID := req.ParentID.Value

	var subtreeSize int
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		current, err := s.loadNode(ctx, req.TenantID, req.NodeID, domain.CodeNodeNotFound, "node")
		if err != nil {
			return err
		}

		if newParentID != nil {
			if err := s.checkMoveTarget(ctx, current, *newParentID); err != nil {
				return err
			}
		}

		subtree, err := s.closure.DescendantsOf(ctx, req.TenantID, req.NodeID)
		if err != nil {
			return err
		}
		if len(subtree) == 0 {
			return domain.NewTreeError(domain.CodeNodeNotFound, "node not found")
		}
		subtreeSize = len(subtree)

		if _, err := s.closure.DetachSubtree(ctx, req.TenantID, models.RelationIDs(subtree)); err != nil {
			return err
		}

		// Slugs identify projects; a root that becomes a child gives its slug up.
		if current.IsRoot() && newParentID != nil && current.Slug != nil {
			if _, err := s.nodes.Update(ctx, req.TenantID, req.NodeID, &models.NodeUpdate{ClearSlug: true}); err != nil {
				return err
			}
		}

		position, err := s.resolvePosition(ctx, req.TenantID, newParentID, req.Position)
		if err != nil {
			return err
		}
		if err := s.nodes.SetParent(ctx, req.TenantID, req.NodeID, newParentID, position); err != nil {
			return err
		}

		if newParentID != nil {
			ancestors, err := s.closure.AncestorsOf(ctx, req.TenantID, *newParentID)
			if err != nil {
				return err
			}
			if err := s.closure.InsertPaths(ctx, req.TenantID, ancestors, subtree); err != nil {
				return err
			}
		}

		node, err = s.nodes.GetByID(ctx, req.TenantID, req.NodeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.TenantID)
	s.metrics.observeSubtree(subtreeSize)
	s.logger.Info("node moved",
		"id", node.ID,
		"tenant_id", req.TenantID,
		"parent_id", node.ParentID,
		"position", node.Position,
		"subtree_size", subtreeSize,
	)

	return node, nil
}

// checkMoveTarget loads the new parent and rejects a target inside the
// moving subtree or one that cannot hold children.
func (s *treeService) checkMoveTarget(ctx context.Context, current *models.Node, targetID string) error {
	target, err := s.loadNode(ctx, current.TenantID, targetID, domain.CodeTargetNotFound, "target")
	if err != nil {
		return err
	}

	if target.ID == current.ID {
		return domain.NewTreeError(domain.CodeCycleForbidden, "cannot move a node into itself")
	}
	inside, err := s.closure.IsAncestor(ctx, current.TenantID, current.ID, target.ID)
	if err != nil {
		return err
	}
	if inside {
		return domain.NewTreeError(domain.CodeCycleForbidden, "cannot move a node into its own subtree")
	}

	if !target.NodeType.CanHaveChildren() {
		return domain.NewTreeError(domain.CodeInvalidParent, "target is not a group")
	}

	return nil
}
