package tree

import (
	"context"
	"fmt"
	"time"

	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	treeSvc "arbor/internal/domain/services/tree"
)

// ReorderSiblings assigns positions to children of one parent. The batch is
// all or nothing: an item that is not a child of the parent in this tenant
// fails the whole batch and no position changes.
func (s *treeService) ReorderSiblings(ctx context.Context, req *treeSvc.ReorderSiblingsRequest) (err error) {
	defer s.metrics.observe("reorder_siblings", time.Now(), &err)

	if err := validateReorder(req); err != nil {
		return err
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.checkSiblingParent(ctx, req.TenantID, req.ParentID); err != nil {
			return err
		}

		for _, item := range req.Items {
			matched, err := s.nodes.SetPosition(ctx, req.TenantID, req.ParentID, item.NodeID, item.Position)
			if err != nil {
				return err
			}
			if !matched {
				return domain.NewTreeError(domain.CodeNodeNotFound,
					fmt.Sprintf("node %s is not a child of the given parent", item.NodeID))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, req.TenantID)
	s.logger.Info("siblings reordered",
		"tenant_id", req.TenantID,
		"parent_id", req.ParentID,
		"count", len(req.Items),
	)

	return nil
}

// RenumberSiblings rewrites sibling positions to 0..n-1 in their current
// order, closing the gaps left by deletes, moves and sparse reorders.
func (s *treeService) RenumberSiblings(ctx context.Context, tenantID string, parentID *string) (children []models.Node, err error) {
	defer s.metrics.observe("renumber_siblings", time.Now(), &err)

	if err := validateIDs(tenantID); err != nil {
		return nil, err
	}
	if parentID != nil {
		if err := validateIDs(*parentID); err != nil {
			return nil, err
		}
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.checkSiblingParent(ctx, tenantID, parentID); err != nil {
			return err
		}

		children, err = s.renumber(ctx, tenantID, parentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID)
	s.logger.Info("siblings renumbered",
		"tenant_id", tenantID,
		"parent_id", parentID,
		"count", len(children),
	)

	return children, nil
}

// renumber rewrites positions to 0..n-1 inside the current transaction.
func (s *treeService) renumber(ctx context.Context, tenantID string, parentID *string) ([]models.Node, error) {
	children, err := s.nodes.ListChildren(ctx, tenantID, parentID)
	if err != nil {
		return nil, err
	}

	for i := range children {
		position := int64(i)
		if children[i].Position == position {
			continue
		}
		if _, err := s.nodes.SetPosition(ctx, tenantID, parentID, children[i].ID, position); err != nil {
			return nil, err
		}
		children[i].Position = position
	}
	return children, nil
}

// checkSiblingParent verifies a non-nil parent exists in the tenant.
func (s *treeService) checkSiblingParent(ctx context.Context, tenantID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	_, err := s.loadNode(ctx, tenantID, *parentID, domain.CodeParentNotFound, "parent")
	return err
}
