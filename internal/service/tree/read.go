package tree

import (
	"context"
	"errors"
	"time"

	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
)

// GetSubtreeFlat lists a subtree, serving repeated reads from the cache
// until the tenant's next mutation.
func (s *treeService) GetSubtreeFlat(ctx context.Context, tenantID, nodeID string) (rows []models.SubtreeNode, err error) {
	defer s.metrics.observe("get_subtree", time.Now(), &err)

	if err := validateIDs(tenantID, nodeID); err != nil {
		return nil, err
	}

	cached, gen, hit := s.cache.GetSubtree(ctx, tenantID, nodeID)
	s.metrics.observeCache(hit)
	if hit {
		return cached, nil
	}

	rows, err = s.reader.GetSubtreeFlat(ctx, tenantID, nodeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewTreeError(domain.CodeNodeNotFound, "node not found")
		}
		return nil, err
	}
	for i := range rows {
		if err := checkTenant(tenantID, &rows[i].Node); err != nil {
			return nil, err
		}
	}

	s.cache.SetSubtree(ctx, tenantID, nodeID, gen, rows)
	s.metrics.observeSubtree(len(rows))

	return rows, nil
}

// GetSubtreeNested returns the subtree with children attached to parents
func (s *treeService) GetSubtreeNested(ctx context.Context, tenantID, nodeID string) (*models.NestedNode, error) {
	rows, err := s.GetSubtreeFlat(ctx, tenantID, nodeID)
	if err != nil {
		return nil, err
	}
	return models.BuildNested(rows), nil
}

// ListRootsWithDescendantCounts lists project roots with their subtree sizes
func (s *treeService) ListRootsWithDescendantCounts(ctx context.Context, tenantID string) (roots []models.RootSummary, err error) {
	defer s.metrics.observe("list_roots", time.Now(), &err)

	if err := validateIDs(tenantID); err != nil {
		return nil, err
	}

	roots, err = s.reader.ListRootsWithDescendantCounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range roots {
		if err := checkTenant(tenantID, &roots[i].Node); err != nil {
			return nil, err
		}
	}

	return roots, nil
}
