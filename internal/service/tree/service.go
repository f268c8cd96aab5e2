package tree

import (
	"context"
	"errors"
	"log/slog"

	"arbor/internal/cache"
	"arbor/internal/config"
	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	"arbor/internal/domain/repositories"
	treeRepo "arbor/internal/domain/repositories/tree"
	treeSvc "arbor/internal/domain/services/tree"
)

// Dependencies bundles the storage ports the engine is built on
type Dependencies struct {
	Nodes     treeRepo.NodeStore
	Closure   treeRepo.ClosureIndex
	Reader    treeRepo.TreeReader
	TxManager repositories.TransactionManager
	Cache     cache.SubtreeCache // optional
	Metrics   *Metrics           // optional
	Logger    *slog.Logger
}

var _ treeSvc.TreeService = (*treeService)(nil)

type treeService struct {
	nodes     treeRepo.NodeStore
	closure   treeRepo.ClosureIndex
	reader    treeRepo.TreeReader
	txManager repositories.TransactionManager
	cache     cache.SubtreeCache
	metrics   *Metrics
	logger    *slog.Logger
}

func newTreeService(deps Dependencies) *treeService {
	subtreeCache := deps.Cache
	if subtreeCache == nil {
		subtreeCache = cache.Noop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &treeService{
		nodes:     deps.Nodes,
		closure:   deps.Closure,
		reader:    deps.Reader,
		txManager: deps.TxManager,
		cache:     subtreeCache,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

// nodeGuard rejects a loaded node before an operation touches it
type nodeGuard func(*models.Node) error

func anyNode(*models.Node) error { return nil }

func requireRoot(n *models.Node) error {
	if !n.IsRoot() {
		return domain.NewTreeError(domain.CodeNodeNotFound, "project not found")
	}
	return nil
}

// loadNode fetches a node and maps a miss onto code.
func (s *treeService) loadNode(ctx context.Context, tenantID, nodeID string, code domain.Code, what string) (*models.Node, error) {
	node, err := s.nodes.GetByID(ctx, tenantID, nodeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewTreeError(code, what+" not found")
		}
		return nil, err
	}
	if err := checkTenant(tenantID, node); err != nil {
		return nil, err
	}
	return node, nil
}

// checkTenant verifies every loaded row belongs to the caller's tenant.
// Stores already filter by tenant, so a mismatch means a store returned a
// foreign row.
func checkTenant(tenantID string, nodes ...*models.Node) error {
	for _, n := range nodes {
		if n.TenantID != tenantID {
			return domain.NewTreeError(domain.CodeCrossTenant, "node belongs to a different tenant")
		}
	}
	return nil
}

// resolvePosition appends after the last sibling unless a position was given.
// When the last sibling already sits at or past MaxPosition the siblings are
// renumbered in the caller's transaction and the node goes to the end.
func (s *treeService) resolvePosition(ctx context.Context, tenantID string, parentID *string, requested *int64) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	max, ok, err := s.nodes.MaxPosition(ctx, tenantID, parentID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if max < config.MaxPosition {
		return max + 1, nil
	}

	children, err := s.renumber(ctx, tenantID, parentID)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("sibling positions exhausted, renumbered before append",
		"tenant_id", tenantID,
		"parent_id", parentID,
		"count", len(children),
	)
	return int64(len(children)), nil
}

func (s *treeService) invalidate(ctx context.Context, tenantID string) {
	s.cache.InvalidateTenant(ctx, tenantID)
}
