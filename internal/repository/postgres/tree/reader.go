package tree

import (
	"context"
	"fmt"

	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	treeRepo "arbor/internal/domain/repositories/tree"
	"arbor/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTreeReader implements the TreeReader interface
type PostgresTreeReader struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewTreeReader creates a new tree reader
func NewTreeReader(config *postgres.RepositoryConfig) treeRepo.TreeReader {
	return &PostgresTreeReader{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// GetSubtreeFlat returns the subtree rooted at nodeID, the root first.
func (r *PostgresTreeReader) GetSubtreeFlat(ctx context.Context, tenantID, nodeID string) ([]models.SubtreeNode, error) {
	if _, err := uuid.Parse(nodeID); err != nil {
		return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		SELECT n.id, n.tenant_id, n.parent_id, n.node_type, n.title, n.synopsis, n.slug,
		       n.position, n.media_kind_id, n.created_at, n.updated_at, c.depth
		FROM %s c
		JOIN %s n ON n.id = c.descendant_id
		WHERE c.tenant_id = $1 AND c.ancestor_id = $2 AND n.tenant_id = $1
		ORDER BY c.depth ASC, n.parent_id ASC NULLS FIRST, n.position ASC, n.created_at ASC
	`, r.tables.Closure, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, tenantID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("query subtree: %w", err)
	}
	defer rows.Close()

	subtree := []models.SubtreeNode{}
	for rows.Next() {
		var item models.SubtreeNode
		node, err := scanNode(rows, &item.Depth)
		if err != nil {
			return nil, fmt.Errorf("scan subtree node: %w", err)
		}
		item.Node = *node
		subtree = append(subtree, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtree: %w", err)
	}

	if len(subtree) == 0 {
		return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
	}

	return subtree, nil
}

// ListRootsWithDescendantCounts lists the tenant's project roots.
func (r *PostgresTreeReader) ListRootsWithDescendantCounts(ctx context.Context, tenantID string) ([]models.RootSummary, error) {
	query := fmt.Sprintf(`
		SELECT n.id, n.tenant_id, n.parent_id, n.node_type, n.title, n.synopsis, n.slug,
		       n.position, n.media_kind_id, n.created_at, n.updated_at,
		       COUNT(c.descendant_id) FILTER (WHERE c.depth > 0)
		FROM %s n
		LEFT JOIN %s c ON c.ancestor_id = n.id AND c.tenant_id = n.tenant_id
		WHERE n.tenant_id = $1 AND n.parent_id IS NULL
		GROUP BY n.id
		ORDER BY n.position ASC, n.created_at ASC
	`, r.tables.Nodes, r.tables.Closure)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}
	defer rows.Close()

	roots := []models.RootSummary{}
	for rows.Next() {
		var summary models.RootSummary
		node, err := scanNode(rows, &summary.DescendantCount)
		if err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		summary.Node = *node
		roots = append(roots, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roots: %w", err)
	}

	return roots, nil
}
