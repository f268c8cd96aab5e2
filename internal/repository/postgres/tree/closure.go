package tree

import (
	"context"
	"fmt"

	models "arbor/internal/domain/models/tree"
	treeRepo "arbor/internal/domain/repositories/tree"
	"arbor/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresClosureIndex implements the ClosureIndex interface
type PostgresClosureIndex struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewClosureIndex creates a new closure index
func NewClosureIndex(config *postgres.RepositoryConfig) treeRepo.ClosureIndex {
	return &PostgresClosureIndex{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresClosureIndex) InsertReflexive(ctx context.Context, tenantID string, nodeIDs ...string) error {
	if len(nodeIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, ancestor_id, descendant_id, depth)
		SELECT $1::text, id, id, 0
		FROM unnest($2::text[]::uuid[]) AS id
	`, r.tables.Closure)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, tenantID, nodeIDs); err != nil {
		return fmt.Errorf("insert reflexive closure rows: %w", err)
	}

	return nil
}

func (r *PostgresClosureIndex) InsertAncestorsOf(ctx context.Context, tenantID, parentID, nodeID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, ancestor_id, descendant_id, depth)
		SELECT tenant_id, ancestor_id, $3::uuid, depth + 1
		FROM %s
		WHERE tenant_id = $1 AND descendant_id = $2
	`, r.tables.Closure, r.tables.Closure)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, tenantID, parentID, nodeID); err != nil {
		return fmt.Errorf("inherit ancestor rows: %w", err)
	}

	return nil
}

// InsertPaths writes the cross product of ancestors and descendants in one
// statement.
func (r *PostgresClosureIndex) InsertPaths(ctx context.Context, tenantID string, ancestors, descendants []models.Relation) error {
	if len(ancestors) == 0 || len(descendants) == 0 {
		return nil
	}

	ancestorIDs, ancestorDepths := splitRelations(ancestors)
	descendantIDs, descendantDepths := splitRelations(descendants)

	query := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, ancestor_id, descendant_id, depth)
		SELECT $1::text, a.id::uuid, d.id::uuid, a.depth + d.depth + 1
		FROM unnest($2::text[], $3::int[]) AS a(id, depth)
		CROSS JOIN unnest($4::text[], $5::int[]) AS d(id, depth)
	`, r.tables.Closure)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, tenantID, ancestorIDs, ancestorDepths, descendantIDs, descendantDepths)
	if err != nil {
		return fmt.Errorf("insert closure paths: %w", err)
	}

	return nil
}

func (r *PostgresClosureIndex) DescendantsOf(ctx context.Context, tenantID, nodeID string) ([]models.Relation, error) {
	query := fmt.Sprintf(`
		SELECT descendant_id, depth
		FROM %s
		WHERE tenant_id = $1 AND ancestor_id = $2
		ORDER BY depth ASC
	`, r.tables.Closure)

	return r.queryRelations(ctx, query, tenantID, nodeID)
}

func (r *PostgresClosureIndex) AncestorsOf(ctx context.Context, tenantID, nodeID string) ([]models.Relation, error) {
	query := fmt.Sprintf(`
		SELECT ancestor_id, depth
		FROM %s
		WHERE tenant_id = $1 AND descendant_id = $2
		ORDER BY depth ASC
	`, r.tables.Closure)

	return r.queryRelations(ctx, query, tenantID, nodeID)
}

func (r *PostgresClosureIndex) IsAncestor(ctx context.Context, tenantID, ancestorID, descendantID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE tenant_id = $1 AND ancestor_id = $2 AND descendant_id = $3 AND depth > 0
		)
	`, r.tables.Closure)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, tenantID, ancestorID, descendantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check ancestry: %w", err)
	}

	return exists, nil
}

func (r *PostgresClosureIndex) DetachSubtree(ctx context.Context, tenantID string, nodeIDs []string) (int64, error) {
	if len(nodeIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE tenant_id = $1
		  AND descendant_id = ANY($2::text[]::uuid[])
		  AND ancestor_id <> ALL($2::text[]::uuid[])
	`, r.tables.Closure)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, tenantID, nodeIDs)
	if err != nil {
		return 0, fmt.Errorf("detach subtree: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *PostgresClosureIndex) DeleteForDescendants(ctx context.Context, tenantID string, nodeIDs []string) (int64, error) {
	if len(nodeIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE tenant_id = $1 AND descendant_id = ANY($2::text[]::uuid[])
	`, r.tables.Closure)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, tenantID, nodeIDs)
	if err != nil {
		return 0, fmt.Errorf("delete closure rows: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *PostgresClosureIndex) queryRelations(ctx context.Context, query string, args ...any) ([]models.Relation, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query closure: %w", err)
	}
	defer rows.Close()

	rels := []models.Relation{}
	for rows.Next() {
		var rel models.Relation
		if err := rows.Scan(&rel.ID, &rel.Depth); err != nil {
			return nil, fmt.Errorf("scan closure row: %w", err)
		}
		rels = append(rels, rel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closure rows: %w", err)
	}

	return rels, nil
}

func splitRelations(rels []models.Relation) ([]string, []int32) {
	ids := make([]string, len(rels))
	depths := make([]int32, len(rels))
	for i, rel := range rels {
		ids[i] = rel.ID
		depths[i] = int32(rel.Depth)
	}
	return ids, depths
}
