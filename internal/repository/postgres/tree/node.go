package tree

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	"arbor/internal/domain/repositories"
	treeRepo "arbor/internal/domain/repositories/tree"
	"arbor/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const nodeColumns = `id, tenant_id, parent_id, node_type, title, synopsis, slug, position, media_kind_id, created_at, updated_at`

// PostgresNodeStore implements the NodeStore interface
type PostgresNodeStore struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewNodeStore creates a new node store
func NewNodeStore(config *postgres.RepositoryConfig) treeRepo.NodeStore {
	return &PostgresNodeStore{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Insert creates a new node row
func (r *PostgresNodeStore) Insert(ctx context.Context, node *models.Node) error {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	node.CreatedAt = now
	node.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Nodes, nodeColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		node.ID,
		node.TenantID,
		node.ParentID,
		string(node.NodeType),
		node.Title,
		node.Synopsis,
		node.Slug,
		node.Position,
		node.MediaKindID,
		node.CreatedAt,
		node.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.slugConflict(ctx, node.TenantID, node.Slug)
		}
		if postgres.IsPgForeignKeyError(err) {
			return domain.NewTreeError(domain.CodeParentNotFound, "parent not found")
		}
		return fmt.Errorf("insert node: %w", err)
	}

	return nil
}

// GetByID retrieves a node by ID
func (r *PostgresNodeStore) GetByID(ctx context.Context, tenantID, nodeID string) (*models.Node, error) {
	if _, err := uuid.Parse(nodeID); err != nil {
		return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND tenant_id = $2
	`, nodeColumns, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	node, err := scanNode(executor.QueryRow(ctx, query, nodeID, tenantID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get node: %w", err)
	}

	return node, nil
}

// GetRootBySlug retrieves a project root by slug
func (r *PostgresNodeStore) GetRootBySlug(ctx context.Context, tenantID, slug string) (*models.Node, error) {
	return r.rootBySlug(ctx, postgres.GetExecutor(ctx, r.pool), tenantID, slug)
}

func (r *PostgresNodeStore) rootBySlug(ctx context.Context, executor repositories.DBTX, tenantID, slug string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE tenant_id = $1 AND slug = $2 AND parent_id IS NULL
	`, nodeColumns, r.tables.Nodes)

	node, err := scanNode(executor.QueryRow(ctx, query, tenantID, slug))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("project %q: %w", slug, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project by slug: %w", err)
	}

	return node, nil
}

// Update applies a partial update in a single statement
func (r *PostgresNodeStore) Update(ctx context.Context, tenantID, nodeID string, upd *models.NodeUpdate) (*models.Node, error) {
	if _, err := uuid.Parse(nodeID); err != nil {
		return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
	}

	sets, args := updateAssignments(upd, time.Now().UTC())
	args = append(args, nodeID, tenantID)
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING %s
	`, r.tables.Nodes, strings.Join(sets, ", "), len(args)-1, len(args), nodeColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	node, err := scanNode(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
		}
		if postgres.IsPgDuplicateError(err) {
			return nil, r.slugConflict(ctx, tenantID, upd.Slug)
		}
		return nil, fmt.Errorf("update node: %w", err)
	}

	return node, nil
}

// SetParent re-points a node at a new parent and position
func (r *PostgresNodeStore) SetParent(ctx context.Context, tenantID, nodeID string, parentID *string, position int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, position = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5
	`, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, parentID, position, time.Now().UTC(), nodeID, tenantID)
	if err != nil {
		return fmt.Errorf("set node parent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
	}

	return nil
}

// SetPosition updates a sibling's position if it is a child of parentID
func (r *PostgresNodeStore) SetPosition(ctx context.Context, tenantID string, parentID *string, nodeID string, position int64) (bool, error) {
	if _, err := uuid.Parse(nodeID); err != nil {
		return false, nil
	}

	args := []any{position, time.Now().UTC(), nodeID, tenantID}
	clause, parentArgs := parentClause(parentID, len(args)+1)
	args = append(args, parentArgs...)

	query := fmt.Sprintf(`
		UPDATE %s
		SET position = $1, updated_at = $2
		WHERE id = $3 AND tenant_id = $4 AND %s
	`, r.tables.Nodes, clause)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("set node position: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// Delete removes nodes by id. Closure rows go with them via ON DELETE CASCADE.
func (r *PostgresNodeStore) Delete(ctx context.Context, tenantID string, nodeIDs []string) (int64, error) {
	if len(nodeIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE tenant_id = $1 AND id = ANY($2::text[]::uuid[])
	`, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, tenantID, nodeIDs)
	if err != nil {
		return 0, fmt.Errorf("delete nodes: %w", err)
	}

	return result.RowsAffected(), nil
}

// MaxPosition returns the largest position among children of parentID
func (r *PostgresNodeStore) MaxPosition(ctx context.Context, tenantID string, parentID *string) (int64, bool, error) {
	clause, parentArgs := parentClause(parentID, 2)
	query := fmt.Sprintf(`
		SELECT MAX(position)
		FROM %s
		WHERE tenant_id = $1 AND %s
	`, r.tables.Nodes, clause)

	var max *int64
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, append([]any{tenantID}, parentArgs...)...).Scan(&max); err != nil {
		return 0, false, fmt.Errorf("max sibling position: %w", err)
	}

	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

// ListChildren lists immediate children of parentID
func (r *PostgresNodeStore) ListChildren(ctx context.Context, tenantID string, parentID *string) ([]models.Node, error) {
	clause, parentArgs := parentClause(parentID, 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE tenant_id = $1 AND %s
		ORDER BY position ASC, created_at ASC
	`, nodeColumns, r.tables.Nodes, clause)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, append([]any{tenantID}, parentArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	nodes := []models.Node{}
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}

	return nodes, nil
}

// updateAssignments builds the SET list for a partial update. Placeholders
// are numbered from $1 in the order of the returned args; updated_at is
// always the last assignment.
func updateAssignments(upd *models.NodeUpdate, now time.Time) ([]string, []any) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.ClearSynopsis {
		set("synopsis", nil)
	} else if upd.Synopsis != nil {
		set("synopsis", *upd.Synopsis)
	}
	if upd.ClearSlug {
		set("slug", nil)
	} else if upd.Slug != nil {
		set("slug", *upd.Slug)
	}
	if upd.ClearMedia {
		set("media_kind_id", nil)
	} else if upd.MediaKindID != nil {
		set("media_kind_id", *upd.MediaKindID)
	}
	set("updated_at", now)

	return sets, args
}

// slugConflict builds a ConflictError pointing at the root holding slug.
// The failed statement has aborted any enclosing transaction, so the lookup
// goes straight to the pool.
func (r *PostgresNodeStore) slugConflict(ctx context.Context, tenantID string, slug *string) error {
	if slug == nil {
		return fmt.Errorf("node: %w", domain.ErrConflict)
	}

	conflict := &domain.ConflictError{
		Message:      fmt.Sprintf("a project with slug %q already exists", *slug),
		ResourceType: "project",
	}
	if existing, err := r.rootBySlug(ctx, r.pool, tenantID, *slug); err == nil {
		conflict.ResourceID = existing.ID
	}
	return conflict
}

// parentClause matches children of parentID, or roots when it is nil.
// next is the placeholder number to use for the parent argument.
func parentClause(parentID *string, next int) (string, []any) {
	if parentID == nil {
		return "parent_id IS NULL", nil
	}
	return fmt.Sprintf("parent_id = $%d", next), []any{*parentID}
}

func scanNode(row pgx.Row, extra ...any) (*models.Node, error) {
	var node models.Node
	var nodeType string
	dest := []any{
		&node.ID,
		&node.TenantID,
		&node.ParentID,
		&nodeType,
		&node.Title,
		&node.Synopsis,
		&node.Slug,
		&node.Position,
		&node.MediaKindID,
		&node.CreatedAt,
		&node.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	node.NodeType = models.NodeType(nodeType)
	return &node, nil
}
