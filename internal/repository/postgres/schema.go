package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the node and closure tables and their indexes if they
// don't exist. Closure rows reference nodes with ON DELETE CASCADE, so a
// deleted node can never leave a dangling closure row.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			parent_id UUID REFERENCES %[1]s(id) ON DELETE CASCADE,
			node_type TEXT NOT NULL CHECK (node_type IN ('group', 'content', 'bonus_content')),
			title TEXT NOT NULL,
			synopsis TEXT,
			slug TEXT,
			position BIGINT NOT NULL DEFAULT 0,
			media_kind_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, tables.Nodes),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			tenant_id TEXT NOT NULL,
			ancestor_id UUID NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE,
			descendant_id UUID NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE,
			depth INTEGER NOT NULL CHECK (depth >= 0),
			PRIMARY KEY (ancestor_id, descendant_id),
			CHECK ((depth = 0) = (ancestor_id = descendant_id))
		)`, tables.Closure, tables.Nodes),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (tenant_id, parent_id, position)`,
			tables.Index("tree_nodes_siblings"), tables.Nodes),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (tenant_id, slug) WHERE parent_id IS NULL AND slug IS NOT NULL`,
			tables.Index("tree_nodes_root_slug"), tables.Nodes),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (descendant_id, depth)`,
			tables.Index("tree_closure_descendant"), tables.Closure),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (tenant_id, ancestor_id, depth)`,
			tables.Index("tree_closure_ancestor"), tables.Closure),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

// DropSchema drops the tree tables, closure first to respect foreign keys.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{tables.Closure, tables.Nodes} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
