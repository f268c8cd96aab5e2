package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"arbor/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	poolMaxConns = 25
	poolMinConns = 5
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Nodes   string
	Closure string
	prefix  string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Nodes:   fmt.Sprintf("%stree_nodes", prefix),
		Closure: fmt.Sprintf("%stree_closure", prefix),
		prefix:  prefix,
	}
}

// Index returns a prefixed index name so environments sharing a database
// don't collide.
func (t *TableNames) Index(name string) string {
	return fmt.Sprintf("idx_%s%s", t.prefix, name)
}

// CreateConnectionPool creates a pgx pool and verifies connectivity.
//
// PgBouncer in transaction pooling mode (conventionally port 6543) does not
// support prepared statements. When that port is detected and the caller has
// not set default_query_exec_mode in the URL, the pool switches to
// QueryExecModeCacheDescribe, which uses the extended protocol without
// server-side prepared statements.
//
// Table names are interpolated with fmt.Sprintf before a statement reaches
// the server, so each prefix gets its own cached statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = poolMaxConns
	config.MinConns = poolMinConns

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in ctx, or the pool when there
// is none, so repositories join an enclosing ExecTx automatically.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
