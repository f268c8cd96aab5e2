package tree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	treeSvc "arbor/internal/domain/services/tree"
	"arbor/internal/httputil"
	"arbor/internal/repository/postgres"
	serviceTree "arbor/internal/service/tree"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// INTEGRATION TESTS - need a live PostgreSQL in DATABASE_URL
// ============================================================================

const pgTenant = "tenant-pg"

type pgEnv struct {
	pool     *pgxpool.Pool
	tables   *postgres.TableNames
	tree     treeSvc.TreeService
	projects treeSvc.ProjectService
}

type pgEdge struct{ ancestor, descendant string }

// newPgEnv wires the engine to the pgx stores over freshly created tables
// with a per-test prefix, dropped again when the test ends.
func newPgEnv(t *testing.T) *pgEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, dsn)
	require.NoError(t, err)

	prefix := "it_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + "_"
	tables := postgres.NewTableNames(prefix)
	require.NoError(t, postgres.EnsureSchema(ctx, pool, tables))
	t.Cleanup(func() {
		if err := postgres.DropSchema(context.Background(), pool, tables); err != nil {
			t.Logf("drop schema %s: %v", prefix, err)
		}
		pool.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
	tree, projects := serviceTree.NewServices(serviceTree.Dependencies{
		Nodes:     NewNodeStore(repoConfig),
		Closure:   NewClosureIndex(repoConfig),
		Reader:    NewTreeReader(repoConfig),
		TxManager: postgres.NewTransactionManager(pool, logger),
		Logger:    logger,
	})

	return &pgEnv{pool: pool, tables: tables, tree: tree, projects: projects}
}

func (e *pgEnv) create(t *testing.T, parent *models.Node, nodeType models.NodeType, title string) *models.Node {
	t.Helper()
	req := &treeSvc.CreateNodeRequest{TenantID: pgTenant, NodeType: nodeType, Title: title}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	node, err := e.tree.CreateNode(context.Background(), req)
	require.NoError(t, err)
	return node
}

func (e *pgEnv) move(nodeID string, parentID httputil.OptionalString) (*models.Node, error) {
	return e.tree.MoveNode(context.Background(), &treeSvc.MoveNodeRequest{
		TenantID: pgTenant,
		NodeID:   nodeID,
		ParentID: parentID,
	})
}

func (e *pgEnv) closure(t *testing.T) map[pgEdge]int {
	t.Helper()
	rows, err := e.pool.Query(context.Background(), fmt.Sprintf(`
		SELECT ancestor_id::text, descendant_id::text, depth
		FROM %s
		WHERE tenant_id = $1
	`, e.tables.Closure), pgTenant)
	require.NoError(t, err)
	defer rows.Close()

	closure := make(map[pgEdge]int)
	for rows.Next() {
		var ancestor, descendant string
		var depth int
		require.NoError(t, rows.Scan(&ancestor, &descendant, &depth))
		closure[pgEdge{ancestor, descendant}] = depth
	}
	require.NoError(t, rows.Err())
	return closure
}

func (e *pgEnv) nodeCount(t *testing.T) int {
	t.Helper()
	var count int
	err := e.pool.QueryRow(context.Background(),
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE tenant_id = $1`, e.tables.Nodes), pgTenant).Scan(&count)
	require.NoError(t, err)
	return count
}

func TestPostgres_ClosureScenarios(t *testing.T) {
	e := newPgEnv(t)

	r := e.create(t, nil, models.NodeTypeGroup, "R")
	assert.Equal(t, map[pgEdge]int{{r.ID, r.ID}: 0}, e.closure(t))

	c1 := e.create(t, r, models.NodeTypeGroup, "C1")
	assert.Equal(t, map[pgEdge]int{
		{r.ID, r.ID}:   0,
		{c1.ID, c1.ID}: 0,
		{r.ID, c1.ID}:  1,
	}, e.closure(t))

	c2 := e.create(t, c1, models.NodeTypeContent, "C2")
	afterCreate := map[pgEdge]int{
		{r.ID, r.ID}:   0,
		{c1.ID, c1.ID}: 0,
		{r.ID, c1.ID}:  1,
		{c2.ID, c2.ID}: 0,
		{c1.ID, c2.ID}: 1,
		{r.ID, c2.ID}:  2,
	}
	assert.Equal(t, afterCreate, e.closure(t))

	g := e.create(t, r, models.NodeTypeGroup, "G")
	moved, err := e.move(c1.ID, httputil.Some(g.ID))
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, g.ID, *moved.ParentID)

	afterMove := map[pgEdge]int{
		{r.ID, r.ID}:   0,
		{c1.ID, c1.ID}: 0,
		{c2.ID, c2.ID}: 0,
		{g.ID, g.ID}:   0,
		{r.ID, g.ID}:   1,
		{g.ID, c1.ID}:  1,
		{r.ID, c1.ID}:  2,
		{c1.ID, c2.ID}: 1,
		{g.ID, c2.ID}:  2,
		{r.ID, c2.ID}:  3,
	}
	assert.Equal(t, afterMove, e.closure(t))

	_, err = e.move(r.ID, httputil.Some(c2.ID))
	assert.Equal(t, domain.CodeCycleForbidden, domain.CodeOf(err))
	assert.Equal(t, afterMove, e.closure(t))

	// Moving back restores the rows the move replaced.
	_, err = e.move(c1.ID, httputil.Some(r.ID))
	require.NoError(t, err)
	afterCreate[pgEdge{g.ID, g.ID}] = 0
	afterCreate[pgEdge{r.ID, g.ID}] = 1
	assert.Equal(t, afterCreate, e.closure(t))
}

func TestPostgres_MoveToTopLevelAndSlugs(t *testing.T) {
	e := newPgEnv(t)
	ctx := context.Background()

	show, err := e.projects.CreateProject(ctx, &treeSvc.CreateProjectRequest{
		TenantID: pgTenant,
		Title:    "Show",
		Slug:     strPtr("show"),
	})
	require.NoError(t, err)
	season := e.create(t, show, models.NodeTypeGroup, "Season")
	episode := e.create(t, season, models.NodeTypeContent, "Episode")

	promoted, err := e.move(season.ID, httputil.Null())
	require.NoError(t, err)
	assert.True(t, promoted.IsRoot())
	assert.Nil(t, promoted.Slug)
	assert.Equal(t, map[pgEdge]int{
		{show.ID, show.ID}:       0,
		{season.ID, season.ID}:   0,
		{episode.ID, episode.ID}: 0,
		{season.ID, episode.ID}:  1,
	}, e.closure(t))

	demoted, err := e.move(show.ID, httputil.Some(season.ID))
	require.NoError(t, err)
	assert.Nil(t, demoted.Slug, "a root moved under a parent gives up its slug")

	// The slug is free again.
	_, err = e.projects.CreateProject(ctx, &treeSvc.CreateProjectRequest{
		TenantID: pgTenant,
		Title:    "Reboot",
		Slug:     strPtr("show"),
	})
	require.NoError(t, err)
}

func TestPostgres_SlugConflictNamesExistingProject(t *testing.T) {
	e := newPgEnv(t)
	ctx := context.Background()

	first, err := e.projects.CreateProject(ctx, &treeSvc.CreateProjectRequest{
		TenantID: pgTenant,
		Title:    "First",
		Slug:     strPtr("taken"),
	})
	require.NoError(t, err)

	_, err = e.projects.CreateProject(ctx, &treeSvc.CreateProjectRequest{
		TenantID: pgTenant,
		Title:    "Second",
		Slug:     strPtr("taken"),
	})
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, first.ID, conflict.ResourceID)

	other, err := e.projects.CreateProject(ctx, &treeSvc.CreateProjectRequest{TenantID: pgTenant, Title: "Other"})
	require.NoError(t, err)
	_, err = e.projects.UpdateProject(ctx, pgTenant, other.ID, &treeSvc.UpdateNodeRequest{Slug: httputil.Some("taken")})
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, first.ID, conflict.ResourceID)

	got, err := e.projects.GetProject(ctx, pgTenant, other.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Slug)
}

func TestPostgres_UpdateNode(t *testing.T) {
	e := newPgEnv(t)
	ctx := context.Background()

	root := e.create(t, nil, models.NodeTypeGroup, "root")
	clip, err := e.tree.CreateNode(ctx, &treeSvc.CreateNodeRequest{
		TenantID:    pgTenant,
		ParentID:    &root.ID,
		NodeType:    models.NodeTypeContent,
		Title:       "clip",
		Synopsis:    strPtr("short"),
		MediaKindID: strPtr("video"),
	})
	require.NoError(t, err)

	updated, err := e.tree.UpdateNode(ctx, pgTenant, clip.ID, &treeSvc.UpdateNodeRequest{
		Title:       strPtr("clip (cut)"),
		Synopsis:    httputil.Null(),
		MediaKindID: httputil.Some("audio"),
	})
	require.NoError(t, err)
	assert.Equal(t, "clip (cut)", updated.Title)
	assert.Nil(t, updated.Synopsis)
	require.NotNil(t, updated.MediaKindID)
	assert.Equal(t, "audio", *updated.MediaKindID)

	_, err = e.tree.UpdateNode(ctx, "someone-else", clip.ID, &treeSvc.UpdateNodeRequest{Title: strPtr("x")})
	assert.Equal(t, domain.CodeNodeNotFound, domain.CodeOf(err))
}

func TestPostgres_DeleteCascades(t *testing.T) {
	e := newPgEnv(t)
	ctx := context.Background()

	r := e.create(t, nil, models.NodeTypeGroup, "R")
	keep := e.create(t, nil, models.NodeTypeGroup, "keep")
	c1 := e.create(t, r, models.NodeTypeGroup, "C1")
	e.create(t, c1, models.NodeTypeContent, "C2")
	e.create(t, c1, models.NodeTypeBonusContent, "extra")

	deleted, err := e.tree.DeleteNode(ctx, pgTenant, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Equal(t, map[pgEdge]int{
		{r.ID, r.ID}:       0,
		{keep.ID, keep.ID}: 0,
	}, e.closure(t))

	deleted, err = e.tree.DeleteNode(ctx, pgTenant, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, e.nodeCount(t))

	_, err = e.tree.DeleteNode(ctx, pgTenant, r.ID)
	assert.Equal(t, domain.CodeNodeNotFound, domain.CodeOf(err))
}

func TestPostgres_ReadsAndOrdering(t *testing.T) {
	e := newPgEnv(t)
	ctx := context.Background()

	root := e.create(t, nil, models.NodeTypeGroup, "root")
	s1 := e.create(t, root, models.NodeTypeGroup, "s1")
	s2 := e.create(t, root, models.NodeTypeGroup, "s2")
	e.create(t, s2, models.NodeTypeContent, "s2e1")
	e.create(t, s1, models.NodeTypeContent, "s1e1")
	e.create(t, s1, models.NodeTypeContent, "s1e2")
	e.create(t, nil, models.NodeTypeGroup, "empty")

	rows, err := e.tree.GetSubtreeFlat(ctx, pgTenant, root.ID)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	seen := map[string]bool{}
	for i, row := range rows {
		if i == 0 {
			assert.Equal(t, root.ID, row.ID)
			assert.Equal(t, 0, row.Depth)
		} else {
			require.NotNil(t, row.ParentID)
			assert.True(t, seen[*row.ParentID], "parent of %s listed after it", row.Title)
			assert.GreaterOrEqual(t, row.Depth, rows[i-1].Depth)
		}
		seen[row.ID] = true
	}

	nested, err := e.tree.GetSubtreeNested(ctx, pgTenant, root.ID)
	require.NoError(t, err)
	require.Len(t, nested.Children, 2)
	assert.Equal(t, "s1", nested.Children[0].Title)
	require.Len(t, nested.Children[0].Children, 2)
	assert.Equal(t, "s1e1", nested.Children[0].Children[0].Title)

	roots, err := e.tree.ListRootsWithDescendantCounts(ctx, pgTenant)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "root", roots[0].Title)
	assert.Equal(t, 5, roots[0].DescendantCount)
	assert.Equal(t, 0, roots[1].DescendantCount)

	_, err = e.tree.GetSubtreeFlat(ctx, "someone-else", root.ID)
	assert.Equal(t, domain.CodeNodeNotFound, domain.CodeOf(err))
	_, err = e.tree.GetSubtreeFlat(ctx, pgTenant, "not-a-uuid")
	assert.Equal(t, domain.CodeNodeNotFound, domain.CodeOf(err))
}

func TestPostgres_ReorderAndRenumber(t *testing.T) {
	e := newPgEnv(t)
	ctx := context.Background()

	root := e.create(t, nil, models.NodeTypeGroup, "root")
	a := e.create(t, root, models.NodeTypeContent, "a")
	b := e.create(t, root, models.NodeTypeContent, "b")
	c := e.create(t, root, models.NodeTypeContent, "c")
	outsider := e.create(t, nil, models.NodeTypeGroup, "outsider")

	err := e.tree.ReorderSiblings(ctx, &treeSvc.ReorderSiblingsRequest{
		TenantID: pgTenant,
		ParentID: &root.ID,
		Items: []models.ReorderItem{
			{NodeID: c.ID, Position: 10},
			{NodeID: a.ID, Position: 20},
			{NodeID: b.ID, Position: 30},
		},
	})
	require.NoError(t, err)

	err = e.tree.ReorderSiblings(ctx, &treeSvc.ReorderSiblingsRequest{
		TenantID: pgTenant,
		ParentID: &root.ID,
		Items: []models.ReorderItem{
			{NodeID: a.ID, Position: 0},
			{NodeID: outsider.ID, Position: 1},
		},
	})
	assert.Equal(t, domain.CodeNodeNotFound, domain.CodeOf(err))

	renumbered, err := e.tree.RenumberSiblings(ctx, pgTenant, &root.ID)
	require.NoError(t, err)
	require.Len(t, renumbered, 3)
	titles := make([]string, len(renumbered))
	for i, n := range renumbered {
		titles[i] = n.Title
		assert.Equal(t, int64(i), n.Position)
	}
	assert.Equal(t, []string{"c", "a", "b"}, titles)

	roots, err := e.tree.RenumberSiblings(ctx, pgTenant, nil)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "root", roots[0].Title)
	assert.Equal(t, int64(1), roots[1].Position)
}

func strPtr(s string) *string { return &s }
