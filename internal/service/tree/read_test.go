package tree

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"arbor/internal/cache"
	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	"arbor/internal/httputil"
	"arbor/internal/repository/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSubtreeFlat_Ordering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.create(t, tenantA, nil, models.NodeTypeGroup, "root")
	s1 := f.create(t, tenantA, root, models.NodeTypeGroup, "s1")
	s2 := f.create(t, tenantA, root, models.NodeTypeGroup, "s2")
	f.create(t, tenantA, s2, models.NodeTypeContent, "s2e1")
	f.create(t, tenantA, s1, models.NodeTypeContent, "s1e1")
	f.create(t, tenantA, s1, models.NodeTypeContent, "s1e2")

	rows, err := f.svc.GetSubtreeFlat(ctx, tenantA, root.ID)
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

	again, err := f.svc.GetSubtreeFlat(ctx, tenantA, root.ID)
	require.NoError(t, err)
	assert.Equal(t, rows, again)

	sub, err := f.svc.GetSubtreeFlat(ctx, tenantA, s1.ID)
	require.NoError(t, err)
	require.Len(t, sub, 3)
	assert.Equal(t, "s1", sub[0].Title)
	assert.Equal(t, "s1e1", sub[1].Title)
	assert.Equal(t, "s1e2", sub[2].Title)
	assert.Equal(t, 1, sub[2].Depth)
}

func TestGetSubtreeFlat_NotFound(t *testing.T) {
	f := newFixture(t)
	root := f.create(t, tenantA, nil, models.NodeTypeGroup, "root")

	_, err := f.svc.GetSubtreeFlat(context.Background(), tenantB, root.ID)
	assert.Equal(t, domain.CodeNodeNotFound, domain.CodeOf(err))

	_, err = f.svc.GetSubtreeFlat(context.Background(), tenantA, "")
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestGetSubtreeNested(t *testing.T) {
	f := newFixture(t)

	root := f.create(t, tenantA, nil, models.NodeTypeGroup, "root")
	season := f.create(t, tenantA, root, models.NodeTypeGroup, "season")
	f.create(t, tenantA, season, models.NodeTypeContent, "ep1")
	f.create(t, tenantA, season, models.NodeTypeContent, "ep2")
	f.create(t, tenantA, root, models.NodeTypeBonusContent, "trailer")

	tree, err := f.svc.GetSubtreeNested(context.Background(), tenantA, root.ID)
	require.NoError(t, err)

	assert.Equal(t, root.ID, tree.ID)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, "season", tree.Children[0].Title)
	assert.Equal(t, "trailer", tree.Children[1].Title)
	require.Len(t, tree.Children[0].Children, 2)
	assert.Equal(t, "ep1", tree.Children[0].Children[0].Title)
	assert.Equal(t, 2, tree.Children[0].Children[1].Depth)
	assert.Empty(t, tree.Children[1].Children)
}

func TestListRootsWithDescendantCounts(t *testing.T) {
	f := newFixture(t)

	big := f.create(t, tenantA, nil, models.NodeTypeGroup, "big")
	g := f.create(t, tenantA, big, models.NodeTypeGroup, "g")
	f.create(t, tenantA, g, models.NodeTypeContent, "c1")
	f.create(t, tenantA, g, models.NodeTypeContent, "c2")
	f.create(t, tenantA, nil, models.NodeTypeGroup, "empty")
	f.create(t, tenantB, nil, models.NodeTypeGroup, "not mine")

	roots, err := f.svc.ListRootsWithDescendantCounts(context.Background(), tenantA)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "big", roots[0].Title)
	assert.Equal(t, 3, roots[0].DescendantCount)
	assert.Equal(t, "empty", roots[1].Title)
	assert.Equal(t, 0, roots[1].DescendantCount)
}

func TestGetSubtreeFlat_Cache(t *testing.T) {
	store := memory.NewStore()
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := newTreeService(Dependencies{
		Nodes:     store,
		Closure:   store,
		Reader:    store,
		TxManager: store,
		Cache:     cache.NewMemoryCache(time.Minute),
		Metrics:   metrics,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f := &fixture{svc: svc, store: store, metrics: metrics}
	ctx := context.Background()

	root := f.create(t, tenantA, nil, models.NodeTypeGroup, "root")
	f.create(t, tenantA, root, models.NodeTypeContent, "first")

	first, err := svc.GetSubtreeFlat(ctx, tenantA, root.ID)
	require.NoError(t, err)
	second, err := svc.GetSubtreeFlat(ctx, tenantA, root.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))

	// A mutation in the tenant makes the next read go to the store.
	f.create(t, tenantA, root, models.NodeTypeContent, "second")
	third, err := svc.GetSubtreeFlat(ctx, tenantA, root.ID)
	require.NoError(t, err)
	assert.Len(t, third, 3)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))
}

func TestMetrics_RecordOutcomes(t *testing.T) {
	f := newFixture(t)

	root := f.create(t, tenantA, nil, models.NodeTypeGroup, "root")
	leaf := f.create(t, tenantA, root, models.NodeTypeContent, "leaf")

	_, err := f.move(root.ID, httputil.Some(leaf.ID), nil)
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues("create_node", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues("move_node", string(domain.CodeCycleForbidden))))
	assert.Equal(t, 2, testutil.CollectAndCount(f.metrics.duration))
}
