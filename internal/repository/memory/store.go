// Package memory is an in-process implementation of the tree storage ports.
// It backs the engine tests and local runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	"arbor/internal/domain/repositories"
	treeRepo "arbor/internal/domain/repositories/tree"

	"github.com/google/uuid"
)

type closureKey struct {
	ancestor   string
	descendant string
}

type closureRow struct {
	tenantID string
	depth    int
}

type storedNode struct {
	node models.Node
	seq  uint64
}

type txMarker struct{}

// Store keeps nodes and closure rows in maps. A single mutex serialises
// units of work; ExecTx restores a snapshot when fn fails.
type Store struct {
	mu      sync.Mutex
	nodes   map[string]*storedNode
	closure map[closureKey]closureRow
	seq     uint64
	now     func() time.Time
}

var (
	_ treeRepo.NodeStore              = (*Store)(nil)
	_ treeRepo.ClosureIndex           = (*Store)(nil)
	_ treeRepo.TreeReader             = (*Store)(nil)
	_ repositories.TransactionManager = (*Store)(nil)
)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		nodes:   make(map[string]*storedNode),
		closure: make(map[closureKey]closureRow),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ExecTx runs fn with the store locked. Any error from fn, or a context
// cancelled before commit, rolls every write back.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, closure, seq := s.snapshot()
	err := fn(context.WithValue(ctx, txMarker{}, true))
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.nodes, s.closure, s.seq = nodes, closure, seq
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

// lock takes the mutex unless the caller already holds it through ExecTx.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) snapshot() (map[string]*storedNode, map[closureKey]closureRow, uint64) {
	nodes := make(map[string]*storedNode, len(s.nodes))
	for id, sn := range s.nodes {
		cp := *sn
		nodes[id] = &cp
	}
	closure := make(map[closureKey]closureRow, len(s.closure))
	for k, v := range s.closure {
		closure[k] = v
	}
	return nodes, closure, s.seq
}

func notFound(nodeID string) error {
	return fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
}

func (s *Store) get(tenantID, nodeID string) (*storedNode, bool) {
	sn, ok := s.nodes[nodeID]
	if !ok || sn.node.TenantID != tenantID {
		return nil, false
	}
	return sn, true
}

func (s *Store) slugTaken(tenantID, slug, exceptID string) (string, bool) {
	for id, sn := range s.nodes {
		n := &sn.node
		if id == exceptID || n.TenantID != tenantID || n.ParentID != nil || n.Slug == nil {
			continue
		}
		if *n.Slug == slug {
			return id, true
		}
	}
	return "", false
}

func slugConflict(slug, existingID string) error {
	return &domain.ConflictError{
		Message:      fmt.Sprintf("a project with slug %q already exists", slug),
		ResourceType: "project",
		ResourceID:   existingID,
	}
}

func copyNode(n models.Node) *models.Node {
	return &n
}

// ---- NodeStore ----

func (s *Store) Insert(ctx context.Context, node *models.Node) error {
	defer s.lock(ctx)()

	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	if _, exists := s.nodes[node.ID]; exists {
		return fmt.Errorf("node %s: %w", node.ID, domain.ErrConflict)
	}
	if node.ParentID == nil && node.Slug != nil {
		if existing, taken := s.slugTaken(node.TenantID, *node.Slug, ""); taken {
			return slugConflict(*node.Slug, existing)
		}
	}

	now := s.now()
	node.CreatedAt = now
	node.UpdatedAt = now

	s.seq++
	s.nodes[node.ID] = &storedNode{node: *node, seq: s.seq}
	return nil
}

func (s *Store) GetByID(ctx context.Context, tenantID, nodeID string) (*models.Node, error) {
	defer s.lock(ctx)()

	sn, ok := s.get(tenantID, nodeID)
	if !ok {
		return nil, notFound(nodeID)
	}
	return copyNode(sn.node), nil
}

func (s *Store) GetRootBySlug(ctx context.Context, tenantID, slug string) (*models.Node, error) {
	defer s.lock(ctx)()

	id, ok := s.slugTaken(tenantID, slug, "")
	if !ok {
		return nil, fmt.Errorf("project %q: %w", slug, domain.ErrNotFound)
	}
	return copyNode(s.nodes[id].node), nil
}

func (s *Store) Update(ctx context.Context, tenantID, nodeID string, upd *models.NodeUpdate) (*models.Node, error) {
	defer s.lock(ctx)()

	sn, ok := s.get(tenantID, nodeID)
	if !ok {
		return nil, notFound(nodeID)
	}

	updated := sn.node
	upd.Apply(&updated)
	if updated.ParentID == nil && updated.Slug != nil {
		if existing, taken := s.slugTaken(tenantID, *updated.Slug, nodeID); taken {
			return nil, slugConflict(*updated.Slug, existing)
		}
	}
	updated.UpdatedAt = s.now()

	sn.node = updated
	return copyNode(updated), nil
}

func (s *Store) SetParent(ctx context.Context, tenantID, nodeID string, parentID *string, position int64) error {
	defer s.lock(ctx)()

	sn, ok := s.get(tenantID, nodeID)
	if !ok {
		return notFound(nodeID)
	}
	if parentID != nil {
		if _, ok := s.get(tenantID, *parentID); !ok {
			return fmt.Errorf("parent %s: %w", *parentID, domain.ErrNotFound)
		}
	}

	sn.node.ParentID = parentID
	sn.node.Position = position
	sn.node.UpdatedAt = s.now()
	return nil
}

func (s *Store) SetPosition(ctx context.Context, tenantID string, parentID *string, nodeID string, position int64) (bool, error) {
	defer s.lock(ctx)()

	sn, ok := s.get(tenantID, nodeID)
	if !ok || !sameParent(sn.node.ParentID, parentID) {
		return false, nil
	}

	sn.node.Position = position
	sn.node.UpdatedAt = s.now()
	return true, nil
}

// Delete removes nodes and every closure row that references them, the way
// ON DELETE CASCADE does in PostgreSQL.
func (s *Store) Delete(ctx context.Context, tenantID string, nodeIDs []string) (int64, error) {
	defer s.lock(ctx)()

	var deleted int64
	removed := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		if _, ok := s.get(tenantID, id); !ok {
			continue
		}
		delete(s.nodes, id)
		removed[id] = true
		deleted++
	}

	for k := range s.closure {
		if removed[k.ancestor] || removed[k.descendant] {
			delete(s.closure, k)
		}
	}

	return deleted, nil
}

func (s *Store) MaxPosition(ctx context.Context, tenantID string, parentID *string) (int64, bool, error) {
	defer s.lock(ctx)()

	var max int64
	found := false
	for _, sn := range s.nodes {
		n := &sn.node
		if n.TenantID != tenantID || !sameParent(n.ParentID, parentID) {
			continue
		}
		if !found || n.Position > max {
			max = n.Position
			found = true
		}
	}
	return max, found, nil
}

func (s *Store) ListChildren(ctx context.Context, tenantID string, parentID *string) ([]models.Node, error) {
	defer s.lock(ctx)()

	var children []*storedNode
	for _, sn := range s.nodes {
		if sn.node.TenantID == tenantID && sameParent(sn.node.ParentID, parentID) {
			children = append(children, sn)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return siblingLess(children[i], children[j])
	})

	nodes := make([]models.Node, len(children))
	for i, sn := range children {
		nodes[i] = sn.node
	}
	return nodes, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func siblingLess(a, b *storedNode) bool {
	if a.node.Position != b.node.Position {
		return a.node.Position < b.node.Position
	}
	if !a.node.CreatedAt.Equal(b.node.CreatedAt) {
		return a.node.CreatedAt.Before(b.node.CreatedAt)
	}
	return a.seq < b.seq
}

// ---- ClosureIndex ----

func (s *Store) InsertReflexive(ctx context.Context, tenantID string, nodeIDs ...string) error {
	defer s.lock(ctx)()

	for _, id := range nodeIDs {
		if err := s.putRow(tenantID, id, id, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertAncestorsOf(ctx context.Context, tenantID, parentID, nodeID string) error {
	defer s.lock(ctx)()

	var inherited []closureKey
	var depths []int
	for k, row := range s.closure {
		if k.descendant == parentID && row.tenantID == tenantID {
			inherited = append(inherited, closureKey{ancestor: k.ancestor, descendant: nodeID})
			depths = append(depths, row.depth+1)
		}
	}
	for i, k := range inherited {
		if err := s.putRow(tenantID, k.ancestor, k.descendant, depths[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertPaths(ctx context.Context, tenantID string, ancestors, descendants []models.Relation) error {
	defer s.lock(ctx)()

	for _, a := range ancestors {
		for _, d := range descendants {
			if err := s.putRow(tenantID, a.ID, d.ID, a.Depth+d.Depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// putRow enforces the same constraints as the closure table schema.
func (s *Store) putRow(tenantID, ancestor, descendant string, depth int) error {
	if _, ok := s.get(tenantID, ancestor); !ok {
		return fmt.Errorf("closure ancestor %s: %w", ancestor, domain.ErrNotFound)
	}
	if _, ok := s.get(tenantID, descendant); !ok {
		return fmt.Errorf("closure descendant %s: %w", descendant, domain.ErrNotFound)
	}
	if (depth == 0) != (ancestor == descendant) {
		return fmt.Errorf("closure row (%s, %s) has invalid depth %d", ancestor, descendant, depth)
	}

	k := closureKey{ancestor: ancestor, descendant: descendant}
	if _, exists := s.closure[k]; exists {
		return fmt.Errorf("closure row (%s, %s): %w", ancestor, descendant, domain.ErrConflict)
	}
	s.closure[k] = closureRow{tenantID: tenantID, depth: depth}
	return nil
}

func (s *Store) DescendantsOf(ctx context.Context, tenantID, nodeID string) ([]models.Relation, error) {
	defer s.lock(ctx)()

	return s.relations(tenantID, func(k closureKey) (string, bool) {
		return k.descendant, k.ancestor == nodeID
	}), nil
}

func (s *Store) AncestorsOf(ctx context.Context, tenantID, nodeID string) ([]models.Relation, error) {
	defer s.lock(ctx)()

	return s.relations(tenantID, func(k closureKey) (string, bool) {
		return k.ancestor, k.descendant == nodeID
	}), nil
}

func (s *Store) relations(tenantID string, match func(closureKey) (string, bool)) []models.Relation {
	rels := []models.Relation{}
	for k, row := range s.closure {
		if row.tenantID != tenantID {
			continue
		}
		if id, ok := match(k); ok {
			rels = append(rels, models.Relation{ID: id, Depth: row.depth})
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Depth != rels[j].Depth {
			return rels[i].Depth < rels[j].Depth
		}
		return rels[i].ID < rels[j].ID
	})
	return rels
}

func (s *Store) IsAncestor(ctx context.Context, tenantID, ancestorID, descendantID string) (bool, error) {
	defer s.lock(ctx)()

	row, ok := s.closure[closureKey{ancestor: ancestorID, descendant: descendantID}]
	return ok && row.tenantID == tenantID && row.depth > 0, nil
}

func (s *Store) DetachSubtree(ctx context.Context, tenantID string, nodeIDs []string) (int64, error) {
	defer s.lock(ctx)()

	inSubtree := toSet(nodeIDs)
	var deleted int64
	for k, row := range s.closure {
		if row.tenantID == tenantID && inSubtree[k.descendant] && !inSubtree[k.ancestor] {
			delete(s.closure, k)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) DeleteForDescendants(ctx context.Context, tenantID string, nodeIDs []string) (int64, error) {
	defer s.lock(ctx)()

	targets := toSet(nodeIDs)
	var deleted int64
	for k, row := range s.closure {
		if row.tenantID == tenantID && targets[k.descendant] {
			delete(s.closure, k)
			deleted++
		}
	}
	return deleted, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// ---- TreeReader ----

func (s *Store) GetSubtreeFlat(ctx context.Context, tenantID, nodeID string) ([]models.SubtreeNode, error) {
	defer s.lock(ctx)()

	type entry struct {
		sn    *storedNode
		depth int
	}
	var entries []entry
	for k, row := range s.closure {
		if k.ancestor != nodeID || row.tenantID != tenantID {
			continue
		}
		if sn, ok := s.get(tenantID, k.descendant); ok {
			entries = append(entries, entry{sn: sn, depth: row.depth})
		}
	}
	if len(entries) == 0 {
		return nil, notFound(nodeID)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.depth != b.depth {
			return a.depth < b.depth
		}
		if pa, pb := a.sn.node.ParentID, b.sn.node.ParentID; !sameParent(pa, pb) {
			if pa == nil || pb == nil {
				return pa == nil
			}
			return *pa < *pb
		}
		return siblingLess(a.sn, b.sn)
	})

	subtree := make([]models.SubtreeNode, len(entries))
	for i, e := range entries {
		subtree[i] = models.SubtreeNode{Node: e.sn.node, Depth: e.depth}
	}
	return subtree, nil
}

func (s *Store) ListRootsWithDescendantCounts(ctx context.Context, tenantID string) ([]models.RootSummary, error) {
	defer s.lock(ctx)()

	var roots []*storedNode
	for _, sn := range s.nodes {
		if sn.node.TenantID == tenantID && sn.node.ParentID == nil {
			roots = append(roots, sn)
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		return siblingLess(roots[i], roots[j])
	})

	counts := make(map[string]int, len(roots))
	for k, row := range s.closure {
		if row.tenantID == tenantID && row.depth > 0 {
			counts[k.ancestor]++
		}
	}

	summaries := make([]models.RootSummary, len(roots))
	for i, sn := range roots {
		summaries[i] = models.RootSummary{Node: sn.node, DescendantCount: counts[sn.node.ID]}
	}
	return summaries, nil
}

// ---- inspection ----

// ClosureRows returns every closure row of a tenant ordered by ancestor,
// descendant. Tests use it to check the index against the node rows.
func (s *Store) ClosureRows(tenantID string) []models.ClosureEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []models.ClosureEntry{}
	for k, row := range s.closure {
		if row.tenantID != tenantID {
			continue
		}
		rows = append(rows, models.ClosureEntry{
			TenantID:     row.tenantID,
			AncestorID:   k.ancestor,
			DescendantID: k.descendant,
			Depth:        row.depth,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AncestorID != rows[j].AncestorID {
			return rows[i].AncestorID < rows[j].AncestorID
		}
		return rows[i].DescendantID < rows[j].DescendantID
	})
	return rows
}

// NodeCount returns how many nodes a tenant has.
func (s *Store) NodeCount(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, sn := range s.nodes {
		if sn.node.TenantID == tenantID {
			count++
		}
	}
	return count
}
