// Package cache holds subtree listings between reads.
//
// Entries are keyed by a per-tenant generation. Every committed mutation
// bumps the tenant's generation, which orphans all of its entries at once;
// orphaned entries age out through their TTL.
package cache

import (
	"context"

	models "arbor/internal/domain/models/tree"
)

// SubtreeCache caches GetSubtreeFlat results per tenant. Implementations
// treat backend failures as misses; a broken cache never fails a read.
type SubtreeCache interface {
	// GetSubtree returns the cached listing and the generation it was read
	// under. On a miss, gen is still the current generation and should be
	// passed to SetSubtree together with the freshly loaded rows.
	GetSubtree(ctx context.Context, tenantID, nodeID string) (rows []models.SubtreeNode, gen int64, hit bool)

	// SetSubtree stores rows under gen. A listing loaded before a concurrent
	// mutation lands under the stale generation and is never served.
	SetSubtree(ctx context.Context, tenantID, nodeID string, gen int64, rows []models.SubtreeNode)

	// InvalidateTenant bumps the tenant generation
	InvalidateTenant(ctx context.Context, tenantID string)
}

// Noop never caches anything.
type Noop struct{}

func (Noop) GetSubtree(context.Context, string, string) ([]models.SubtreeNode, int64, bool) {
	return nil, 0, false
}

func (Noop) SetSubtree(context.Context, string, string, int64, []models.SubtreeNode) {}

func (Noop) InvalidateTenant(context.Context, string) {}
