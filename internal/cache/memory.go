package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	models "arbor/internal/domain/models/tree"
)

type memoryEntry struct {
	rows    []models.SubtreeNode
	expires time.Time
}

// MemoryCache implements SubtreeCache in process memory
type MemoryCache struct {
	mu          sync.RWMutex
	ttl         time.Duration
	generations map[string]int64
	entries     map[string]memoryEntry
	now         func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:         ttl,
		generations: make(map[string]int64),
		entries:     make(map[string]memoryEntry),
		now:         time.Now,
	}
}

func memoryKey(tenantID string, gen int64, nodeID string) string {
	return fmt.Sprintf("%s:%d:%s", tenantID, gen, nodeID)
}

func (c *MemoryCache) GetSubtree(_ context.Context, tenantID, nodeID string) ([]models.SubtreeNode, int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gen := c.generations[tenantID]
	entry, ok := c.entries[memoryKey(tenantID, gen, nodeID)]
	if !ok || c.now().After(entry.expires) {
		return nil, gen, false
	}

	rows := make([]models.SubtreeNode, len(entry.rows))
	copy(rows, entry.rows)
	return rows, gen, true
}

func (c *MemoryCache) SetSubtree(_ context.Context, tenantID, nodeID string, gen int64, rows []models.SubtreeNode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generations[tenantID] {
		return
	}

	stored := make([]models.SubtreeNode, len(rows))
	copy(stored, rows)
	c.entries[memoryKey(tenantID, gen, nodeID)] = memoryEntry{
		rows:    stored,
		expires: c.now().Add(c.ttl),
	}
}

// InvalidateTenant bumps the generation and drops the tenant's entries,
// since nothing else would ever evict them from memory.
func (c *MemoryCache) InvalidateTenant(_ context.Context, tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := tenantID + ":"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.generations[tenantID]++
}
