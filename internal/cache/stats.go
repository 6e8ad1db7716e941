package cache

// Stats is a snapshot of cache occupancy and usage.
type Stats struct {
	// Keys is the number of distinct cache keys currently stored.
	Keys int `json:"keys"`
	// Entries is the total number of bag entries across all keys.
	Entries int `json:"entries"`
	// Hits is the total number of successful lookups since the last Clear.
	Hits int64 `json:"hits"`
	// HitRate normalizes hits against hits plus key count. Misses are not
	// tracked separately, so this is an approximation of reuse, not a true
	// hit/miss ratio.
	HitRate float64 `json:"hit_rate"`
}

// Stats reports cache occupancy and the approximate hit rate.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := 0
	for _, key := range c.keys.Keys() {
		if b, ok := c.keys.Peek(key); ok {
			entries += len(b.entries)
		}
	}

	s := Stats{
		Keys:    c.keys.Len(),
		Entries: entries,
		Hits:    c.hits,
	}
	if denom := float64(s.Hits) + float64(s.Keys); denom > 0 {
		s.HitRate = float64(s.Hits) / denom
	}
	return s
}
