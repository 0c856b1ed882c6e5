package imaging

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// Open decodes an image file without caching it. Screen captures change on
// every frame and go through Open; condition images go through ConditionCache.
//
// Supported formats are the ones registered with the imaging library (PNG,
// JPEG, GIF, BMP, TIFF). JPEG EXIF orientation is applied.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return img, nil
}

// CacheStats counts how ConditionCache lookups were served.
type CacheStats struct {
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Reloads int `json:"reloads"`
}

type cachedCondition struct {
	img     image.Image
	modTime time.Time
	size    int64
}

// ConditionCache keeps decoded condition images keyed by path. A file that
// changed on disk since it was cached (different modification time or size)
// is decoded again on the next Load, so condition images can be edited while
// a session is running.
//
//	cache := imaging.NewConditionCache()
//	cond, err := cache.Load("/conditions/victory.png")
type ConditionCache struct {
	mu      sync.Mutex
	entries map[string]cachedCondition
	stats   CacheStats
}

// NewConditionCache returns an empty cache.
func NewConditionCache() *ConditionCache {
	return &ConditionCache{entries: make(map[string]cachedCondition)}
}

// Load returns the condition image at path, decoding it when it is not
// cached or is stale.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a supported image format
//
// A failed load evicts path, so a condition file that was deleted or
// overwritten with bad data is never served from an older decode.
func (c *ConditionCache) Load(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.Lock()
	e, ok := c.entries[path]
	if ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		c.stats.Hits++
		c.mu.Unlock()
		return e.img, nil
	}
	c.mu.Unlock()

	img, err := Open(path)
	if err != nil {
		c.Evict(path)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.stats.Reloads++
	} else {
		c.stats.Misses++
	}
	c.entries[path] = cachedCondition{img: img, modTime: info.ModTime(), size: info.Size()}
	return img, nil
}

// Len returns the number of cached conditions.
func (c *ConditionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a copy of the lookup counters.
func (c *ConditionCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Clear drops every cached condition and resets the counters.
func (c *ConditionCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cachedCondition)
	c.stats = CacheStats{}
	c.mu.Unlock()
}

// Evict drops one path. Unknown paths are ignored.
func (c *ConditionCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}
