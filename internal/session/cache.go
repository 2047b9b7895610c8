package session

import (
	"os"
	"sync"
	"time"

	"github.com/hpungsan/thermap/internal/catalog"
	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/refdb"
)

// Cache shares loaded catalog sets between sessions. An entry is reloaded
// when either source file changes on disk.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	load    Loader
}

type cacheEntry struct {
	elemMod    time.Time
	speciesMod time.Time
	set        *catalog.Set
}

// NewCache creates an empty cache backed by Load.
func NewCache() *Cache {
	return NewCacheWithLoader(Load)
}

// NewCacheWithLoader creates an empty cache that fills misses with load.
func NewCacheWithLoader(load Loader) *Cache {
	return &Cache{entries: make(map[string]cacheEntry), load: load}
}

// Load returns the cached set for desc, loading it on a miss. It satisfies Loader.
func (c *Cache) Load(desc refdb.Descriptor) (*catalog.Set, error) {
	elemMod, err := modTime(desc.ElementPath)
	if err != nil {
		return nil, err
	}
	speciesMod, err := modTime(desc.SpeciesPath)
	if err != nil {
		return nil, err
	}
	key := desc.SpeciesPath + "|" + desc.ElementPath

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok && e.elemMod.Equal(elemMod) && e.speciesMod.Equal(speciesMod) {
		return e.set, nil
	}

	set, err := c.load(desc)
	if err != nil {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{elemMod: elemMod, speciesMod: speciesMod, set: set}
	c.mu.Unlock()
	return set, nil
}

// Len returns the number of cached sets.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, errors.NewIO(path, err)
	}
	return info.ModTime(), nil
}
