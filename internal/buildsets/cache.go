package buildsets

import (
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/macdems/buildbot/internal/properties"
)

// Loader fetches the full property set of a buildset from the backend.
// A buildset with no rows yields an empty set, not an error.
type Loader func(buildsetID int64) (properties.Set, error)

// PropertiesCache is a bounded LRU cache of buildset id to property set.
// Concurrent Get calls for the same missing key share one underlying
// load; eviction only costs a reload.
type PropertiesCache struct {
	cache *lru.Cache
	group singleflight.Group
	load  Loader
}

// NewPropertiesCache creates a cache holding at most size entries.
func NewPropertiesCache(size int, load Loader) (*PropertiesCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("buildsets: properties cache: %w", err)
	}
	return &PropertiesCache{cache: cache, load: load}, nil
}

// Get returns the property set for a buildset, loading and caching it on
// a miss. A nonexistent buildset resolves to an empty set.
func (c *PropertiesCache) Get(buildsetID int64) (properties.Set, error) {
	if v, ok := c.cache.Get(buildsetID); ok {
		return v.(properties.Set), nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(buildsetID, 10), func() (interface{}, error) {
		// A concurrent loader may have filled the entry while this call
		// was waiting on the flight group.
		if v, ok := c.cache.Get(buildsetID); ok {
			return v, nil
		}
		set, err := c.load(buildsetID)
		if err != nil {
			return nil, err
		}
		c.cache.Add(buildsetID, set)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(properties.Set), nil
}

// Put seeds the cache directly, used at buildset creation so a freshly
// created buildset's properties are warm without a backend read.
func (c *PropertiesCache) Put(buildsetID int64, props properties.Set) {
	if props == nil {
		props = properties.Set{}
	}
	c.cache.Add(buildsetID, props)
}

// Len reports the number of cached entries.
func (c *PropertiesCache) Len() int { return c.cache.Len() }
