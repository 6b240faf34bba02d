// Package peers tracks recently seen client addresses so the server can tell
// a returning client from a brand new one.
package peers

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultTTL = 10 * time.Minute

// Cache is a TTL'd record of peer addresses and when they were last connected.
type Cache struct {
	cacheInstance *gocache.Cache
}

func NewCache() *Cache {
	return &Cache{cacheInstance: gocache.New(defaultTTL, time.Minute)}
}

// MarkSeen records that the peer was connected as of now.
func (c *Cache) MarkSeen(addr string) {
	c.cacheInstance.Set(addr, time.Now(), gocache.DefaultExpiration)
}

// LastSeen returns when the peer last connected and whether it has been seen
// within the cache TTL at all.
func (c *Cache) LastSeen(addr string) (time.Time, bool) {
	v, found := c.cacheInstance.Get(addr)
	if !found {
		return time.Time{}, false
	}
	return v.(time.Time), true
}
