// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package cache

import (
	"sync"
	"unsafe"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
)

// NOTE: append-only cache for converted pools
//
// - pools never change once committed, entries stay valid forever
// - there is no eviction, growth is bounded by the explored chain length
// - concurrent inserts for the same hash store equal values, last write wins
type PoolCache struct {
	sync.RWMutex
	m     map[chain.BlockHash]*model.Pool
	stats Stats
}

var poolSize = int64(unsafe.Sizeof(model.Pool{}))

func NewPoolCache() *PoolCache {
	return &PoolCache{
		m: make(map[chain.BlockHash]*model.Pool),
	}
}

func (c *PoolCache) Len() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.m)
}

func (c *PoolCache) Stats() Stats {
	s := c.stats.Get()
	s.Size = c.Len()
	s.Bytes = int64(s.Size) * poolSize
	return s
}

func (c *PoolCache) Get(h chain.BlockHash) (*model.Pool, bool) {
	c.RLock()
	p, ok := c.m[h]
	c.RUnlock()
	if ok {
		c.stats.CountHits(1)
	} else {
		c.stats.CountMisses(1)
	}
	return p, ok
}

func (c *PoolCache) Add(p *model.Pool) {
	c.Lock()
	c.m[p.Hash] = p
	c.Unlock()
	c.stats.CountInserts(1)
}

// Purge drops all entries. Callers only use it on operator request.
func (c *PoolCache) Purge() {
	c.Lock()
	n := len(c.m)
	c.m = make(map[chain.BlockHash]*model.Pool)
	c.Unlock()
	c.stats.CountEvictions(int64(n))
}
