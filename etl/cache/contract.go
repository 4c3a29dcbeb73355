// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package cache

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
	lru "github.com/hashicorp/golang-lru/v2"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
)

var ContractMaxCacheSize = 16384 // entries

// ContractCache keeps decoded contract metadata per transaction so that
// repeated index reads do not deserialize the same user field twice.
type ContractCache struct {
	cache *lru.TwoQueueCache[uint64, *model.SmartContract] // key := xxhash64(block:index)
	stats Stats
}

func NewContractCache(sz int) *ContractCache {
	if sz <= 0 {
		sz = ContractMaxCacheSize
	}
	c := &ContractCache{}
	c.cache, _ = lru.New2Q[uint64, *model.SmartContract](sz)
	return c
}

func contractKey(id chain.TxID) uint64 {
	var buf [chain.HashLength + 4]byte
	copy(buf[:], id.Block[:])
	binary.BigEndian.PutUint32(buf[chain.HashLength:], id.Index)
	return xxhash.Sum64(buf[:])
}

func (c *ContractCache) Stats() Stats {
	s := c.stats.Get()
	s.Size = c.cache.Len()
	return s
}

func (c *ContractCache) Get(id chain.TxID) (*model.SmartContract, bool) {
	sc, ok := c.cache.Get(contractKey(id))
	if ok {
		c.stats.CountHits(1)
	} else {
		c.stats.CountMisses(1)
	}
	return sc, ok
}

func (c *ContractCache) Add(id chain.TxID, sc *model.SmartContract) {
	c.cache.Add(contractKey(id), sc)
	c.stats.CountInserts(1)
}

func (c *ContractCache) Purge() {
	c.stats.CountEvictions(int64(c.cache.Len()))
	c.cache.Purge()
}
