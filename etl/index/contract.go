// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package index

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/cache"
	"blockwatch.cc/csapi/etl/model"
	"blockwatch.cc/csapi/ledger"
)

// ContractIndex maps contract addresses to their deploy (origin) and most
// recent state transactions and lists contracts per deployer in deploy
// order. It is extended incrementally from the last seen chain head and
// never shrinks.
//
// Refresh calls are serialized. Readers share a read lock that is only
// taken exclusively while a completed scan is merged.
type ContractIndex struct {
	ledger ledger.Accessor
	cache  *cache.ContractCache

	refreshMu sync.Mutex
	mu        sync.RWMutex

	origin     map[chain.Address]chain.TxID
	state      map[chain.Address]chain.TxID
	deployed   map[chain.Address]*deployList
	checkpoint chain.BlockHash

	nPasses int64
	nBlocks int64
}

// deployList keeps a deployer's contracts oldest first. cursor marks
// where the last merge started inserting.
type deployList struct {
	addrs  []chain.Address
	cursor int
}

// insert places a at the cursor. Inserting a pass in newest-first order
// at a fixed cursor yields chronological order.
func (l *deployList) insert(a chain.Address) {
	l.addrs = append(l.addrs, chain.ZeroAddress)
	copy(l.addrs[l.cursor+1:], l.addrs[l.cursor:])
	l.addrs[l.cursor] = a
}

type ContractIndexStats struct {
	Contracts  int             `json:"contracts"`
	States     int             `json:"states"`
	Deployers  int             `json:"deployers"`
	Checkpoint chain.BlockHash `json:"checkpoint"`
	Passes     int64           `json:"passes"`
	Blocks     int64           `json:"blocks_scanned"`
}

func NewContractIndex(l ledger.Accessor, c *cache.ContractCache) *ContractIndex {
	return &ContractIndex{
		ledger:   l,
		cache:    c,
		origin:   make(map[chain.Address]chain.TxID),
		state:    make(map[chain.Address]chain.TxID),
		deployed: make(map[chain.Address]*deployList),
	}
}

// scanDelta collects the result of one refresh pass before it is merged.
type scanDelta struct {
	origin   map[chain.Address]chain.TxID
	state    map[chain.Address]chain.TxID
	deployer map[chain.Address]chain.Address   // contract -> deployer
	pending  map[chain.Address][]chain.Address // deployer -> contracts, newest first
}

func newScanDelta() *scanDelta {
	return &scanDelta{
		origin:   make(map[chain.Address]chain.TxID),
		state:    make(map[chain.Address]chain.TxID),
		deployer: make(map[chain.Address]chain.Address),
		pending:  make(map[chain.Address][]chain.Address),
	}
}

func (d *scanDelta) addDeploy(deployer, contract chain.Address, id chain.TxID) {
	// an older deploy of the same address seen later in the pass wins
	if prev, ok := d.deployer[contract]; ok {
		list := d.pending[prev]
		for i, a := range list {
			if a == contract {
				d.pending[prev] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
	d.pending[deployer] = append(d.pending[deployer], contract)
	d.deployer[contract] = deployer
	d.origin[contract] = id
}

func (d *scanDelta) addState(contract chain.Address, id chain.TxID) {
	// newest state wins, the scan runs newest first
	if _, ok := d.state[contract]; !ok {
		d.state[contract] = id
	}
}

// Contract returns decoded metadata for tx using the shared cache.
func (idx *ContractIndex) Contract(tx *model.Transaction) (*model.SmartContract, error) {
	if idx.cache != nil {
		if sc, ok := idx.cache.Get(tx.ID); ok {
			return sc, nil
		}
	}
	sc, err := tx.SmartContract()
	if err != nil {
		return nil, err
	}
	if idx.cache != nil {
		idx.cache.Add(tx.ID, sc)
	}
	return sc, nil
}

// Refresh extends the index with all blocks appended since the last
// checkpoint. It is a no-op when the chain head has not moved. On error
// the index and its checkpoint stay untouched.
func (idx *ContractIndex) Refresh(ctx context.Context) error {
	idx.refreshMu.Lock()
	defer idx.refreshMu.Unlock()

	head, err := idx.ledger.LastHash(ctx)
	if err != nil {
		return fmt.Errorf("index: reading chain head: %w", err)
	}
	idx.mu.RLock()
	checkpoint := idx.checkpoint
	idx.mu.RUnlock()
	if head == checkpoint {
		return nil
	}

	delta := newScanDelta()
	var nBlocks int64
	for h := head; h.IsValid() && h != checkpoint; {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := idx.ledger.BlockByHash(ctx, h)
		if err != nil {
			return fmt.Errorf("index: loading block %s: %w", h, err)
		}
		for i := len(b.Transactions) - 1; i >= 0; i-- {
			tx := b.Transactions[i]
			sc, err := idx.Contract(tx)
			if err != nil {
				continue
			}
			if sc.IsDeploy() {
				idx.mu.RLock()
				_, known := idx.origin[sc.Address]
				idx.mu.RUnlock()
				if !known {
					delta.addDeploy(tx.Source, sc.Address, tx.ID)
				}
			} else {
				delta.addState(sc.Address, tx.ID)
			}
		}
		nBlocks++
		h = b.PrevHash
	}

	idx.merge(delta, head)
	atomic.AddInt64(&idx.nPasses, 1)
	atomic.AddInt64(&idx.nBlocks, nBlocks)
	log.Debugf("index: scanned %d blocks up to %s, %d new contracts, %d state updates",
		nBlocks, head.Short(), len(delta.origin), len(delta.state))
	return nil
}

func (idx *ContractIndex) merge(d *scanDelta, head chain.BlockHash) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for a, id := range d.origin {
		idx.origin[a] = id
	}
	for a, id := range d.state {
		idx.state[a] = id
	}
	for deployer, addrs := range d.pending {
		if len(addrs) == 0 {
			continue
		}
		list, ok := idx.deployed[deployer]
		if !ok {
			list = &deployList{}
			idx.deployed[deployer] = list
		}
		list.cursor = len(list.addrs)
		for _, a := range addrs {
			list.insert(a)
		}
	}
	idx.checkpoint = head
}

// Origin returns the deploy transaction of a contract.
func (idx *ContractIndex) Origin(addr chain.Address) (chain.TxID, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	id, ok := idx.origin[addr]
	return id, ok
}

// State returns the most recent state transaction of a contract.
func (idx *ContractIndex) State(addr chain.Address) (chain.TxID, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	id, ok := idx.state[addr]
	return id, ok
}

// DeployedBy returns a copy of the contracts deployed by an account,
// oldest first.
func (idx *ContractIndex) DeployedBy(deployer chain.Address) []chain.Address {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	list, ok := idx.deployed[deployer]
	if !ok {
		return nil
	}
	out := make([]chain.Address, len(list.addrs))
	copy(out, list.addrs)
	return out
}

func (idx *ContractIndex) Checkpoint() chain.BlockHash {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.checkpoint
}

func (idx *ContractIndex) Stats() ContractIndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return ContractIndexStats{
		Contracts:  len(idx.origin),
		States:     len(idx.state),
		Deployers:  len(idx.deployed),
		Checkpoint: idx.checkpoint,
		Passes:     atomic.LoadInt64(&idx.nPasses),
		Blocks:     atomic.LoadInt64(&idx.nBlocks),
	}
}
