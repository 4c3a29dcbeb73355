// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package etl

import (
	"context"
	"fmt"
	"time"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/cache"
	"blockwatch.cc/csapi/etl/index"
	"blockwatch.cc/csapi/etl/model"
	"blockwatch.cc/csapi/ledger"
)

type IndexerConfig struct {
	Ledger            ledger.Accessor
	ContractCacheSize int
}

// Indexer answers read queries over the ledger. It owns the smart contract
// index and the caches shared by all API requests.
type Indexer struct {
	ledger    ledger.Accessor
	pools     *cache.PoolCache
	contracts *cache.ContractCache
	index     *index.ContractIndex
	now       func() time.Time
}

func NewIndexer(cfg IndexerConfig) *Indexer {
	cc := cache.NewContractCache(cfg.ContractCacheSize)
	return &Indexer{
		ledger:    cfg.Ledger,
		pools:     cache.NewPoolCache(),
		contracts: cc,
		index:     index.NewContractIndex(cfg.Ledger, cc),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Init builds the contract index up to the current chain head.
func (m *Indexer) Init(ctx context.Context) error {
	start := time.Now()
	if err := m.Refresh(ctx); err != nil {
		return err
	}
	st := m.index.Stats()
	log.Infof("Indexed %d contracts from %d pools in %s.",
		st.Contracts, st.Blocks, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func (m *Indexer) Close() error {
	m.PurgeCaches()
	return nil
}

func (m *Indexer) Ledger() ledger.Accessor {
	return m.ledger
}

// Refresh extends the contract index to the current chain head.
func (m *Indexer) Refresh(ctx context.Context) error {
	return m.index.Refresh(ctx)
}

// Checkpoint returns the chain head the contract index was last built to.
func (m *Indexer) Checkpoint() chain.BlockHash {
	return m.index.Checkpoint()
}

func (m *Indexer) CacheStats() map[string]interface{} {
	stats := make(map[string]interface{})
	stats["pools"] = m.pools.Stats()
	stats["contracts"] = m.contracts.Stats()
	stats["index"] = m.index.Stats()
	return stats
}

// PurgeCaches drops converted pools and decoded contract metadata. The
// contract index itself is derived state and is kept.
func (m *Indexer) PurgeCaches() {
	m.pools.Purge()
	m.contracts.Purge()
}

// ParseAddress accepts the canonical hex form or a base58/base64 public
// key and returns the canonical address.
func (m *Indexer) ParseAddress(s string) (chain.Address, error) {
	if len(s) == 2*chain.AddressLength {
		a, err := chain.ParseAddress(s)
		if err != nil {
			return chain.ZeroAddress, fmt.Errorf("%w %q", ErrInvalidAddress, s)
		}
		return a, nil
	}
	key, err := chain.DecodeKey(s)
	if err != nil {
		return chain.ZeroAddress, fmt.Errorf("%w %q", ErrInvalidAddress, s)
	}
	a, err := m.ledger.AddressFromKey(key)
	if err != nil {
		return chain.ZeroAddress, fmt.Errorf("%w %q: %v", ErrInvalidAddress, s, err)
	}
	return a, nil
}

func (m *Indexer) Balance(ctx context.Context, addr chain.Address) (chain.Amount, error) {
	return m.ledger.Balance(ctx, addr)
}

// LookupTransaction loads a single transaction. Unknown ids return
// ledger.ErrNoTransaction.
func (m *Indexer) LookupTransaction(ctx context.Context, id chain.TxID) (*model.Transaction, error) {
	if !id.IsValid() {
		return nil, ledger.ErrNoTransaction
	}
	return m.ledger.Transaction(ctx, id)
}
