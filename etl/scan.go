// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package etl

import (
	"context"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
	"blockwatch.cc/csapi/ledger"
)

// ListAccountTransactions walks the chain backward from the head and
// returns transactions touching addr, newest first. Offset and limit
// count matching transactions, not pools.
func (m *Indexer) ListAccountTransactions(ctx context.Context, addr chain.Address, r ListRequest) ([]*model.Transaction, error) {
	res := make([]*model.Transaction, 0, r.Limit)
	if r.Limit == 0 || !addr.IsValid() {
		return res, nil
	}
	head, err := m.ledger.LastHash(ctx)
	if err != nil {
		return nil, err
	}
	skip := r.Offset
	for h := head; h.IsValid(); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := m.ledger.BlockByHash(ctx, h)
		if err != nil {
			return nil, err
		}
		for i := len(b.Transactions) - 1; i >= 0; i-- {
			tx := b.Transactions[i]
			if !tx.Touches(addr) {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			res = append(res, tx)
			if uint(len(res)) == r.Limit {
				return res, nil
			}
		}
		h = b.PrevHash
	}
	return res, nil
}

// ListPools returns converted pools newest first. Offset and limit count
// pools.
func (m *Indexer) ListPools(ctx context.Context, r ListRequest) ([]*model.Pool, error) {
	res := make([]*model.Pool, 0, r.Limit)
	if r.Limit == 0 {
		return res, nil
	}
	head, err := m.ledger.LastHash(ctx)
	if err != nil {
		return nil, err
	}
	skip := r.Offset
	for h := head; h.IsValid() && uint(len(res)) < r.Limit; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := m.ConvertedPool(ctx, h)
		if err != nil {
			return nil, err
		}
		if skip > 0 {
			skip--
		} else {
			res = append(res, p)
		}
		h = p.PrevHash
	}
	return res, nil
}

// ConvertedPool returns the query form of a pool. Cached pools are served
// without touching the ledger.
func (m *Indexer) ConvertedPool(ctx context.Context, hash chain.BlockHash) (*model.Pool, error) {
	if p, ok := m.pools.Get(hash); ok {
		return p, nil
	}
	b, err := m.ledger.BlockByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	p := model.NewPool(b)
	m.pools.Add(p)
	return p, nil
}

// LookupPool loads the full pool including its transactions.
func (m *Indexer) LookupPool(ctx context.Context, hash chain.BlockHash) (*model.Block, error) {
	if !hash.IsValid() {
		return nil, ledger.ErrNoBlock
	}
	return m.ledger.BlockByHash(ctx, hash)
}

// ListPoolTransactions returns a window of a pool's transactions in pool
// order. An offset beyond the transaction count yields an empty list.
func (m *Indexer) ListPoolTransactions(ctx context.Context, hash chain.BlockHash, r ListRequest) ([]*model.Transaction, error) {
	b, err := m.LookupPool(ctx, hash)
	if err != nil {
		return nil, err
	}
	start, end := r.window(len(b.Transactions))
	res := make([]*model.Transaction, 0, end-start)
	return append(res, b.Transactions[start:end]...), nil
}
