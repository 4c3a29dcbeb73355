// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"net/http"
	"time"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
	"blockwatch.cc/csapi/ledger"
	"blockwatch.cc/csapi/server"
)

type PoolListResponse struct {
	Status server.Status `json:"status"`
	Pools  []*model.Pool `json:"pools"`
	Count  uint64        `json:"count"`
}

// ListPools returns a window of pools, newest first. Count is the chain
// length.
func ListPools(ctx *server.Context) (interface{}, int) {
	req := parseListRequest(ctx)
	size, err := ctx.Indexer.Ledger().Size(ctx)
	if err != nil {
		ctx.Log.Errorf("pools: %v", err)
		return &PoolListResponse{Status: server.FailureFrom(err), Pools: []*model.Pool{}}, http.StatusOK
	}
	pools, err := ctx.Indexer.ListPools(ctx, req)
	if err != nil {
		ctx.Log.Errorf("pools: %v", err)
		return &PoolListResponse{Status: server.FailureFrom(err), Pools: []*model.Pool{}}, http.StatusOK
	}
	return &PoolListResponse{
		Status: server.Success(),
		Pools:  pools,
		Count:  size,
	}, http.StatusOK
}

var _ server.Resource = (*PoolResponse)(nil)

type PoolResponse struct {
	Status server.Status `json:"status"`
	Found  bool          `json:"found"`
	Pool   *model.Pool   `json:"pool,omitempty"`

	lastmod time.Time
}

func (r PoolResponse) LastModified() time.Time {
	return r.lastmod
}

func (r PoolResponse) Expires() time.Time {
	if r.Found {
		return time.Time{}
	}
	return r.lastmod
}

func parsePoolHash(ctx *server.Context) (chain.BlockHash, *server.Status) {
	h, err := chain.ParseBlockHash(urlVar(ctx, "hash"))
	if err != nil {
		st := server.FailureFrom(err)
		return h, &st
	}
	return h, nil
}

func GetPool(ctx *server.Context) (interface{}, int) {
	hash, fail := parsePoolHash(ctx)
	if fail != nil {
		return &PoolResponse{Status: *fail, lastmod: ctx.Now}, http.StatusOK
	}
	pool, err := ctx.Indexer.ConvertedPool(ctx, hash)
	switch {
	case err == nil:
		resp := &PoolResponse{
			Status:  server.Success(),
			Found:   true,
			Pool:    pool,
			lastmod: pool.Time,
		}
		if resp.lastmod.IsZero() {
			resp.lastmod = ctx.Now
		}
		return resp, http.StatusOK
	case ledger.IsNotFound(err):
		return &PoolResponse{Status: server.Success(), lastmod: ctx.Now}, http.StatusOK
	default:
		ctx.Log.Errorf("pool %s: %v", hash, err)
		return &PoolResponse{Status: server.FailureFrom(err), lastmod: ctx.Now}, http.StatusOK
	}
}

type PoolTransactionsResponse struct {
	Status       server.Status   `json:"status"`
	Pool         chain.BlockHash `json:"pool"`
	Transactions []*Transaction  `json:"transactions"`
}

// ListPoolTransactions returns a window of a pool's transactions. Unknown
// pools yield an empty list.
func ListPoolTransactions(ctx *server.Context) (interface{}, int) {
	hash, fail := parsePoolHash(ctx)
	if fail != nil {
		return &PoolTransactionsResponse{Status: *fail, Transactions: []*Transaction{}}, http.StatusOK
	}
	txs, err := ctx.Indexer.ListPoolTransactions(ctx, hash, parseListRequest(ctx))
	switch {
	case err == nil:
		return &PoolTransactionsResponse{
			Status:       server.Success(),
			Pool:         hash,
			Transactions: NewTransactionList(txs),
		}, http.StatusOK
	case ledger.IsNotFound(err):
		return &PoolTransactionsResponse{
			Status:       server.Success(),
			Pool:         hash,
			Transactions: []*Transaction{},
		}, http.StatusOK
	default:
		ctx.Log.Errorf("pool %s transactions: %v", hash, err)
		return &PoolTransactionsResponse{
			Status:       server.FailureFrom(err),
			Pool:         hash,
			Transactions: []*Transaction{},
		}, http.StatusOK
	}
}
