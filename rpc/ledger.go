// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
	"blockwatch.cc/csapi/ledger"
)

var _ ledger.Accessor = (*Client)(nil)

// notFound replaces a 404 reply with the ledger's not found error.
func notFound(err, with error) error {
	if ErrorStatus(err) == http.StatusNotFound {
		return with
	}
	return err
}

func (c *Client) LastHash(ctx context.Context) (chain.BlockHash, error) {
	var head struct {
		Hash chain.BlockHash `json:"hash"`
	}
	err := c.Get(ctx, "chain/head", &head)
	return head.Hash, err
}

func (c *Client) Size(ctx context.Context) (uint64, error) {
	var size struct {
		Size uint64 `json:"size"`
	}
	err := c.Get(ctx, "chain/size", &size)
	return size.Size, err
}

func (c *Client) BlockByHash(ctx context.Context, hash chain.BlockHash) (*model.Block, error) {
	if !hash.IsValid() {
		return nil, ledger.ErrNoBlock
	}
	b := &model.Block{}
	if err := c.Get(ctx, "blocks/"+hash.String(), b); err != nil {
		return nil, notFound(err, ledger.ErrNoBlock)
	}
	if b.Hash != hash {
		return nil, fmt.Errorf("rpc: block hash mismatch: want=%s have=%s", hash, b.Hash)
	}
	return b, nil
}

func (c *Client) Transaction(ctx context.Context, id chain.TxID) (*model.Transaction, error) {
	if !id.IsValid() {
		return nil, ledger.ErrNoTransaction
	}
	tx := &model.Transaction{}
	if err := c.Get(ctx, "transactions/"+id.String(), tx); err != nil {
		return nil, notFound(err, ledger.ErrNoTransaction)
	}
	return tx, nil
}

func (c *Client) Balance(ctx context.Context, addr chain.Address) (chain.Amount, error) {
	var bal struct {
		Balance chain.Amount `json:"balance"`
	}
	err := c.Get(ctx, "balances/"+addr.String(), &bal)
	return bal.Balance, err
}

func (c *Client) AddressFromKey(key []byte) (chain.Address, error) {
	return chain.AddressFromKey(key)
}

// SendTransaction posts tx to the node. The reply carries a status object
// whose non-zero code marks a rejected transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *model.Transaction) error {
	var reply json.RawMessage
	if err := c.Post(ctx, "transactions", tx, &reply); err != nil {
		return err
	}
	if len(reply) == 0 {
		return nil
	}
	if !gjson.ValidBytes(reply) {
		return errors.New("rpc: invalid submission reply")
	}
	status := gjson.GetBytes(reply, "status")
	if code := status.Get("code").Int(); code != 0 {
		return fmt.Errorf("%w: code=%d %s", ErrRejected, code, status.Get("message").String())
	}
	return nil
}
