// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package ledger defines the contract between the gateway and the block
// store and ships a local bbolt backed implementation.
package ledger

import (
	"context"
	"errors"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
)

var (
	// ErrNoBlock is returned when a block hash is unknown to the ledger.
	ErrNoBlock = errors.New("block not found")

	// ErrNoTransaction is returned when a transaction id does not
	// resolve to a stored transaction.
	ErrNoTransaction = errors.New("transaction not found")

	// ErrBadLink is returned when a block does not extend the current tip.
	ErrBadLink = errors.New("block does not extend chain tip")

	// ErrInsufficientBalance is returned when a transfer exceeds the
	// source balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrClosed is returned after the store has been closed.
	ErrClosed = errors.New("ledger closed")
)

// Accessor gives read access to blocks, transactions and balances.
// Unknown blocks and transactions are reported as ErrNoBlock and
// ErrNoTransaction, callers must check before use.
type Accessor interface {
	BlockByHash(ctx context.Context, hash chain.BlockHash) (*model.Block, error)
	LastHash(ctx context.Context) (chain.BlockHash, error)
	Size(ctx context.Context) (uint64, error)
	Transaction(ctx context.Context, id chain.TxID) (*model.Transaction, error)
	Balance(ctx context.Context, addr chain.Address) (chain.Amount, error)
	AddressFromKey(key []byte) (chain.Address, error)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoBlock) || errors.Is(err, ErrNoTransaction)
}
