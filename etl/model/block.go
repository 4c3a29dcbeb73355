// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"strconv"
	"time"

	"blockwatch.cc/csapi/chain"
)

// Block is a pool as returned by the ledger. User field 0 carries the
// pool creation time as decimal unix milliseconds.
type Block struct {
	Hash         chain.BlockHash      `json:"hash"`
	PrevHash     chain.BlockHash      `json:"prev_hash"`
	Height       uint64               `json:"height"`
	Transactions []*Transaction       `json:"transactions"`
	UserFields   map[uint32]UserField `json:"user_fields,omitempty"`
}

func (b *Block) IsValid() bool {
	return b != nil && b.Hash.IsValid()
}

func (b *Block) IsGenesis() bool {
	return !b.PrevHash.IsValid()
}

func (b *Block) TxCount() int {
	return len(b.Transactions)
}

func (b *Block) Transaction(i int) *Transaction {
	if i < 0 || i >= len(b.Transactions) {
		return nil
	}
	return b.Transactions[i]
}

func (b *Block) SetTimestamp(t time.Time) {
	if b.UserFields == nil {
		b.UserFields = make(map[uint32]UserField)
	}
	b.UserFields[0] = NewStringField([]byte(strconv.FormatInt(t.UnixMilli(), 10)))
}

// Timestamp returns the embedded creation time, zero when absent or
// malformed.
func (b *Block) Timestamp() time.Time {
	f, ok := b.UserFields[0]
	if !ok || f.Type != UserFieldString {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(f.String(), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Pool is the query-facing form of a block.
type Pool struct {
	Hash     chain.BlockHash `json:"hash"`
	PrevHash chain.BlockHash `json:"prev_hash"`
	Height   uint64          `json:"pool_number"`
	Time     time.Time       `json:"time"`
	NTx      int             `json:"transactions_count"`
}

func NewPool(b *Block) *Pool {
	return &Pool{
		Hash:     b.Hash,
		PrevHash: b.PrevHash,
		Height:   b.Height,
		Time:     b.Timestamp(),
		NTx:      b.TxCount(),
	}
}
