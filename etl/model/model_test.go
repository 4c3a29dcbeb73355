// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockwatch.cc/csapi/chain"
)

func TestSmartContractField(t *testing.T) {
	sc := &SmartContract{
		Address:    chain.NewAddress([]byte{1, 2, 3}),
		SourceCode: "contract A {}",
		ByteCode:   []byte{0xca, 0xfe},
		Method:     "",
		Params:     []string{"1", "two"},
	}
	f, err := NewSmartField(sc)
	require.NoError(t, err)

	tx := &Transaction{}
	tx.SetUserField(0, f)
	require.True(t, tx.IsSmart())

	have, err := tx.SmartContract()
	require.NoError(t, err)
	assert.Equal(t, sc.Address, have.Address)
	assert.Equal(t, sc.ByteCode, have.ByteCode)
	assert.Equal(t, sc.Params, have.Params)
	assert.True(t, have.IsDeploy())
	assert.Equal(t, DefaultMethod, have.MethodOrDefault())
}

func TestNotSmart(t *testing.T) {
	tx := &Transaction{}
	assert.False(t, tx.IsSmart())

	tx.SetUserField(0, NewIntField(42))
	assert.False(t, tx.IsSmart())

	tx.SetUserField(0, NewStringField([]byte("hello world")))
	_, err := tx.SmartContract()
	assert.ErrorIs(t, err, ErrNoContract)

	var empty *SmartContract
	assert.True(t, empty.IsEmpty())
	assert.False(t, empty.IsDeploy())
}

func TestBlockTimestamp(t *testing.T) {
	now := time.UnixMilli(time.Now().UnixMilli()).UTC()
	b := &Block{Hash: chain.NewBlockHash([]byte{9}), Height: 3}
	assert.True(t, b.Timestamp().IsZero())

	b.SetTimestamp(now)
	b.Transactions = []*Transaction{{}, {}}
	p := NewPool(b)
	assert.Equal(t, now, p.Time)
	assert.Equal(t, 2, p.NTx)
	assert.Equal(t, uint64(3), p.Height)
	assert.True(t, b.IsGenesis())
}
