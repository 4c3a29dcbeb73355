// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/cache"
	"blockwatch.cc/csapi/etl/model"
	"blockwatch.cc/csapi/ledger"
)

func addr(b byte) chain.Address {
	var a chain.Address
	a[0] = b
	a[31] = 0x42
	return a
}

func smartTx(t *testing.T, src, contract chain.Address, sc model.SmartContract) *model.Transaction {
	t.Helper()
	sc.Address = contract
	f, err := model.NewSmartField(&sc)
	require.NoError(t, err)
	return &model.Transaction{
		Source:     src,
		Target:     contract,
		Amount:     chain.NominalAmount,
		Currency:   chain.DefaultCurrency,
		UserFields: map[uint32]model.UserField{0: f},
	}
}

func deployTx(t *testing.T, deployer, contract chain.Address) *model.Transaction {
	return smartTx(t, deployer, contract, model.SmartContract{ByteCode: []byte{0xca, 0xfe}})
}

func callTx(t *testing.T, caller, contract chain.Address, state string) *model.Transaction {
	return smartTx(t, caller, contract, model.SmartContract{Method: "run", ContractState: []byte(state)})
}

type testChain struct {
	*ledger.Store
	t *testing.T
}

func newTestChain(t *testing.T) *testChain {
	s, err := ledger.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return &testChain{Store: s, t: t}
}

func (c *testChain) append(txs ...*model.Transaction) *model.Block {
	ctx := context.Background()
	tip, err := c.LastHash(ctx)
	require.NoError(c.t, err)
	b, err := c.AppendBlock(ctx, &model.Block{PrevHash: tip, Transactions: txs})
	require.NoError(c.t, err)
	return b
}

// failingLedger breaks block loads on demand.
type failingLedger struct {
	ledger.Accessor
	fail bool
}

func (l *failingLedger) BlockByHash(ctx context.Context, h chain.BlockHash) (*model.Block, error) {
	if l.fail {
		return nil, errors.New("connection reset")
	}
	return l.Accessor.BlockByHash(ctx, h)
}

func TestContractIndexRefresh(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t)
	d1, x := addr(1), addr(2)
	ca, cb := addr(10), addr(11)

	b1 := c.append(deployTx(t, d1, ca))
	c.append(callTx(t, x, ca, "s1"), deployTx(t, d1, cb))
	b3 := c.append(callTx(t, x, ca, "s2"), callTx(t, x, ca, "s3"))
	// plain transfer is ignored
	c.append(&model.Transaction{Source: x, Target: ca, Amount: chain.Amount{Integral: 2}})

	idx := NewContractIndex(c, cache.NewContractCache(64))
	require.NoError(t, idx.Refresh(ctx))

	id, ok := idx.Origin(ca)
	require.True(t, ok)
	assert.Equal(t, chain.NewTxID(b1.Hash, 0), id)

	id, ok = idx.State(ca)
	require.True(t, ok)
	assert.Equal(t, chain.NewTxID(b3.Hash, 1), id)

	_, ok = idx.State(cb)
	assert.False(t, ok)
	assert.Equal(t, []chain.Address{ca, cb}, idx.DeployedBy(d1))
	assert.Nil(t, idx.DeployedBy(x))

	tip, err := c.LastHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, tip, idx.Checkpoint())

	// unchanged head is a no-op
	before := idx.Stats()
	require.NoError(t, idx.Refresh(ctx))
	assert.Equal(t, before, idx.Stats())
	assert.Equal(t, int64(1), before.Passes)
	assert.Equal(t, int64(4), before.Blocks)
}

func TestContractIndexIncremental(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t)
	d1, d2 := addr(1), addr(2)
	ca, cb, cc := addr(10), addr(11), addr(12)

	b1 := c.append(deployTx(t, d1, ca))
	idx := NewContractIndex(c, nil)
	require.NoError(t, idx.Refresh(ctx))
	cp := idx.Checkpoint()

	// redeploy of a known address by someone else does not change its origin
	c.append(deployTx(t, d1, cb), deployTx(t, d2, ca))
	c.append(deployTx(t, d1, cc))
	require.NoError(t, idx.Refresh(ctx))

	assert.NotEqual(t, cp, idx.Checkpoint())
	id, ok := idx.Origin(ca)
	require.True(t, ok)
	assert.Equal(t, chain.NewTxID(b1.Hash, 0), id)
	assert.Equal(t, []chain.Address{ca, cb, cc}, idx.DeployedBy(d1))
	assert.Nil(t, idx.DeployedBy(d2))
	assert.Equal(t, int64(3), idx.Stats().Blocks)
}

func TestContractIndexDuplicateDeployInPass(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t)
	d1, d2 := addr(1), addr(2)
	ca, cb := addr(10), addr(11)

	b1 := c.append(deployTx(t, d1, ca))
	c.append(deployTx(t, d1, cb), deployTx(t, d2, ca))

	idx := NewContractIndex(c, nil)
	require.NoError(t, idx.Refresh(ctx))

	id, ok := idx.Origin(ca)
	require.True(t, ok)
	assert.Equal(t, chain.NewTxID(b1.Hash, 0), id)
	assert.Equal(t, []chain.Address{ca, cb}, idx.DeployedBy(d1))
	assert.Empty(t, idx.DeployedBy(d2))
}

func TestContractIndexError(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t)
	c.append(deployTx(t, addr(1), addr(10)))

	l := &failingLedger{Accessor: c, fail: true}
	idx := NewContractIndex(l, nil)
	require.Error(t, idx.Refresh(ctx))
	assert.False(t, idx.Checkpoint().IsValid())
	_, ok := idx.Origin(addr(10))
	assert.False(t, ok)

	l.fail = false
	require.NoError(t, idx.Refresh(ctx))
	assert.True(t, idx.Checkpoint().IsValid())
	_, ok = idx.Origin(addr(10))
	assert.True(t, ok)
}

func TestContractIndexCanceled(t *testing.T) {
	c := newTestChain(t)
	c.append(deployTx(t, addr(1), addr(10)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx := NewContractIndex(c, nil)
	require.ErrorIs(t, idx.Refresh(ctx), context.Canceled)
	assert.False(t, idx.Checkpoint().IsValid())
}

func TestContractIndexConcurrentRefresh(t *testing.T) {
	c := newTestChain(t)
	for i := 0; i < 5; i++ {
		c.append(deployTx(t, addr(1), addr(byte(10+i))))
	}
	idx := NewContractIndex(c, cache.NewContractCache(64))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, idx.Refresh(context.Background()))
		}()
	}
	wg.Wait()

	st := idx.Stats()
	assert.Equal(t, int64(1), st.Passes)
	assert.Equal(t, 5, st.Contracts)
	assert.Len(t, idx.DeployedBy(addr(1)), 5)
}

func TestContractIndexUsesCache(t *testing.T) {
	c := newTestChain(t)
	b := c.append(deployTx(t, addr(1), addr(10)))
	cc := cache.NewContractCache(64)
	idx := NewContractIndex(c, cc)
	require.NoError(t, idx.Refresh(context.Background()))

	sc, ok := cc.Get(chain.NewTxID(b.Hash, 0))
	require.True(t, ok)
	assert.Equal(t, addr(10), sc.Address)
	assert.True(t, sc.IsDeploy())
}
