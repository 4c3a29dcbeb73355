// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl"
	"blockwatch.cc/csapi/ledger"
	"blockwatch.cc/csapi/server"
)

func addr(b byte) chain.Address {
	var a chain.Address
	for i := range a {
		a[i] = b
	}
	return a
}

var (
	alice    = addr(1)
	bob      = addr(2)
	contract = addr(9)
)

type echoExecutor struct{}

func (echoExecutor) ExecuteByteCode(_ context.Context, _ chain.Address, _, state []byte, method string, _ []string) ([]byte, error) {
	return append(append([]byte{}, state...), []byte(method+";")...), nil
}

type fixture struct {
	t       *testing.T
	store   *ledger.Store
	indexer *etl.Indexer
	srv     *server.RestServer
	url     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := ledger.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(ctx, map[chain.Address]chain.Amount{
		alice: {Integral: 100},
	}))

	idx := etl.NewIndexer(etl.IndexerConfig{Ledger: store, ContractCacheSize: 16})
	require.NoError(t, idx.Init(ctx))
	flow := etl.NewFlow(idx, ledger.NewProducer(store), echoExecutor{})

	srv, err := server.New(&server.Config{
		Indexer: idx,
		Flow:    flow,
		Http:    server.NewHttpConfig(),
	})
	require.NoError(t, err)
	srv.Run()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{
		t:       t,
		store:   store,
		indexer: idx,
		srv:     srv,
		url:     ts.URL,
	}
}

func (f *fixture) get(path string, v interface{}) int {
	f.t.Helper()
	resp, err := http.Get(f.url + path)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	require.NoError(f.t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func (f *fixture) post(path string, body interface{}, v interface{}) int {
	f.t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(f.t, err)
	resp, err := http.Post(f.url+path, "application/json", bytes.NewReader(buf))
	require.NoError(f.t, err)
	defer resp.Body.Close()
	require.NoError(f.t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

type flowResult struct {
	Status        server.Status `json:"status"`
	Kind          string        `json:"kind"`
	Transaction   *Transaction  `json:"transaction"`
	ContractState []byte        `json:"contract_state"`
}

func (f *fixture) flow(body map[string]interface{}) flowResult {
	f.t.Helper()
	var res flowResult
	require.Equal(f.t, http.StatusOK, f.post("/explorer/flow", body, &res))
	return res
}

func transfer(from, to chain.Address, integral int32) map[string]interface{} {
	return map[string]interface{}{
		"source": from.String(),
		"target": to.String(),
		"amount": map[string]interface{}{"integral": integral},
	}
}

func smart(from, to chain.Address, sc map[string]interface{}) map[string]interface{} {
	req := transfer(from, to, 0)
	sc["address"] = to.String()
	req["smart_contract"] = sc
	return req
}

func TestBalance(t *testing.T) {
	f := newFixture(t)

	var res BalanceResponse
	require.Equal(t, http.StatusOK, f.get("/explorer/balance/"+alice.String(), &res))
	assert.Equal(t, server.StatusSuccess, res.Status.Code)
	assert.Equal(t, alice, res.Address)
	assert.Equal(t, chain.Amount{Integral: 100}, res.Balance)
	assert.Equal(t, chain.DefaultCurrency, res.Currency)

	res = BalanceResponse{}
	require.Equal(t, http.StatusOK, f.get("/explorer/balance/not-an-address", &res))
	assert.Equal(t, server.StatusFailure, res.Status.Code)
	assert.Contains(t, res.Status.Message, "Failure")
}

func TestBalanceHandler(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodGet, "/explorer/balance/x", nil)
	r = mux.SetURLVars(r, map[string]string{"address": alice.String()})
	ctx := server.NewContext(r.Context(), r, httptest.NewRecorder(), GetBalance, f.srv)

	res, code := GetBalance(ctx)
	require.Equal(t, http.StatusOK, code)
	bal := res.(*BalanceResponse)
	assert.True(t, bal.Status.IsSuccess())
	assert.Equal(t, int32(100), bal.Balance.Integral)
}

func TestTransaction(t *testing.T) {
	f := newFixture(t)
	head, err := f.store.LastHash(context.Background())
	require.NoError(t, err)

	var res TransactionResponse
	f.get("/explorer/tx/"+chain.NewTxID(head, 0).String(), &res)
	assert.Equal(t, server.StatusSuccess, res.Status.Code)
	require.True(t, res.Found)
	assert.Equal(t, alice, res.Transaction.Target)
	assert.Nil(t, res.Transaction.SmartContract)

	// bare hash refers to the first transaction
	res = TransactionResponse{}
	f.get("/explorer/tx/"+head.String(), &res)
	assert.True(t, res.Found)

	res = TransactionResponse{}
	f.get("/explorer/tx/"+chain.NewTxID(head, 5).String(), &res)
	assert.Equal(t, server.StatusSuccess, res.Status.Code)
	assert.False(t, res.Found)

	res = TransactionResponse{}
	f.get("/explorer/tx/garbage", &res)
	assert.Equal(t, server.StatusFailure, res.Status.Code)
	assert.False(t, res.Found)
}

func TestFlowTransfer(t *testing.T) {
	f := newFixture(t)

	res := f.flow(transfer(alice, bob, 2))
	require.Equal(t, server.StatusSuccess, res.Status.Code, res.Status.Message)
	assert.Equal(t, "transfer", res.Kind)
	require.NotNil(t, res.Transaction)
	assert.True(t, res.Transaction.ID.IsValid())
	assert.Equal(t, chain.Amount{Integral: 2}, res.Transaction.Amount)

	var bal BalanceResponse
	f.get("/explorer/balance/"+bob.String(), &bal)
	assert.Equal(t, chain.Amount{Integral: 2}, bal.Balance)

	var txs AccountTransactionsResponse
	f.get("/explorer/account/"+bob.String()+"/transactions", &txs)
	assert.Equal(t, server.StatusSuccess, txs.Status.Code)
	require.Len(t, txs.Transactions, 1)
	assert.Equal(t, res.Transaction.ID, txs.Transactions[0].ID)

	// overdraft is rejected by the ledger
	res = f.flow(transfer(bob, alice, 50))
	assert.Equal(t, server.StatusFailure, res.Status.Code)
}

func TestFlowSchema(t *testing.T) {
	f := newFixture(t)

	var res server.ErrorResponse
	code := f.post("/explorer/flow", map[string]interface{}{"source": alice.String()}, &res)
	assert.Equal(t, http.StatusBadRequest, code)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, server.EC_PARAM_INVALID, res.Errors[0].Code)

	// malformed addresses pass the schema and fail in the flow
	fr := f.flow(transfer(alice, addr(0), 1))
	assert.Equal(t, server.StatusFailure, fr.Status.Code)
}

func TestContractLifecycle(t *testing.T) {
	f := newFixture(t)

	// invoke before deploy
	res := f.flow(smart(alice, contract, map[string]interface{}{"method": "inc"}))
	assert.Equal(t, server.StatusFailure, res.Status.Code)

	var cr ContractResponse
	f.get("/explorer/contract/"+contract.String(), &cr)
	assert.Equal(t, server.StatusFailure, cr.Status.Code)
	assert.Nil(t, cr.Contract)

	res = f.flow(smart(alice, contract, map[string]interface{}{
		"byte_code":   []byte("code"),
		"source_code": "contract {}",
	}))
	require.Equal(t, server.StatusSuccess, res.Status.Code, res.Status.Message)
	assert.Equal(t, "deploy", res.Kind)
	assert.Equal(t, []byte("initialize;"), res.ContractState)
	require.NotNil(t, res.Transaction.SmartContract)
	assert.Equal(t, []byte("code"), res.Transaction.SmartContract.ByteCode)

	// re-deploy is a conflict
	res = f.flow(smart(alice, contract, map[string]interface{}{"byte_code": []byte("code")}))
	assert.Equal(t, server.StatusFailure, res.Status.Code)

	res = f.flow(smart(alice, contract, map[string]interface{}{
		"method": "inc",
		"params": []string{"1"},
	}))
	require.Equal(t, server.StatusSuccess, res.Status.Code, res.Status.Message)
	assert.Equal(t, "call", res.Kind)
	assert.Equal(t, []byte("initialize;inc;"), res.ContractState)

	cr = ContractResponse{}
	f.get("/explorer/contract/"+contract.String(), &cr)
	require.Equal(t, server.StatusSuccess, cr.Status.Code, cr.Status.Message)
	require.NotNil(t, cr.Contract)
	assert.Equal(t, alice, cr.Contract.Deployer)
	assert.Equal(t, []byte("code"), cr.Contract.ByteCode)
	assert.Equal(t, []byte("initialize;inc;"), cr.Contract.ContractState)

	var cl ContractListResponse
	f.get("/explorer/contracts/"+alice.String(), &cl)
	assert.Equal(t, server.StatusSuccess, cl.Status.Code)
	require.Len(t, cl.Contracts, 1)
	assert.Equal(t, 1, cl.Count)
	assert.Equal(t, contract, cl.Contracts[0].Address)

	var al ContractAddressListResponse
	f.get("/explorer/contracts/"+alice.String()+"/addresses", &al)
	assert.Equal(t, []chain.Address{contract}, al.Addresses)

	al = ContractAddressListResponse{}
	f.get("/explorer/contracts/"+bob.String()+"/addresses", &al)
	assert.Equal(t, server.StatusSuccess, al.Status.Code)
	assert.NotNil(t, al.Addresses)
	assert.Empty(t, al.Addresses)
}

func TestPools(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		require.Equal(t, server.StatusSuccess, f.flow(transfer(alice, bob, 1)).Status.Code)
	}

	var list PoolListResponse
	f.get("/explorer/pools?limit=2", &list)
	assert.Equal(t, server.StatusSuccess, list.Status.Code)
	assert.Equal(t, uint64(5), list.Count)
	require.Len(t, list.Pools, 2)
	assert.Equal(t, uint64(4), list.Pools[0].Height)
	assert.Equal(t, uint64(3), list.Pools[1].Height)
	assert.Equal(t, list.Pools[1].Hash, list.Pools[0].PrevHash)

	list = PoolListResponse{}
	f.get("/explorer/pools?offset=200&limit=200", &list)
	assert.Equal(t, server.StatusSuccess, list.Status.Code)
	assert.LessOrEqual(t, len(list.Pools), 100)

	list = PoolListResponse{}
	f.get("/explorer/pools?limit=0", &list)
	assert.Equal(t, server.StatusSuccess, list.Status.Code)
	assert.Empty(t, list.Pools)

	list = PoolListResponse{}
	f.get("/explorer/pools", &list)
	assert.Len(t, list.Pools, 5)

	var pool PoolResponse
	first := PoolListResponse{}
	f.get("/explorer/pools?limit=1", &first)
	require.Len(t, first.Pools, 1)
	hash := first.Pools[0].Hash
	f.get("/explorer/pool/"+hash.String(), &pool)
	assert.Equal(t, server.StatusSuccess, pool.Status.Code)
	require.True(t, pool.Found)
	assert.Equal(t, 1, pool.Pool.NTx)
	assert.False(t, pool.Pool.Time.IsZero())

	pool = PoolResponse{}
	f.get("/explorer/pool/"+addr(7).String(), &pool)
	assert.Equal(t, server.StatusSuccess, pool.Status.Code)
	assert.False(t, pool.Found)

	pool = PoolResponse{}
	f.get("/explorer/pool/xyz", &pool)
	assert.Equal(t, server.StatusFailure, pool.Status.Code)

	var txs PoolTransactionsResponse
	f.get("/explorer/pool/"+hash.String()+"/transactions", &txs)
	assert.Equal(t, server.StatusSuccess, txs.Status.Code)
	require.Len(t, txs.Transactions, 1)
	assert.Equal(t, bob, txs.Transactions[0].Target)

	txs = PoolTransactionsResponse{}
	f.get("/explorer/pool/"+hash.String()+"/transactions?offset=5", &txs)
	assert.Equal(t, server.StatusSuccess, txs.Status.Code)
	assert.Empty(t, txs.Transactions)
}

func TestListWindow(t *testing.T) {
	cfg := &server.Config{Http: server.NewHttpConfig()}
	limit := func(n uint) *uint { return &n }
	assert.Equal(t, etl.ListRequest{Offset: 100, Limit: 100}, ListRequest{Offset: 200, Limit: limit(200)}.Window(cfg))
	assert.Equal(t, etl.ListRequest{Offset: 0, Limit: 20}, ListRequest{}.Window(cfg))
	assert.Equal(t, etl.ListRequest{Offset: 0, Limit: 0}, ListRequest{Limit: limit(0)}.Window(cfg))
	assert.Equal(t, etl.ListRequest{Offset: 3, Limit: 7}, ListRequest{Offset: 3, Limit: limit(7)}.Window(cfg))
}

func TestStatsAndNodes(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, server.StatusSuccess, f.flow(transfer(alice, bob, 3)).Status.Code)

	var stats StatsResponse
	f.get("/explorer/stats", &stats)
	assert.Equal(t, server.StatusSuccess, stats.Status.Code)
	require.Len(t, stats.Stats, len(etl.StatsPeriods))
	for _, s := range stats.Stats {
		assert.Equal(t, 2, s.Pools)
		assert.Equal(t, 2, s.Transactions)
		assert.Equal(t, chain.Amount{Integral: 103}, s.Volume[chain.DefaultCurrency])
	}

	var nodes NodesResponse
	f.get("/explorer/nodes", &nodes)
	assert.Equal(t, server.StatusNotImplemented, nodes.Status.Code)
	assert.Equal(t, "Not Implemented", nodes.Status.Message)
}

func TestPingAndNotFound(t *testing.T) {
	f := newFixture(t)

	var p Pinger
	f.get("/ping?sequence=7&client_time=42", &p)
	assert.Equal(t, int64(7), p.Sequence)
	assert.Equal(t, int64(42), p.RequestAt)
	assert.NotZero(t, p.ResponseAt)
	assert.Equal(t, f.indexer.Checkpoint(), p.Head)

	var res server.ErrorResponse
	assert.Equal(t, http.StatusNotFound, f.get("/explorer/unknown", &res))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, server.EC_NO_ROUTE, res.Errors[0].Code)
}
