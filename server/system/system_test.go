// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package system

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	logpkg "github.com/echa/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl"
	"blockwatch.cc/csapi/ledger"
	"blockwatch.cc/csapi/server"
)

type nopExecutor struct{}

func (nopExecutor) ExecuteByteCode(_ context.Context, _ chain.Address, _, state []byte, _ string, _ []string) ([]byte, error) {
	return state, nil
}

func newTestServer(t *testing.T) (*etl.Indexer, string) {
	t.Helper()
	store, err := ledger.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	var a chain.Address
	a[0] = 1
	require.NoError(t, store.Init(context.Background(), map[chain.Address]chain.Amount{a: {Integral: 1}}))

	idx := etl.NewIndexer(etl.IndexerConfig{Ledger: store, ContractCacheSize: 8})
	require.NoError(t, idx.Init(context.Background()))
	srv, err := server.New(&server.Config{
		Indexer: idx,
		Flow:    etl.NewFlow(idx, ledger.NewProducer(store), nopExecutor{}),
		Http:    server.NewHttpConfig(),
	})
	require.NoError(t, err)
	srv.Run()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return idx, ts.URL
}

func put(t *testing.T, url string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestCaches(t *testing.T) {
	idx, url := newTestServer(t)

	// warm the pool cache
	_, err := idx.ListPools(context.Background(), etl.ListRequest{Limit: 10})
	require.NoError(t, err)

	resp, err := http.Get(url + "/system/caches")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Contains(t, stats, "pools")
	assert.Contains(t, stats, "contracts")
	assert.Contains(t, stats, "index")
	assert.NotContains(t, stats, "executor")

	assert.Equal(t, http.StatusNoContent, put(t, url+"/system/caches/purge"))
}

func TestUpdateLog(t *testing.T) {
	_, url := newTestServer(t)

	logger := logpkg.NewLogger("ETL")
	logger.SetLevel(logpkg.LevelInfo)
	LoggerMap = map[string]logpkg.Logger{"ETL": logger}
	t.Cleanup(func() { LoggerMap = nil })

	assert.Equal(t, http.StatusNoContent, put(t, url+"/system/log/etl/debug"))
	assert.Equal(t, logpkg.LevelDebug, logger.Level())

	assert.Equal(t, http.StatusBadRequest, put(t, url+"/system/log/etl/loud"))
	assert.Equal(t, http.StatusBadRequest, put(t, url+"/system/log/blockchain/debug"))
	assert.Equal(t, logpkg.LevelDebug, logger.Level())
}

func TestSysStat(t *testing.T) {
	s, err := GetSysStat(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.NotZero(t, s.NumCpu)
	assert.NotZero(t, s.NumGoroutine)
	assert.NotZero(t, s.MemHeapAlloc)
	assert.False(t, s.Timestamp.IsZero())
}
