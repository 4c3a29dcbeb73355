// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
	"blockwatch.cc/csapi/ledger"
)

func addr(b byte) chain.Address {
	var a chain.Address
	a[0] = b
	a[31] = 0x01
	return a
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func notFoundJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"errors": []GenericError{{Code: 404, Message: "not found"}},
	})
}

// newNode serves the node API from a local store.
func newNode(t *testing.T) (*ledger.Store, *Client) {
	t.Helper()
	ctx := context.Background()
	s, err := ledger.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(ctx, map[chain.Address]chain.Amount{addr(1): {Integral: 10}}))
	p := ledger.NewProducer(s)

	r := mux.NewRouter()
	r.HandleFunc("/chain/head", func(w http.ResponseWriter, r *http.Request) {
		h, _ := s.LastHash(r.Context())
		writeJSON(w, 200, map[string]interface{}{"hash": h})
	})
	r.HandleFunc("/chain/size", func(w http.ResponseWriter, r *http.Request) {
		n, _ := s.Size(r.Context())
		writeJSON(w, 200, map[string]interface{}{"size": n})
	})
	r.HandleFunc("/blocks/{hash}", func(w http.ResponseWriter, r *http.Request) {
		h, err := chain.ParseBlockHash(mux.Vars(r)["hash"])
		if err != nil {
			http.Error(w, "bad hash", http.StatusBadRequest)
			return
		}
		b, err := s.BlockByHash(r.Context(), h)
		if err != nil {
			notFoundJSON(w)
			return
		}
		writeJSON(w, 200, b)
	})
	r.HandleFunc("/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := chain.ParseTxID(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		tx, err := s.Transaction(r.Context(), id)
		if err != nil {
			notFoundJSON(w)
			return
		}
		writeJSON(w, 200, tx)
	})
	r.HandleFunc("/balances/{address}", func(w http.ResponseWriter, r *http.Request) {
		a, _ := chain.ParseAddress(mux.Vars(r)["address"])
		bal, _ := s.Balance(r.Context(), a)
		writeJSON(w, 200, map[string]interface{}{"balance": bal})
	})
	r.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		tx := &model.Transaction{}
		if err := json.NewDecoder(r.Body).Decode(tx); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := p.SendTransaction(r.Context(), tx); err != nil {
			writeJSON(w, 200, map[string]interface{}{
				"status": map[string]interface{}{"code": 1, "message": "Failure: " + err.Error()},
			})
			return
		}
		writeJSON(w, 200, map[string]interface{}{
			"status": map[string]interface{}{"code": 0, "message": "Success"},
		})
	}).Methods(http.MethodPost)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", nil)
	require.NoError(t, err)
	return s, c
}

func TestClientAccessor(t *testing.T) {
	ctx := context.Background()
	s, c := newNode(t)

	head, err := c.LastHash(ctx)
	require.NoError(t, err)
	want, _ := s.LastHash(ctx)
	assert.Equal(t, want, head)

	n, err := c.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	b, err := c.BlockByHash(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, head, b.Hash)
	require.Equal(t, 1, b.TxCount())
	assert.Equal(t, addr(1), b.Transactions[0].Target)
	assert.False(t, b.Timestamp().IsZero())

	tx, err := c.Transaction(ctx, chain.NewTxID(head, 0))
	require.NoError(t, err)
	assert.Equal(t, chain.Amount{Integral: 10}, tx.Amount)

	bal, err := c.Balance(ctx, addr(1))
	require.NoError(t, err)
	assert.Equal(t, chain.Amount{Integral: 10}, bal)
}

func TestClientNotFound(t *testing.T) {
	ctx := context.Background()
	_, c := newNode(t)

	_, err := c.BlockByHash(ctx, chain.NewBlockHash([]byte{1}))
	assert.ErrorIs(t, err, ledger.ErrNoBlock)

	_, err = c.BlockByHash(ctx, chain.ZeroHash)
	assert.ErrorIs(t, err, ledger.ErrNoBlock)

	_, err = c.Transaction(ctx, chain.NewTxID(chain.NewBlockHash([]byte{1}), 3))
	assert.ErrorIs(t, err, ledger.ErrNoTransaction)
}

func TestClientSendTransaction(t *testing.T) {
	ctx := context.Background()
	s, c := newNode(t)

	tx := &model.Transaction{
		Source:   addr(1),
		Target:   addr(2),
		Amount:   chain.Amount{Integral: 4},
		Currency: chain.DefaultCurrency,
	}
	tx.SetUserField(0, model.NewStringField([]byte("payload")))
	require.NoError(t, c.SendTransaction(ctx, tx))

	bal, _ := s.Balance(ctx, addr(2))
	assert.Equal(t, chain.Amount{Integral: 4}, bal)
	head, _ := s.LastHash(ctx)
	b, err := s.BlockByHash(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), b.Transactions[0].UserField(0).Data)

	tx.Amount = chain.Amount{Integral: 100}
	err = c.SendTransaction(ctx, tx)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestHandleError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"errors": []GenericError{{Code: 500, Message: "boom"}},
			})
		default:
			http.Error(w, "plain failure", http.StatusBadGateway)
		}
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	err = c.Get(context.Background(), "/json", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, ErrorStatus(err))
	var rerr *rpcError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "boom", rerr.Errors()[0].Message)

	err = c.Get(context.Background(), "/plain", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, ErrorStatus(err))
	assert.Contains(t, err.Error(), "plain failure")
}

func TestNewClientBaseURL(t *testing.T) {
	for in, want := range map[string]string{
		"localhost:8000":          "http://localhost:8000/",
		"https://node.example/v1": "https://node.example/v1/",
		"http://node:80/":         "http://node:80/",
	} {
		c, err := NewClient(in, nil)
		require.NoError(t, err, in)
		assert.Equal(t, want, c.BaseURL.String(), in)
	}

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL+"/api", nil)
	require.NoError(t, err)
	require.NoError(t, c.Get(context.Background(), "/chain/head", nil))
	assert.Equal(t, "/api/chain/head", got)
}
