// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"net/http"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/server"
)

type BalanceResponse struct {
	Status   server.Status  `json:"status"`
	Address  chain.Address  `json:"address"`
	Balance  chain.Amount   `json:"balance"`
	Currency chain.Currency `json:"currency"`
}

func GetBalance(ctx *server.Context) (interface{}, int) {
	addr, fail := parseAddress(ctx, "address")
	if fail != nil {
		return &BalanceResponse{Status: *fail}, http.StatusOK
	}
	bal, err := ctx.Indexer.Balance(ctx, addr)
	if err != nil {
		ctx.Log.Errorf("balance %s: %v", addr, err)
		return &BalanceResponse{Status: server.FailureFrom(err), Address: addr}, http.StatusOK
	}
	return &BalanceResponse{
		Status:   server.Success(),
		Address:  addr,
		Balance:  bal,
		Currency: chain.DefaultCurrency,
	}, http.StatusOK
}

type AccountTransactionsResponse struct {
	Status       server.Status  `json:"status"`
	Address      chain.Address  `json:"address"`
	Transactions []*Transaction `json:"transactions"`
}

// ListAccountTransactions returns transactions touching an address,
// newest first.
func ListAccountTransactions(ctx *server.Context) (interface{}, int) {
	addr, fail := parseAddress(ctx, "address")
	if fail != nil {
		return &AccountTransactionsResponse{Status: *fail, Transactions: []*Transaction{}}, http.StatusOK
	}
	txs, err := ctx.Indexer.ListAccountTransactions(ctx, addr, parseListRequest(ctx))
	if err != nil {
		ctx.Log.Errorf("account %s transactions: %v", addr, err)
		return &AccountTransactionsResponse{
			Status:       server.FailureFrom(err),
			Address:      addr,
			Transactions: []*Transaction{},
		}, http.StatusOK
	}
	return &AccountTransactionsResponse{
		Status:       server.Success(),
		Address:      addr,
		Transactions: NewTransactionList(txs),
	}, http.StatusOK
}
