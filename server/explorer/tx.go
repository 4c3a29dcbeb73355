// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"net/http"
	"time"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/ledger"
	"blockwatch.cc/csapi/server"
)

var _ server.Resource = (*TransactionResponse)(nil)

type TransactionResponse struct {
	Status      server.Status `json:"status"`
	Found       bool          `json:"found"`
	Transaction *Transaction  `json:"transaction,omitempty"`

	lastmod time.Time
}

func (r TransactionResponse) LastModified() time.Time {
	return r.lastmod
}

// Expires is zero for found transactions which never change. Absent
// transactions may appear with the next pool.
func (r TransactionResponse) Expires() time.Time {
	if r.Found {
		return time.Time{}
	}
	return r.lastmod
}

func GetTransaction(ctx *server.Context) (interface{}, int) {
	id, err := chain.ParseTxID(urlVar(ctx, "id"))
	if err != nil {
		return &TransactionResponse{Status: server.FailureFrom(err), lastmod: ctx.Now}, http.StatusOK
	}
	tx, err := ctx.Indexer.LookupTransaction(ctx, id)
	switch {
	case err == nil:
		return &TransactionResponse{
			Status:      server.Success(),
			Found:       true,
			Transaction: NewTransaction(tx),
			lastmod:     ctx.Now,
		}, http.StatusOK
	case ledger.IsNotFound(err):
		return &TransactionResponse{Status: server.Success(), lastmod: ctx.Now}, http.StatusOK
	default:
		ctx.Log.Errorf("tx %s: %v", id, err)
		return &TransactionResponse{Status: server.FailureFrom(err), lastmod: ctx.Now}, http.StatusOK
	}
}
