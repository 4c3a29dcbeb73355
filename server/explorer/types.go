// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
)

// Transaction is the API form of a ledger transaction. Contract metadata
// is decoded from user field 0.
type Transaction struct {
	ID            chain.TxID           `json:"id"`
	Source        chain.Address        `json:"source"`
	Target        chain.Address        `json:"target"`
	Amount        chain.Amount         `json:"amount"`
	Balance       chain.Amount         `json:"balance"`
	Currency      chain.Currency       `json:"currency"`
	SmartContract *model.SmartContract `json:"smart_contract,omitempty"`
}

func NewTransaction(tx *model.Transaction) *Transaction {
	t := &Transaction{
		ID:       tx.ID,
		Source:   tx.Source,
		Target:   tx.Target,
		Amount:   tx.Amount,
		Balance:  tx.Balance,
		Currency: tx.Currency,
	}
	if sc, err := tx.SmartContract(); err == nil {
		t.SmartContract = sc
	}
	return t
}

func NewTransactionList(txs []*model.Transaction) []*Transaction {
	res := make([]*Transaction, len(txs))
	for i, tx := range txs {
		res[i] = NewTransaction(tx)
	}
	return res
}
