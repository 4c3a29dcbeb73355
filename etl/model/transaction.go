// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"blockwatch.cc/csapi/chain"
)

type UserFieldType byte

const (
	UserFieldInvalid UserFieldType = iota
	UserFieldInteger
	UserFieldString
	UserFieldAmount
)

func (t UserFieldType) String() string {
	switch t {
	case UserFieldInteger:
		return "integer"
	case UserFieldString:
		return "string"
	case UserFieldAmount:
		return "amount"
	default:
		return "invalid"
	}
}

// UserField is a typed side-channel value attached to transactions and
// pools. String payloads are opaque bytes.
type UserField struct {
	Type   UserFieldType `json:"type"`
	Int    int64         `json:"int,omitempty"`
	Data   []byte        `json:"data,omitempty"`
	Amount chain.Amount  `json:"amount,omitempty"`
}

func NewStringField(b []byte) UserField {
	return UserField{Type: UserFieldString, Data: b}
}

func NewIntField(n int64) UserField {
	return UserField{Type: UserFieldInteger, Int: n}
}

func (f UserField) IsValid() bool {
	return f.Type != UserFieldInvalid
}

func (f UserField) String() string {
	if f.Type != UserFieldString {
		return ""
	}
	return string(f.Data)
}

// Transaction is a ledger transaction as stored inside a pool.
type Transaction struct {
	ID         chain.TxID           `json:"id"`
	Source     chain.Address        `json:"source"`
	Target     chain.Address        `json:"target"`
	Amount     chain.Amount         `json:"amount"`
	Balance    chain.Amount         `json:"balance"`
	Currency   chain.Currency       `json:"currency"`
	UserFields map[uint32]UserField `json:"user_fields,omitempty"`
}

func (t *Transaction) IsValid() bool {
	return t != nil && t.ID.IsValid()
}

func (t *Transaction) UserField(id uint32) UserField {
	if t.UserFields == nil {
		return UserField{}
	}
	return t.UserFields[id]
}

func (t *Transaction) SetUserField(id uint32, f UserField) {
	if t.UserFields == nil {
		t.UserFields = make(map[uint32]UserField)
	}
	t.UserFields[id] = f
}

// Touches reports whether addr is the source or the target of t.
func (t *Transaction) Touches(addr chain.Address) bool {
	return t.Source == addr || t.Target == addr
}

// Clone returns a copy of t that shares no user field storage.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.UserFields != nil {
		c.UserFields = make(map[uint32]UserField, len(t.UserFields))
		for k, v := range t.UserFields {
			c.UserFields[k] = v
		}
	}
	return &c
}
