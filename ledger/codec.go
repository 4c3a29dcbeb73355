// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/echa/bson"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
)

type fieldDoc struct {
	Id   int64  `bson:"i"`
	Type int64  `bson:"t"`
	Int  int64  `bson:"n,omitempty"`
	Data []byte `bson:"d,omitempty"`
	AmtI int64  `bson:"ai,omitempty"`
	AmtF int64  `bson:"af,omitempty"`
}

type txDoc struct {
	Source   []byte   `bson:"s"`
	Target   []byte   `bson:"t"`
	AmtI     int64    `bson:"ai"`
	AmtF     int64    `bson:"af"`
	BalI     int64    `bson:"bi"`
	BalF     int64    `bson:"bf"`
	Currency string   `bson:"c"`
	Fields   [][]byte `bson:"f,omitempty"`
}

// Nested documents are stored as individually marshaled byte strings
// since the bson decoder does not fill slices of structs.
type blockDoc struct {
	Hash   []byte   `bson:"h"`
	Prev   []byte   `bson:"p"`
	Height int64    `bson:"n"`
	Txs    [][]byte `bson:"x,omitempty"`
	Fields [][]byte `bson:"f,omitempty"`
}

func encodeFields(m map[uint32]model.UserField) ([][]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	docs := make([][]byte, len(ids))
	for i, id := range ids {
		f := m[id]
		buf, err := bson.Marshal(fieldDoc{
			Id:   int64(id),
			Type: int64(f.Type),
			Int:  f.Int,
			Data: f.Data,
			AmtI: int64(f.Amount.Integral),
			AmtF: int64(f.Amount.Fraction),
		})
		if err != nil {
			return nil, err
		}
		docs[i] = buf
	}
	return docs, nil
}

func decodeFields(docs [][]byte) (map[uint32]model.UserField, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	m := make(map[uint32]model.UserField, len(docs))
	for _, buf := range docs {
		var d fieldDoc
		if err := bson.Unmarshal(buf, &d); err != nil {
			return nil, err
		}
		m[uint32(d.Id)] = model.UserField{
			Type:   model.UserFieldType(d.Type),
			Int:    d.Int,
			Data:   d.Data,
			Amount: chain.Amount{Integral: int32(d.AmtI), Fraction: uint64(d.AmtF)},
		}
	}
	return m, nil
}

func newBlockDoc(b *model.Block) (blockDoc, error) {
	fields, err := encodeFields(b.UserFields)
	if err != nil {
		return blockDoc{}, err
	}
	doc := blockDoc{
		Hash:   b.Hash.Bytes(),
		Prev:   b.PrevHash.Bytes(),
		Height: int64(b.Height),
		Fields: fields,
	}
	for _, tx := range b.Transactions {
		fields, err := encodeFields(tx.UserFields)
		if err != nil {
			return blockDoc{}, err
		}
		buf, err := bson.Marshal(txDoc{
			Source:   tx.Source.Bytes(),
			Target:   tx.Target.Bytes(),
			AmtI:     int64(tx.Amount.Integral),
			AmtF:     int64(tx.Amount.Fraction),
			BalI:     int64(tx.Balance.Integral),
			BalF:     int64(tx.Balance.Fraction),
			Currency: tx.Currency.String(),
			Fields:   fields,
		})
		if err != nil {
			return blockDoc{}, err
		}
		doc.Txs = append(doc.Txs, buf)
	}
	return doc, nil
}

func (doc blockDoc) Block() (*model.Block, error) {
	fields, err := decodeFields(doc.Fields)
	if err != nil {
		return nil, err
	}
	b := &model.Block{
		Hash:       chain.NewBlockHash(doc.Hash),
		PrevHash:   chain.NewBlockHash(doc.Prev),
		Height:     uint64(doc.Height),
		UserFields: fields,
	}
	b.Transactions = make([]*model.Transaction, len(doc.Txs))
	for i, buf := range doc.Txs {
		var x txDoc
		if err := bson.Unmarshal(buf, &x); err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		fields, err := decodeFields(x.Fields)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		b.Transactions[i] = &model.Transaction{
			ID:         chain.NewTxID(b.Hash, i),
			Source:     chain.NewAddress(x.Source),
			Target:     chain.NewAddress(x.Target),
			Amount:     chain.Amount{Integral: int32(x.AmtI), Fraction: uint64(x.AmtF)},
			Balance:    chain.Amount{Integral: int32(x.BalI), Fraction: uint64(x.BalF)},
			Currency:   chain.Currency(x.Currency),
			UserFields: fields,
		}
	}
	return b, nil
}

func encodeBlock(b *model.Block) ([]byte, error) {
	doc, err := newBlockDoc(b)
	if err != nil {
		return nil, fmt.Errorf("ledger: encoding block: %w", err)
	}
	return bson.Marshal(doc)
}

func decodeBlock(buf []byte) (*model.Block, error) {
	var doc blockDoc
	if err := bson.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("ledger: decoding block: %w", err)
	}
	b, err := doc.Block()
	if err != nil {
		return nil, fmt.Errorf("ledger: decoding block: %w", err)
	}
	return b, nil
}

// balances are stored as 4 byte integral + 8 byte fraction, big endian
func encodeAmount(a chain.Amount) []byte {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(a.Integral))
	binary.BigEndian.PutUint64(buf[4:], a.Fraction)
	return buf[:]
}

func decodeAmount(buf []byte) chain.Amount {
	if len(buf) != 12 {
		return chain.ZeroAmount
	}
	return chain.Amount{
		Integral: int32(binary.BigEndian.Uint32(buf[:4])),
		Fraction: binary.BigEndian.Uint64(buf[4:]),
	}
}
