// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"errors"
	"fmt"

	"github.com/echa/bson"

	"blockwatch.cc/csapi/chain"
)

// DefaultMethod is executed when a call does not name a method.
const DefaultMethod = "initialize"

var ErrNoContract = errors.New("not a smart contract")

// SmartContract is the contract metadata embedded in user field 0 of a
// smart transaction. Deploys carry byte code, calls don't.
type SmartContract struct {
	Address       chain.Address `json:"address"`
	SourceCode    string        `json:"source_code,omitempty"`
	ByteCode      []byte        `json:"byte_code,omitempty"`
	HashState     string        `json:"hash_state,omitempty"`
	Method        string        `json:"method,omitempty"`
	Params        []string      `json:"params,omitempty"`
	ContractState []byte        `json:"contract_state,omitempty"`
}

// IsEmpty reports the absent contract record.
func (c *SmartContract) IsEmpty() bool {
	return c == nil || !c.Address.IsValid()
}

func (c *SmartContract) IsDeploy() bool {
	return c != nil && len(c.ByteCode) > 0
}

// MethodOrDefault returns the method to execute.
func (c *SmartContract) MethodOrDefault() string {
	if c.Method == "" {
		return DefaultMethod
	}
	return c.Method
}

type contractDoc struct {
	Address       []byte   `bson:"a"`
	SourceCode    string   `bson:"s,omitempty"`
	ByteCode      []byte   `bson:"b,omitempty"`
	HashState     string   `bson:"h,omitempty"`
	Method        string   `bson:"m,omitempty"`
	Params        []string `bson:"p,omitempty"`
	ContractState []byte   `bson:"c,omitempty"`
}

func EncodeSmartContract(c *SmartContract) ([]byte, error) {
	doc := contractDoc{
		Address:       c.Address.Bytes(),
		SourceCode:    c.SourceCode,
		ByteCode:      c.ByteCode,
		HashState:     c.HashState,
		Method:        c.Method,
		Params:        c.Params,
		ContractState: c.ContractState,
	}
	return bson.Marshal(doc)
}

func DecodeSmartContract(buf []byte) (*SmartContract, error) {
	if len(buf) == 0 {
		return nil, ErrNoContract
	}
	var doc contractDoc
	if err := bson.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoContract, err)
	}
	if len(doc.Address) != chain.AddressLength {
		return nil, fmt.Errorf("%w: bad address length %d", ErrNoContract, len(doc.Address))
	}
	return &SmartContract{
		Address:       chain.NewAddress(doc.Address),
		SourceCode:    doc.SourceCode,
		ByteCode:      doc.ByteCode,
		HashState:     doc.HashState,
		Method:        doc.Method,
		Params:        doc.Params,
		ContractState: doc.ContractState,
	}, nil
}

// NewSmartField wraps encoded contract metadata into a user field.
func NewSmartField(c *SmartContract) (UserField, error) {
	buf, err := EncodeSmartContract(c)
	if err != nil {
		return UserField{}, err
	}
	return NewStringField(buf), nil
}

// SmartContract decodes the contract metadata in user field 0.
func (t *Transaction) SmartContract() (*SmartContract, error) {
	f := t.UserField(0)
	if f.Type != UserFieldString {
		return nil, ErrNoContract
	}
	return DecodeSmartContract(f.Data)
}

func (t *Transaction) IsSmart() bool {
	_, err := t.SmartContract()
	return err == nil
}
