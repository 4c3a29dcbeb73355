// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package etl

import (
	"context"
	"fmt"
	"sync"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
)

// Submitter hands a built transaction to the consensus layer.
type Submitter interface {
	SendTransaction(ctx context.Context, tx *model.Transaction) error
}

// ContractExecutor runs contract byte code against a state blob and
// returns the new state.
type ContractExecutor interface {
	ExecuteByteCode(ctx context.Context, addr chain.Address, byteCode, state []byte, method string, params []string) ([]byte, error)
}

type FlowKind byte

const (
	FlowTransfer FlowKind = iota
	FlowDeploy
	FlowCall
)

func (k FlowKind) String() string {
	switch k {
	case FlowTransfer:
		return "transfer"
	case FlowDeploy:
		return "deploy"
	case FlowCall:
		return "call"
	default:
		return "invalid"
	}
}

func (k FlowKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FlowContract is the smart contract part of a flow request. A request
// is a smart operation iff Address is set.
type FlowContract struct {
	Address    string   `json:"address"`
	SourceCode string   `json:"source_code,omitempty"`
	ByteCode   []byte   `json:"byte_code,omitempty"`
	HashState  string   `json:"hash_state,omitempty"`
	Method     string   `json:"method,omitempty"`
	Params     []string `json:"params,omitempty"`
}

// FlowRequest is an API level transfer. Amount fractions are expressed in
// 1/chain.WalletDenom units.
type FlowRequest struct {
	Source        string        `json:"source"`
	Target        string        `json:"target"`
	Amount        chain.Amount  `json:"amount"`
	SmartContract *FlowContract `json:"smart_contract,omitempty"`
}

func (r FlowRequest) IsSmart() bool {
	return r.SmartContract != nil && r.SmartContract.Address != ""
}

type FlowResult struct {
	Kind          FlowKind           `json:"kind"`
	Transaction   *model.Transaction `json:"transaction"`
	ContractState []byte             `json:"contract_state,omitempty"`
}

// Flow turns API transfer requests into ledger transactions. Smart
// operations are submitted twice: the intent before execution and the
// resulting state after. Smart operations on the same contract address
// run one at a time.
type Flow struct {
	indexer *Indexer
	submit  Submitter
	exec    ContractExecutor

	mu    sync.Mutex
	locks map[chain.Address]*targetLock
}

type targetLock struct {
	sync.Mutex
	refs int
}

func NewFlow(m *Indexer, s Submitter, x ContractExecutor) *Flow {
	return &Flow{
		indexer: m,
		submit:  s,
		exec:    x,
		locks:   make(map[chain.Address]*targetLock),
	}
}

// lock blocks until no other smart operation on addr is in flight and
// returns the matching unlock func.
func (f *Flow) lock(addr chain.Address) func() {
	f.mu.Lock()
	l, ok := f.locks[addr]
	if !ok {
		l = &targetLock{}
		f.locks[addr] = l
	}
	l.refs++
	f.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		f.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(f.locks, addr)
		}
		f.mu.Unlock()
	}
}

func (f *Flow) Execute(ctx context.Context, req FlowRequest) (*FlowResult, error) {
	src, err := f.indexer.ParseAddress(req.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dst, err := f.indexer.ParseAddress(req.Target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", req.Amount)
	}
	bal, err := f.indexer.Balance(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: reading balance: %v", ErrSubmitFailed, err)
	}
	tx := &model.Transaction{
		Source:   src,
		Target:   dst,
		Amount:   chain.NewAmount(req.Amount.Integral, req.Amount.Fraction, chain.WalletDenom),
		Balance:  bal,
		Currency: chain.DefaultCurrency,
	}

	if !req.IsSmart() {
		if err := f.submit.SendTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
		}
		log.Debugf("flow: transfer %s -> %s amount=%s", src, dst, tx.Amount)
		return &FlowResult{Kind: FlowTransfer, Transaction: tx}, nil
	}
	return f.executeSmart(ctx, tx, *req.SmartContract)
}

func (f *Flow) executeSmart(ctx context.Context, tx *model.Transaction, in FlowContract) (*FlowResult, error) {
	unlock := f.lock(tx.Target)
	defer unlock()

	if err := f.indexer.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: refreshing contract index: %v", ErrSubmitFailed, err)
	}
	origin, state, err := f.indexer.contractEntries(ctx, tx.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: loading contract: %v", ErrSubmitFailed, err)
	}

	// calls never carry code
	if in.Method != "" {
		in.ByteCode = nil
		in.SourceCode = ""
	}
	deploy := len(in.ByteCode) > 0
	kind := FlowCall
	if deploy {
		kind = FlowDeploy
	}
	if origin.IsEmpty() != deploy {
		if deploy {
			return nil, fmt.Errorf("%w: contract %s already deployed", ErrContractConflict, tx.Target)
		}
		return nil, fmt.Errorf("%w: contract %s not deployed", ErrContractConflict, tx.Target)
	}

	// the intent carries the current state forward
	meta := &model.SmartContract{
		Address:   tx.Target,
		HashState: in.HashState,
		Method:    in.Method,
		Params:    in.Params,
	}
	if !state.IsEmpty() {
		meta.ContractState = state.ContractState
	}
	if deploy {
		meta.ByteCode = in.ByteCode
		meta.SourceCode = in.SourceCode
	}
	field, err := model.NewSmartField(meta)
	if err != nil {
		return nil, err
	}
	tx.Amount = chain.NominalAmount
	tx.SetUserField(0, field)

	// phase 1: intent
	if err := f.submit.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	code := meta.ByteCode
	if !origin.IsEmpty() {
		code = origin.ByteCode
	}
	next, err := f.exec.ExecuteByteCode(ctx, tx.Target, code, meta.ContractState, meta.MethodOrDefault(), meta.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	// phase 2: state commit
	commit := tx.Clone()
	field, err = model.NewSmartField(&model.SmartContract{
		Address:       meta.Address,
		Method:        meta.Method,
		Params:        meta.Params,
		ContractState: next,
	})
	if err != nil {
		return nil, err
	}
	commit.SetUserField(0, field)
	if err := f.submit.SendTransaction(ctx, commit); err != nil {
		// the executor state is ahead of the ledger now
		log.Errorf("flow: state commit for contract %s failed after %s: %v", tx.Target, meta.MethodOrDefault(), err)
		return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	log.Debugf("flow: %s %s method=%s state=%d bytes", kind, tx.Target, meta.MethodOrDefault(), len(next))
	return &FlowResult{Kind: kind, Transaction: tx, ContractState: next}, nil
}
