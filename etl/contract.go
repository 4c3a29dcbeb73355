// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package etl

import (
	"context"
	"fmt"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
)

// Contract is a deployed contract as seen by API consumers. Its state is
// taken from the most recent state transaction when one exists.
type Contract struct {
	model.SmartContract
	Deployer chain.Address `json:"deployer"`
	Origin   chain.TxID    `json:"origin"`
	State    chain.TxID    `json:"state"`
}

// loadContract returns the transaction with id and its decoded metadata.
// The returned metadata may be shared with the cache and must not be
// modified.
func (m *Indexer) loadContract(ctx context.Context, id chain.TxID) (*model.Transaction, *model.SmartContract, error) {
	tx, err := m.ledger.Transaction(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	sc, err := m.index.Contract(tx)
	if err != nil {
		return nil, nil, fmt.Errorf("tx %s: %w", id, err)
	}
	return tx, sc, nil
}

// contractEntries resolves the indexed origin and state metadata of addr.
// Missing entries are returned as nil.
func (m *Indexer) contractEntries(ctx context.Context, addr chain.Address) (origin, state *model.SmartContract, err error) {
	if id, ok := m.index.Origin(addr); ok {
		if _, origin, err = m.loadContract(ctx, id); err != nil {
			return nil, nil, err
		}
	}
	if id, ok := m.index.State(addr); ok {
		if _, state, err = m.loadContract(ctx, id); err != nil {
			return nil, nil, err
		}
	}
	return origin, state, nil
}

// SmartContract returns the deployed contract at addr. Unknown addresses
// return ErrNoContract.
func (m *Indexer) SmartContract(ctx context.Context, addr chain.Address) (*Contract, error) {
	if err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	return m.lookupContract(ctx, addr)
}

func (m *Indexer) lookupContract(ctx context.Context, addr chain.Address) (*Contract, error) {
	oid, ok := m.index.Origin(addr)
	if !ok {
		return nil, ErrNoContract
	}
	tx, sc, err := m.loadContract(ctx, oid)
	if err != nil {
		return nil, err
	}
	c := &Contract{
		SmartContract: *sc,
		Deployer:      tx.Source,
		Origin:        oid,
	}
	if sid, ok := m.index.State(addr); ok {
		_, state, err := m.loadContract(ctx, sid)
		if err != nil {
			return nil, err
		}
		c.State = sid
		c.ContractState = state.ContractState
		if state.HashState != "" {
			c.HashState = state.HashState
		}
	}
	return c, nil
}

// ListDeployedContracts returns all contracts deployed by deployer, oldest
// first.
func (m *Indexer) ListDeployedContracts(ctx context.Context, deployer chain.Address) ([]*Contract, error) {
	if err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	addrs := m.index.DeployedBy(deployer)
	res := make([]*Contract, 0, len(addrs))
	for _, a := range addrs {
		c, err := m.lookupContract(ctx, a)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

// ListDeployedAddresses returns the addresses of all contracts deployed
// by deployer, oldest first.
func (m *Indexer) ListDeployedAddresses(ctx context.Context, deployer chain.Address) ([]chain.Address, error) {
	if err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	addrs := m.index.DeployedBy(deployer)
	if addrs == nil {
		addrs = make([]chain.Address, 0)
	}
	return addrs, nil
}
