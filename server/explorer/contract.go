// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"errors"
	"net/http"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl"
	"blockwatch.cc/csapi/server"
)

type ContractResponse struct {
	Status   server.Status `json:"status"`
	Contract *etl.Contract `json:"contract,omitempty"`
}

// GetContract returns a deployed contract with its latest state. Unknown
// addresses are a failure.
func GetContract(ctx *server.Context) (interface{}, int) {
	addr, fail := parseAddress(ctx, "address")
	if fail != nil {
		return &ContractResponse{Status: *fail}, http.StatusOK
	}
	c, err := ctx.Indexer.SmartContract(ctx, addr)
	if err != nil {
		if !errors.Is(err, etl.ErrNoContract) {
			ctx.Log.Errorf("contract %s: %v", addr, err)
		}
		return &ContractResponse{Status: server.FailureFrom(err)}, http.StatusOK
	}
	return &ContractResponse{
		Status:   server.Success(),
		Contract: c,
	}, http.StatusOK
}

type ContractListResponse struct {
	Status    server.Status   `json:"status"`
	Deployer  chain.Address   `json:"deployer"`
	Contracts []*etl.Contract `json:"contracts"`
	Count     int             `json:"count"`
}

// ListContracts returns all contracts deployed by an address, oldest
// first.
func ListContracts(ctx *server.Context) (interface{}, int) {
	deployer, fail := parseAddress(ctx, "deployer")
	if fail != nil {
		return &ContractListResponse{Status: *fail, Contracts: []*etl.Contract{}}, http.StatusOK
	}
	list, err := ctx.Indexer.ListDeployedContracts(ctx, deployer)
	if err != nil {
		ctx.Log.Errorf("contracts of %s: %v", deployer, err)
		return &ContractListResponse{
			Status:    server.FailureFrom(err),
			Deployer:  deployer,
			Contracts: []*etl.Contract{},
		}, http.StatusOK
	}
	return &ContractListResponse{
		Status:    server.Success(),
		Deployer:  deployer,
		Contracts: list,
		Count:     len(list),
	}, http.StatusOK
}

type ContractAddressListResponse struct {
	Status    server.Status   `json:"status"`
	Deployer  chain.Address   `json:"deployer"`
	Addresses []chain.Address `json:"addresses"`
}

func ListContractAddresses(ctx *server.Context) (interface{}, int) {
	deployer, fail := parseAddress(ctx, "deployer")
	if fail != nil {
		return &ContractAddressListResponse{Status: *fail, Addresses: []chain.Address{}}, http.StatusOK
	}
	addrs, err := ctx.Indexer.ListDeployedAddresses(ctx, deployer)
	if err != nil {
		ctx.Log.Errorf("contract addresses of %s: %v", deployer, err)
		return &ContractAddressListResponse{
			Status:    server.FailureFrom(err),
			Deployer:  deployer,
			Addresses: []chain.Address{},
		}, http.StatusOK
	}
	return &ContractAddressListResponse{
		Status:    server.Success(),
		Deployer:  deployer,
		Addresses: addrs,
	}, http.StatusOK
}
