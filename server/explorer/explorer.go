// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"net/http"

	"github.com/gorilla/mux"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl"
	"blockwatch.cc/csapi/server"
)

func init() {
	server.Register(Explorer{})
}

var _ server.RESTful = (*Explorer)(nil)

type Explorer struct{}

func (e Explorer) RESTPrefix() string {
	return "/explorer"
}

func (e Explorer) RESTPath(r *mux.Router) string {
	return e.RESTPrefix()
}

func (e Explorer) RegisterDirectRoutes(r *mux.Router) error {
	return nil
}

func (e Explorer) RegisterRoutes(r *mux.Router) error {
	r.HandleFunc("/balance/{address}", server.C(GetBalance)).Methods("GET")
	r.HandleFunc("/tx/{id}", server.C(GetTransaction)).Methods("GET")
	r.HandleFunc("/account/{address}/transactions", server.C(ListAccountTransactions)).Methods("GET")
	r.HandleFunc("/flow", server.C(PostFlow)).Methods("POST")
	r.HandleFunc("/pools", server.C(ListPools)).Methods("GET")
	r.HandleFunc("/pool/{hash}", server.C(GetPool)).Methods("GET")
	r.HandleFunc("/pool/{hash}/transactions", server.C(ListPoolTransactions)).Methods("GET")
	r.HandleFunc("/stats", server.C(GetStats)).Methods("GET")
	r.HandleFunc("/nodes", server.C(ListNodes)).Methods("GET")
	r.HandleFunc("/contract/{address}", server.C(GetContract)).Methods("GET")
	r.HandleFunc("/contracts/{deployer}", server.C(ListContracts)).Methods("GET")
	r.HandleFunc("/contracts/{deployer}/addresses", server.C(ListContractAddresses)).Methods("GET")
	return nil
}

// ListRequest is the pagination window accepted by list endpoints. An
// absent limit selects the default page size.
type ListRequest struct {
	Offset uint  `schema:"offset"`
	Limit  *uint `schema:"limit"`
}

// Window clamps the request to the configured page limits.
func (r ListRequest) Window(cfg *server.Config) etl.ListRequest {
	return etl.ListRequest{
		Offset: cfg.ClampOffset(r.Offset),
		Limit:  cfg.ClampExplore(r.Limit),
	}
}

func parseListRequest(ctx *server.Context) etl.ListRequest {
	args := &ListRequest{}
	ctx.ParseRequestArgs(args)
	return args.Window(ctx.Cfg)
}

// urlVar returns a required path variable.
func urlVar(ctx *server.Context, name string) string {
	v, ok := mux.Vars(ctx.Request)[name]
	if !ok || v == "" {
		panic(server.EBadRequest(server.EC_RESOURCE_ID_MISSING, "missing "+name, nil))
	}
	return v
}

// parseAddress resolves an address path variable. Malformed addresses are
// reported as failure status, not as HTTP error.
func parseAddress(ctx *server.Context, name string) (chain.Address, *server.Status) {
	a, err := ctx.Indexer.ParseAddress(urlVar(ctx, name))
	if err != nil {
		st := server.FailureFrom(err)
		return a, &st
	}
	return a, nil
}

type StatsResponse struct {
	Status server.Status     `json:"status"`
	Stats  []etl.PeriodStats `json:"stats"`
}

func GetStats(ctx *server.Context) (interface{}, int) {
	stats, err := ctx.Indexer.Stats(ctx)
	if err != nil {
		ctx.Log.Errorf("stats: %v", err)
		return &StatsResponse{Status: server.FailureFrom(err)}, http.StatusOK
	}
	return &StatsResponse{
		Status: server.Success(),
		Stats:  stats,
	}, http.StatusOK
}

type NodesResponse struct {
	Status server.Status `json:"status"`
	Nodes  []string      `json:"nodes"`
}

// ListNodes is reserved for node discovery which the gateway does not
// track.
func ListNodes(ctx *server.Context) (interface{}, int) {
	return &NodesResponse{
		Status: server.NotImplemented(),
		Nodes:  make([]string, 0),
	}, http.StatusOK
}
