// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/qri-io/jsonschema"

	"blockwatch.cc/csapi/etl"
	"blockwatch.cc/csapi/server"
)

const maxFlowBodySize = 1 << 20

const flowSchemaJSON = `{
	"$schema": "http://json-schema.org/draft/2019-09/schema#",
	"title": "FlowRequest",
	"type": "object",
	"required": [ "source", "target", "amount" ],
	"properties": {
		"source": { "type": "string", "minLength": 1 },
		"target": { "type": "string", "minLength": 1 },
		"amount": {
			"type": "object",
			"required": [ "integral" ],
			"properties": {
				"integral": { "type": "integer", "minimum": 0 },
				"fraction": { "type": "integer", "minimum": 0 }
			}
		},
		"smart_contract": {
			"type": "object",
			"required": [ "address" ],
			"properties": {
				"address": { "type": "string" },
				"source_code": { "type": "string" },
				"byte_code": { "type": "string", "contentEncoding": "base64" },
				"hash_state": { "type": "string" },
				"method": { "type": "string" },
				"params": { "type": "array", "items": { "type": "string" } }
			}
		}
	}
}`

var flowSchema = &jsonschema.Schema{}

func init() {
	if err := json.Unmarshal([]byte(flowSchemaJSON), flowSchema); err != nil {
		panic(fmt.Errorf("explorer: reading flow schema failed: %v", err))
	}
}

func validateFlowRequest(ctx context.Context, buf []byte) error {
	errs, err := flowSchema.ValidateBytes(ctx, buf)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return errors.New(errs[0].Error())
	}
	return nil
}

type FlowResponse struct {
	Status        server.Status `json:"status"`
	Kind          etl.FlowKind  `json:"kind"`
	Transaction   *Transaction  `json:"transaction,omitempty"`
	ContractState []byte        `json:"contract_state,omitempty"`
}

// PostFlow submits a transfer or smart contract operation.
func PostFlow(ctx *server.Context) (interface{}, int) {
	buf, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxFlowBodySize))
	if err != nil {
		panic(server.EBadRequest(server.EC_DEMARSHAL_FAILED, "cannot read request body", err))
	}
	if err := validateFlowRequest(ctx, buf); err != nil {
		panic(server.EBadRequest(server.EC_PARAM_INVALID, err.Error(), nil))
	}
	var req etl.FlowRequest
	if err := json.Unmarshal(buf, &req); err != nil {
		panic(server.EBadRequest(server.EC_DEMARSHAL_FAILED, err.Error(), nil))
	}

	res, err := ctx.Flow.Execute(ctx, req)
	if err != nil {
		ctx.Log.Debugf("flow %s -> %s: %v", req.Source, req.Target, err)
		return &FlowResponse{Status: server.FailureFrom(err)}, http.StatusOK
	}
	return &FlowResponse{
		Status:        server.Success(),
		Kind:          res.Kind,
		Transaction:   NewTransaction(res.Transaction),
		ContractState: res.ContractState,
	}, http.StatusOK
}
