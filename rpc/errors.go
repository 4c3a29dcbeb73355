// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRejected is returned when the node refuses a submitted transaction.
var ErrRejected = errors.New("rpc: transaction rejected")

func ErrorStatus(err error) int {
	var e HTTPError
	if errors.As(err, &e) {
		return e.StatusCode()
	}
	return 0
}

// GenericError is a single node error entry.
type GenericError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *GenericError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("node: code=%d %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("node: code=%d %s", e.Code, e.Message)
}

// HTTPStatus interface represents an unprocessed HTTP reply
type HTTPStatus interface {
	Request() string // e.g. GET /...
	Status() string  // e.g. "200 OK"
	StatusCode() int // e.g. 200
	Body() []byte
}

// HTTPError retains HTTP status
type HTTPError interface {
	error
	HTTPStatus
}

// Errors is the node's error envelope {"errors":[...]}.
type Errors []*GenericError

func (e *Errors) UnmarshalJSON(data []byte) error {
	var env struct {
		Errors []*GenericError `json:"errors"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*e = env.Errors
	return nil
}

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Error()
}

type httpError struct {
	request    string
	status     string
	statusCode int
	body       []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("rpc: %s status %d (%s)", e.request, e.statusCode, e.body)
}

func (e *httpError) Request() string { return e.request }
func (e *httpError) Status() string  { return e.status }
func (e *httpError) StatusCode() int { return e.statusCode }
func (e *httpError) Body() []byte    { return e.body }

// rpcError is a failed reply that carried a node error list.
type rpcError struct {
	*httpError
	errors Errors
}

func (e *rpcError) Error() string {
	return e.errors.Error()
}

func (e *rpcError) Errors() Errors {
	return e.errors
}

var (
	_ HTTPError = &httpError{}
	_ HTTPError = &rpcError{}
)
