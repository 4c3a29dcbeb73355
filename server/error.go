// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// 10xx - request errors
const (
	EC_NO_ROUTE = 1000 + iota
	EC_MARSHAL_FAILED
	EC_DEMARSHAL_FAILED
	EC_BAD_URL_QUERY
	EC_PARAM_INVALID
)

// 11xx - internal server errors
const (
	EC_SERVER = 1100 + iota
	EC_NETWORK
)

// 12xx - access errors
const (
	EC_ACCESS_RATE_LIMITED = 1200 + iota
)

// 13xx - resource errors
const (
	EC_RESOURCE_ID_MISSING = 1300 + iota
)

// Error is the HTTP level error envelope. Domain failures of explorer
// calls are reported in a response Status instead.
type Error struct {
	Code      int    `json:"code"`
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Scope     string `json:"scope"`
	Detail    string `json:"detail"`
	RequestId string `json:"request_id,omitempty"`
	Cause     error  `json:"-"`
	Reason    string `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Errors []*Error `json:"errors"`
}

// ErrorWrapper builds an Error of a fixed HTTP status class.
type ErrorWrapper func(code int, detail string, err error) error

func NewWrappedError(status int, msg string) ErrorWrapper {
	return func(code int, detail string, err error) error {
		e := &Error{
			Code:    code,
			Status:  status,
			Message: msg,
			Detail:  detail,
			Cause:   err,
		}
		if err != nil {
			e.Reason = err.Error()
		}
		return e
	}
}

func (e *Error) String() string {
	return fmt.Sprintf("%s %s: %s", e.Scope, e.Message, e.Detail)
}

func (e *Error) Error() string {
	var b strings.Builder
	kv := func(k string, v any) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, v)
	}
	if e.Status != 0 {
		kv("status", e.Status)
	}
	if e.Code != 0 {
		kv("code", e.Code)
	}
	if e.Scope != "" {
		kv("scope", e.Scope)
	}
	kv("message", e.Message)
	if e.Detail != "" {
		kv("detail", e.Detail)
	}
	if e.RequestId != "" {
		kv("request-id", e.RequestId)
	}
	if e.Cause != nil {
		kv("cause", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// SetScope prefixes the error scope with s.
func (e *Error) SetScope(s string) *Error {
	if e.Scope == "" {
		e.Scope = s
	} else {
		e.Scope = s + ": " + e.Scope
	}
	return e
}

func (e *Error) MarshalIndent() []byte {
	b, _ := json.MarshalIndent(ErrorResponse{Errors: []*Error{e}}, "", "  ")
	return b
}

var (
	EBadRequest         = NewWrappedError(http.StatusBadRequest, "incorrect request syntax")
	ENotFound           = NewWrappedError(http.StatusNotFound, "resource not found")
	EInternal           = NewWrappedError(http.StatusInternalServerError, "internal server error")
	ETooManyRequests    = NewWrappedError(http.StatusTooManyRequests, "request limit exceeded")
	EServiceUnavailable = NewWrappedError(http.StatusServiceUnavailable, "service temporarily unavailable")
	EConnectionClosed   = NewWrappedError(499, "connection closed")
)
