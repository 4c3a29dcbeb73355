// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package server

import (
	"strings"
)

// StatusCode classifies the domain outcome of an API operation. It travels
// inside a successful HTTP response, unlike Error which replaces it.
type StatusCode int

const (
	StatusSuccess StatusCode = iota
	StatusFailure
	StatusNotImplemented
)

func (c StatusCode) String() string {
	switch c {
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	case StatusNotImplemented:
		return "Not Implemented"
	default:
		return "Unknown"
	}
}

type Status struct {
	Code    StatusCode `json:"code"`
	Message string     `json:"message"`
}

// NewStatus builds a status whose message is the code name followed by
// optional details.
func NewStatus(code StatusCode, details ...string) Status {
	msg := code.String()
	if len(details) > 0 {
		msg = strings.Join(append([]string{msg}, details...), " ")
	}
	return Status{Code: code, Message: msg}
}

func Success(details ...string) Status {
	return NewStatus(StatusSuccess, details...)
}

func Failure(details ...string) Status {
	return NewStatus(StatusFailure, details...)
}

// FailureFrom reports err as a failure status.
func FailureFrom(err error) Status {
	if err == nil {
		return Failure()
	}
	return Failure(err.Error())
}

func NotImplemented(details ...string) Status {
	return NewStatus(StatusNotImplemented, details...)
}

func (s Status) IsSuccess() bool {
	return s.Code == StatusSuccess
}

