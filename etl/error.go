// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package etl

import (
	"errors"
)

var (
	// ErrInvalidAddress indicates an address string that neither parses as
	// canonical address nor as public key.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidHash indicates a malformed pool hash or transaction id.
	ErrInvalidHash = errors.New("invalid hash")

	// ErrNoContract indicates an address without indexed deploy.
	ErrNoContract = errors.New("no such contract")

	// ErrContractConflict indicates a deploy to an already deployed
	// address or a call to an address that was never deployed.
	ErrContractConflict = errors.New("contract deploy/call conflict")

	// ErrSubmitFailed indicates the consensus layer did not accept a
	// transaction.
	ErrSubmitFailed = errors.New("transaction submission failed")

	// ErrExecutionFailed indicates the byte code executor did not return
	// a new contract state.
	ErrExecutionFailed = errors.New("contract execution failed")
)
