// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const HashLength = 32

var (
	// ErrInvalidHash describes an error where a block hash string does not
	// hold exactly 32 hex encoded bytes.
	ErrInvalidHash = errors.New("invalid block hash")

	// ErrInvalidTxID describes an error where a transaction id string
	// cannot be split into block hash and index.
	ErrInvalidTxID = errors.New("invalid transaction id")

	ZeroHash BlockHash
)

// BlockHash identifies a pool. The zero hash marks the absent predecessor
// of genesis.
type BlockHash [HashLength]byte

func NewBlockHash(b []byte) BlockHash {
	var h BlockHash
	copy(h[:], b)
	return h
}

func ParseBlockHash(s string) (BlockHash, error) {
	var h BlockHash
	if len(s) != 2*HashLength {
		return h, fmt.Errorf("%w: length %d", ErrInvalidHash, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return h, nil
}

func MustParseBlockHash(s string) BlockHash {
	h, err := ParseBlockHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h BlockHash) IsValid() bool {
	return h != ZeroHash
}

func (h BlockHash) Equal(h2 BlockHash) bool {
	return bytes.Equal(h[:], h2[:])
}

func (h BlockHash) Bytes() []byte {
	return h[:]
}

func (h BlockHash) String() string {
	return hex.EncodeToString(h[:])
}

func (h BlockHash) Short() string {
	s := h.String()
	return s[:8] + ".." + s[len(s)-8:]
}

func (h BlockHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *BlockHash) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*h = ZeroHash
		return nil
	}
	x, err := ParseBlockHash(string(data))
	if err != nil {
		return err
	}
	*h = x
	return nil
}

// TxID addresses a transaction by its containing pool and position.
type TxID struct {
	Block BlockHash
	Index uint32
}

func NewTxID(h BlockHash, idx int) TxID {
	return TxID{Block: h, Index: uint32(idx)}
}

// ParseTxID accepts "<hash>.<index>" and a bare "<hash>" which refers to
// the first transaction in the pool.
func ParseTxID(s string) (TxID, error) {
	var id TxID
	hs, is, ok := strings.Cut(s, ".")
	h, err := ParseBlockHash(hs)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidTxID, err)
	}
	id.Block = h
	if ok {
		n, err := strconv.ParseUint(is, 10, 32)
		if err != nil {
			return id, fmt.Errorf("%w: bad index %q", ErrInvalidTxID, is)
		}
		id.Index = uint32(n)
	}
	return id, nil
}

func (id TxID) IsValid() bool {
	return id.Block.IsValid()
}

func (id TxID) String() string {
	return id.Block.String() + "." + strconv.FormatUint(uint64(id.Index), 10)
}

func (id TxID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TxID) UnmarshalText(data []byte) error {
	x, err := ParseTxID(string(data))
	if err != nil {
		return err
	}
	*id = x
	return nil
}
