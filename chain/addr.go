// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"blockwatch.cc/csapi/base58"
)

const (
	AddressLength = 32

	// canonical addresses are hex encoded on the wire
	canonicalLength = 2 * AddressLength
)

var (
	// ErrInvalidAddress describes an error where an address string neither
	// decodes as canonical hex nor as a public key.
	ErrInvalidAddress = errors.New("invalid address")

	ZeroAddress Address
)

// Address identifies an account or a smart contract. It is the raw
// 32 byte public key of the account.
type Address [AddressLength]byte

func NewAddress(b []byte) Address {
	var a Address
	copy(a[:], b)
	return a
}

// AddressFromKey derives the canonical address from a raw public key.
func AddressFromKey(key []byte) (Address, error) {
	var a Address
	if len(key) != AddressLength {
		return a, fmt.Errorf("%w: key length %d", ErrInvalidAddress, len(key))
	}
	copy(a[:], key)
	if !a.IsValid() {
		return a, ErrInvalidAddress
	}
	return a, nil
}

// DecodeKey decodes a text encoded public key. Base58 is tried first,
// standard base64 second.
func DecodeKey(s string) ([]byte, error) {
	if len(s) == 0 {
		return nil, ErrInvalidAddress
	}
	if buf, err := base58.Decode(s); err == nil && len(buf) == AddressLength {
		return buf, nil
	}
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return buf, nil
}

// ParseAddress accepts the canonical 64 char hex form. Any other input is
// treated as an encoded public key.
func ParseAddress(s string) (Address, error) {
	if len(s) == canonicalLength {
		var a Address
		if _, err := hex.Decode(a[:], []byte(s)); err != nil {
			return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		if !a.IsValid() {
			return a, ErrInvalidAddress
		}
		return a, nil
	}
	key, err := DecodeKey(s)
	if err != nil {
		return ZeroAddress, err
	}
	return AddressFromKey(key)
}

func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) IsValid() bool {
	return a != ZeroAddress
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Key returns the base58 public key form.
func (a Address) Key() string {
	return base58.Encode(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return []byte{}, nil
	}
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = ZeroAddress
		return nil
	}
	x, err := ParseAddress(string(data))
	if err != nil {
		return err
	}
	*a = x
	return nil
}
