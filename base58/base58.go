// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package base58 implements the bitcoin-style base58 alphabet used for
// public keys on the wire.
package base58

import (
	"errors"
	"math/big"
	"sync"
)

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ErrInvalidCharacter is returned when the input contains a symbol outside
// the base58 alphabet.
var ErrInvalidCharacter = errors.New("base58: invalid character")

var (
	bigRadix = big.NewInt(58)
	bigZero  = big.NewInt(0)
	decTable [256]byte
)

var intPool = &sync.Pool{
	New: func() any { return new(big.Int) },
}

func init() {
	for i := range decTable {
		decTable[i] = 0xff
	}
	for i := 0; i < len(alphabet); i++ {
		decTable[alphabet[i]] = byte(i)
	}
}

// Encode encodes b into a base58 string. Leading zero bytes are
// preserved as leading '1' symbols.
func Encode(b []byte) string {
	x := intPool.Get().(*big.Int).SetBytes(b)
	mod := intPool.Get().(*big.Int)
	defer func() {
		intPool.Put(x)
		intPool.Put(mod)
	}()

	out := make([]byte, 0, len(b)*138/100+1)
	for x.Cmp(bigZero) > 0 {
		x.DivMod(x, bigRadix, mod)
		out = append(out, alphabet[mod.Int64()])
	}
	for _, v := range b {
		if v != 0 {
			break
		}
		out = append(out, alphabet[0])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Decode decodes a base58 string. An empty input yields an empty slice.
func Decode(s string) ([]byte, error) {
	x := intPool.Get().(*big.Int).SetInt64(0)
	digit := intPool.Get().(*big.Int)
	defer func() {
		intPool.Put(x)
		intPool.Put(digit)
	}()

	for i := 0; i < len(s); i++ {
		v := decTable[s[i]]
		if v == 0xff {
			return nil, ErrInvalidCharacter
		}
		x.Mul(x, bigRadix)
		x.Add(x, digit.SetInt64(int64(v)))
	}

	var zeros int
	for zeros < len(s) && s[zeros] == alphabet[0] {
		zeros++
	}
	tail := x.Bytes()
	buf := make([]byte, zeros+len(tail))
	copy(buf[zeros:], tail)
	return buf, nil
}
