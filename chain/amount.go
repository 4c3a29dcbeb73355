// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// AmountPrecision is the number of fraction units per integral unit.
	AmountPrecision uint64 = 1_000_000_000_000_000_000

	// WalletDenom is the denomination API amounts are expressed in.
	WalletDenom = AmountPrecision

	DefaultCurrency Currency = "CS"
)

type Currency string

func (c Currency) String() string {
	return string(c)
}

// Amount is a fixed point ledger value. Fraction is always kept in
// [0, AmountPrecision).
type Amount struct {
	Integral int32  `json:"integral"`
	Fraction uint64 `json:"fraction"`
}

var (
	ZeroAmount = Amount{}

	// NominalAmount is the transfer value attached to smart contract calls.
	NominalAmount = Amount{Integral: 1}
)

// NewAmount converts an amount whose fraction is given in 1/divider units
// into ledger precision. Excess fraction carries into the integral part.
func NewAmount(integral int32, fraction, divider uint64) Amount {
	if divider == 0 {
		divider = AmountPrecision
	}
	carry := fraction / divider
	rem := fraction % divider
	var frac uint64
	switch {
	case divider == AmountPrecision:
		frac = rem
	case AmountPrecision%divider == 0:
		frac = rem * (AmountPrecision / divider)
	default:
		frac = uint64(float64(rem) / float64(divider) * float64(AmountPrecision))
		if frac >= AmountPrecision {
			frac = AmountPrecision - 1
		}
	}
	return Amount{Integral: integral + int32(carry), Fraction: frac}
}

func (a Amount) IsZero() bool {
	return a.Integral == 0 && a.Fraction == 0
}

func (a Amount) IsNegative() bool {
	return a.Integral < 0
}

func (a Amount) Add(b Amount) Amount {
	r := Amount{
		Integral: a.Integral + b.Integral,
		Fraction: a.Fraction + b.Fraction,
	}
	if r.Fraction >= AmountPrecision {
		r.Fraction -= AmountPrecision
		r.Integral++
	}
	return r
}

func (a Amount) Sub(b Amount) Amount {
	r := Amount{Integral: a.Integral - b.Integral}
	if a.Fraction < b.Fraction {
		r.Integral--
		r.Fraction = AmountPrecision - b.Fraction + a.Fraction
	} else {
		r.Fraction = a.Fraction - b.Fraction
	}
	return r
}

func (a Amount) Cmp(b Amount) int {
	switch {
	case a.Integral < b.Integral:
		return -1
	case a.Integral > b.Integral:
		return 1
	case a.Fraction < b.Fraction:
		return -1
	case a.Fraction > b.Fraction:
		return 1
	}
	return 0
}

func (a Amount) Float64() float64 {
	return float64(a.Integral) + float64(a.Fraction)/float64(AmountPrecision)
}

func (a Amount) String() string {
	if a.Fraction == 0 {
		return strconv.FormatInt(int64(a.Integral), 10)
	}
	f := fmt.Sprintf("%018d", a.Fraction)
	return strconv.FormatInt(int64(a.Integral), 10) + "." + strings.TrimRight(f, "0")
}

// ParseAmount reads the decimal form produced by String.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	is, fs, _ := strings.Cut(s, ".")
	i, err := strconv.ParseInt(is, 10, 32)
	if err != nil {
		return a, fmt.Errorf("invalid amount %q: %v", s, err)
	}
	a.Integral = int32(i)
	if fs != "" {
		if len(fs) > 18 {
			return a, fmt.Errorf("invalid amount %q: fraction too long", s)
		}
		f, err := strconv.ParseUint(fs+strings.Repeat("0", 18-len(fs)), 10, 64)
		if err != nil {
			return a, fmt.Errorf("invalid amount %q: %v", s, err)
		}
		a.Fraction = f
	}
	return a, nil
}
