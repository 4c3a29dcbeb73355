// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package etl

import (
	"context"
	"time"

	"blockwatch.cc/csapi/chain"
)

// StatsPeriods are the trailing windows reported by Stats, shortest first.
var StatsPeriods = []time.Duration{
	24 * time.Hour,
	7 * 24 * time.Hour,
	30 * 24 * time.Hour,
}

type PeriodStats struct {
	Period         int64                           `json:"period_duration"` // seconds
	Pools          int                             `json:"pools_count"`
	Transactions   int                             `json:"transactions_count"`
	SmartContracts int                             `json:"smart_contracts_count"`
	Volume         map[chain.Currency]chain.Amount `json:"balance_per_currency"`
}

// Stats aggregates pool, transaction, contract deploy counts and transfer
// volume per currency over each of the StatsPeriods. Pools without a
// timestamp are skipped.
func (m *Indexer) Stats(ctx context.Context) ([]PeriodStats, error) {
	now := m.now()
	res := make([]PeriodStats, len(StatsPeriods))
	for i, d := range StatsPeriods {
		res[i] = PeriodStats{
			Period: int64(d / time.Second),
			Volume: make(map[chain.Currency]chain.Amount),
		}
	}
	oldest := now.Add(-StatsPeriods[len(StatsPeriods)-1])

	head, err := m.ledger.LastHash(ctx)
	if err != nil {
		return nil, err
	}
	for h := head; h.IsValid(); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := m.ledger.BlockByHash(ctx, h)
		if err != nil {
			return nil, err
		}
		h = b.PrevHash
		ts := b.Timestamp()
		if ts.IsZero() {
			continue
		}
		if ts.Before(oldest) {
			break
		}
		var deploys int
		for _, tx := range b.Transactions {
			if sc, err := m.index.Contract(tx); err == nil && sc.IsDeploy() {
				deploys++
			}
		}
		for i, d := range StatsPeriods {
			if ts.Before(now.Add(-d)) {
				continue
			}
			s := &res[i]
			s.Pools++
			s.Transactions += len(b.Transactions)
			s.SmartContracts += deploys
			for _, tx := range b.Transactions {
				cur := tx.Currency
				if cur == "" {
					cur = chain.DefaultCurrency
				}
				s.Volume[cur] = s.Volume[cur].Add(tx.Amount)
			}
		}
	}
	return res, nil
}
