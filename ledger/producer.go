// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
)

// Producer is a single node consensus stand-in for local networks. Every
// accepted transaction is sealed into its own block.
type Producer struct {
	sync.Mutex
	store *Store
	now   func() time.Time
}

func NewProducer(s *Store) *Producer {
	return &Producer{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SendTransaction validates tx against the current balance of its source
// and appends a new block holding it. On success tx.ID is set.
func (p *Producer) SendTransaction(ctx context.Context, tx *model.Transaction) error {
	if !tx.Source.IsValid() || !tx.Target.IsValid() {
		return fmt.Errorf("ledger: %w", chain.ErrInvalidAddress)
	}
	if tx.Amount.IsNegative() {
		return fmt.Errorf("ledger: negative amount %s", tx.Amount)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p.Lock()
	defer p.Unlock()

	bal, err := p.store.Balance(ctx, tx.Source)
	if err != nil {
		return err
	}
	if bal.Cmp(tx.Amount) < 0 {
		return fmt.Errorf("%w: have=%s want=%s", ErrInsufficientBalance, bal, tx.Amount)
	}
	tip, err := p.store.LastHash(ctx)
	if err != nil {
		return err
	}
	b := &model.Block{
		PrevHash:     tip,
		Transactions: []*model.Transaction{tx.Clone()},
	}
	b.SetTimestamp(p.now())
	if _, err := p.store.AppendBlock(ctx, b); err != nil {
		return err
	}
	tx.ID = b.Transactions[0].ID
	log.Debugf("Sealed tx %s -> %s amount=%s in block %d", tx.Source, tx.Target, tx.Amount, b.Height)
	return nil
}
