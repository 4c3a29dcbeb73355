// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/etl/model"
)

const DBName = "ledger.db"

var (
	blockBucket   = []byte("blocks")
	heightBucket  = []byte("heights")
	balanceBucket = []byte("balances")
	metaBucket    = []byte("meta")

	tipKey  = []byte("tip")
	sizeKey = []byte("size")
)

// Store is a bbolt backed ledger. Blocks are append-only, balances are
// updated when a block is appended.
type Store struct {
	db *bolt.DB
}

var _ Accessor = (*Store)(nil)

// Open opens or creates the ledger database below path.
func Open(path string, opts *bolt.Options) (*Store, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	fname := filepath.Join(path, DBName)
	db, err := bolt.Open(fname, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening %s: %w", fname, err)
	}
	if opts == nil || !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			for _, name := range [][]byte{blockBucket, heightBucket, balanceBucket, metaBucket} {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: creating buckets: %w", err)
		}
	}
	log.Debugf("Opened ledger %s", fname)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) view(fn func(tx *bolt.Tx) error) error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.View(fn)
}

// Init writes a genesis block minting the given allocations when the
// store is empty. It is a no-op on an existing chain.
func (s *Store) Init(ctx context.Context, alloc map[chain.Address]chain.Amount) error {
	tip, err := s.LastHash(ctx)
	if err != nil {
		return err
	}
	if tip.IsValid() {
		return nil
	}
	genesis := &model.Block{}
	genesis.SetTimestamp(time.Now().UTC())
	addrs := make([]chain.Address, 0, len(alloc))
	for addr := range alloc {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	for _, addr := range addrs {
		genesis.Transactions = append(genesis.Transactions, &model.Transaction{
			Source:   chain.ZeroAddress,
			Target:   addr,
			Amount:   alloc[addr],
			Currency: chain.DefaultCurrency,
		})
	}
	if _, err := s.AppendBlock(ctx, genesis); err != nil {
		return err
	}
	log.Infof("Created genesis block with %d allocations", len(alloc))
	return nil
}

// AppendBlock links b to the current tip, assigns height, hash and
// transaction ids and applies all transfers to stored balances.
func (s *Store) AppendBlock(ctx context.Context, b *model.Block) (*model.Block, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		tip := chain.NewBlockHash(meta.Get(tipKey))
		if b.PrevHash != tip {
			return fmt.Errorf("%w: prev=%s tip=%s", ErrBadLink, b.PrevHash, tip)
		}
		var size uint64
		if v := meta.Get(sizeKey); len(v) == 8 {
			size = binary.BigEndian.Uint64(v)
		}
		b.Height = size
		b.Hash = chain.ZeroHash
		pre, err := encodeBlock(b)
		if err != nil {
			return err
		}
		b.Hash = chain.BlockHash(sha256.Sum256(pre))
		for i, t := range b.Transactions {
			t.ID = chain.NewTxID(b.Hash, i)
		}
		buf, err := encodeBlock(b)
		if err != nil {
			return err
		}
		if err := tx.Bucket(blockBucket).Put(b.Hash.Bytes(), buf); err != nil {
			return err
		}
		var hkey [8]byte
		binary.BigEndian.PutUint64(hkey[:], size)
		if err := tx.Bucket(heightBucket).Put(hkey[:], b.Hash.Bytes()); err != nil {
			return err
		}
		bal := tx.Bucket(balanceBucket)
		for _, t := range b.Transactions {
			if t.Source.IsValid() {
				v := decodeAmount(bal.Get(t.Source.Bytes())).Sub(t.Amount)
				if err := bal.Put(t.Source.Bytes(), encodeAmount(v)); err != nil {
					return err
				}
			}
			v := decodeAmount(bal.Get(t.Target.Bytes())).Add(t.Amount)
			if err := bal.Put(t.Target.Bytes(), encodeAmount(v)); err != nil {
				return err
			}
		}
		var sz [8]byte
		binary.BigEndian.PutUint64(sz[:], size+1)
		if err := meta.Put(sizeKey, sz[:]); err != nil {
			return err
		}
		return meta.Put(tipKey, b.Hash.Bytes())
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("Appended block %d %s with %d txs", b.Height, b.Hash.Short(), b.TxCount())
	return b, nil
}

func (s *Store) BlockByHash(_ context.Context, hash chain.BlockHash) (*model.Block, error) {
	if !hash.IsValid() {
		return nil, ErrNoBlock
	}
	var b *model.Block
	err := s.view(func(tx *bolt.Tx) error {
		buf := tx.Bucket(blockBucket).Get(hash.Bytes())
		if buf == nil {
			return ErrNoBlock
		}
		// bolt memory is only valid inside the transaction
		var err error
		b, err = decodeBlock(append([]byte(nil), buf...))
		return err
	})
	return b, err
}

// BlockByHeight returns the block with sequence number height.
func (s *Store) BlockByHeight(ctx context.Context, height uint64) (*model.Block, error) {
	var h chain.BlockHash
	err := s.view(func(tx *bolt.Tx) error {
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], height)
		h = chain.NewBlockHash(tx.Bucket(heightBucket).Get(key[:]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.BlockByHash(ctx, h)
}

func (s *Store) LastHash(_ context.Context) (chain.BlockHash, error) {
	var h chain.BlockHash
	err := s.view(func(tx *bolt.Tx) error {
		h = chain.NewBlockHash(tx.Bucket(metaBucket).Get(tipKey))
		return nil
	})
	return h, err
}

func (s *Store) Size(_ context.Context) (uint64, error) {
	var n uint64
	err := s.view(func(tx *bolt.Tx) error {
		if v := tx.Bucket(metaBucket).Get(sizeKey); len(v) == 8 {
			n = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return n, err
}

func (s *Store) Transaction(ctx context.Context, id chain.TxID) (*model.Transaction, error) {
	b, err := s.BlockByHash(ctx, id.Block)
	if err != nil {
		if err == ErrNoBlock {
			return nil, ErrNoTransaction
		}
		return nil, err
	}
	t := b.Transaction(int(id.Index))
	if t == nil {
		return nil, ErrNoTransaction
	}
	return t, nil
}

func (s *Store) Balance(_ context.Context, addr chain.Address) (chain.Amount, error) {
	var a chain.Amount
	err := s.view(func(tx *bolt.Tx) error {
		a = decodeAmount(tx.Bucket(balanceBucket).Get(addr.Bytes()))
		return nil
	})
	return a, err
}

func (s *Store) AddressFromKey(key []byte) (chain.Address, error) {
	return chain.AddressFromKey(key)
}
