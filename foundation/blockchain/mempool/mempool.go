// Package mempool maintains the pool of unconfirmed transactions waiting
// to be included in a block.
package mempool

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
)

// Set of error variables returned by transaction validation.
var (
	ErrMissingParty  = errors.New("transaction requires a from and to account")
	ErrInvalidAmount = errors.New("transaction amount must be positive and within the max amount")
	ErrDuplicate     = errors.New("transaction with the same content already in the pool")
)

// Verifier checks the signature of a transaction. The core does not
// verify signatures itself, the node decides what to plug in.
type Verifier func(tx ledger.Transaction) error

// Config represents the configuration required to construct a mempool.
type Config struct {
	MaxSize  int
	Verifier Verifier
}

// Mempool represents a bounded cache of transactions kept in arrival
// order. Identity for updates is the transaction id, identity for
// duplicate rejection is the content key. It is not safe for concurrent
// use, the node's event loop is the only owner.
type Mempool struct {
	pool    []ledger.Transaction
	maxSize int
	verify  Verifier
}

// New constructs a new mempool.
func New(cfg Config) (*Mempool, error) {
	if cfg.MaxSize < 1 {
		return nil, fmt.Errorf("max pool size must be at least 1, got %d", cfg.MaxSize)
	}

	mp := Mempool{
		pool:    make([]ledger.Transaction, 0, cfg.MaxSize),
		maxSize: cfg.MaxSize,
		verify:  cfg.Verifier,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	return len(mp.pool)
}

// Validate checks the shape of the transaction and makes sure no
// transaction with the same content key is already in the pool.
func (mp *Mempool) Validate(tx ledger.Transaction) error {
	if err := mp.check(tx); err != nil {
		return err
	}

	key := tx.ContentKey()
	for _, existing := range mp.pool {
		if existing.ContentKey() == key {
			return fmt.Errorf("%w: %s", ErrDuplicate, existing.ID)
		}
	}

	return nil
}

// Upsert adds or replaces a transaction in the mempool. A transaction with
// a known id is overwritten in place, otherwise it is appended and the
// oldest transaction is evicted when the pool is full. The number of
// transactions in the pool is returned.
func (mp *Mempool) Upsert(tx ledger.Transaction) int {
	for i := range mp.pool {
		if mp.pool[i].ID == tx.ID {
			mp.pool[i] = tx
			return len(mp.pool)
		}
	}

	if len(mp.pool) >= mp.maxSize {
		copy(mp.pool, mp.pool[1:])
		mp.pool = mp.pool[:len(mp.pool)-1]
	}

	mp.pool = append(mp.pool, tx)

	return len(mp.pool)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.pool = make([]ledger.Transaction, 0, mp.maxSize)
}

// PickValid returns the transactions that can go into the next block. Each
// content key is only picked once, the oldest entry wins.
func (mp *Mempool) PickValid() []ledger.Transaction {
	seen := make(map[string]struct{}, len(mp.pool))
	trans := make([]ledger.Transaction, 0, len(mp.pool))

	for _, tx := range mp.pool {
		if err := mp.check(tx); err != nil {
			continue
		}

		key := tx.ContentKey()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}

		trans = append(trans, tx)
	}

	return trans
}

// Copy returns a copy of the transactions in arrival order.
func (mp *Mempool) Copy() []ledger.Transaction {
	trans := make([]ledger.Transaction, len(mp.pool))
	copy(trans, mp.pool)

	return trans
}

// =============================================================================

// check performs the checks that don't depend on the pool contents.
func (mp *Mempool) check(tx ledger.Transaction) error {
	if tx.From == "" || tx.To == "" {
		return ErrMissingParty
	}

	if tx.Amount == 0 || tx.Amount > ledger.MaxAmount {
		return ErrInvalidAmount
	}

	if mp.verify != nil {
		if err := mp.verify(tx); err != nil {
			return fmt.Errorf("verify signature: %w", err)
		}
	}

	return nil
}
