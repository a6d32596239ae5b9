// Package ledger holds the authoritative chain of blocks and enforces the
// consensus rules for extending and replacing it.
package ledger

import (
	"fmt"
	"math/big"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
)

// Selection identifies the rule used to decide if a candidate chain
// should replace the current chain.
type Selection string

// Set of supported chain selection rules.
const (
	SelectMostWork Selection = "work"
	SelectLongest  Selection = "length"
)

// ParseSelection converts the string into a chain selection rule.
func ParseSelection(s string) (Selection, error) {
	switch Selection(s) {
	case SelectMostWork, SelectLongest:
		return Selection(s), nil
	}

	return "", fmt.Errorf("unknown chain selection rule %q", s)
}

// =============================================================================

// Config represents the configuration required to construct a ledger.
type Config struct {
	Genesis   genesis.Genesis
	Selection Selection
	EvHandler func(v string, args ...any)
}

// Ledger manages the chain of blocks. It is not safe for concurrent use,
// the node's event loop is the only owner.
type Ledger struct {
	difficulty uint
	selection  Selection
	genesis    Block
	blocks     []Block
	evHandler  func(v string, args ...any)
}

// New constructs a ledger holding only the genesis block.
func New(cfg Config) *Ledger {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	selection := cfg.Selection
	if selection == "" {
		selection = SelectMostWork
	}

	gen := NewGenesisBlock(cfg.Genesis.Date)

	return &Ledger{
		difficulty: cfg.Genesis.Difficulty,
		selection:  selection,
		genesis:    gen,
		blocks:     []Block{gen},
		evHandler:  ev,
	}
}

// Difficulty returns the minimum difficulty a block must satisfy.
func (l *Ledger) Difficulty() uint {
	return l.difficulty
}

// Selection returns the chain selection rule in use.
func (l *Ledger) Selection() Selection {
	return l.selection
}

// Genesis returns the canonical genesis block.
func (l *Ledger) Genesis() Block {
	return l.genesis
}

// Tail returns the latest block in the chain.
func (l *Ledger) Tail() Block {
	return l.blocks[len(l.blocks)-1]
}

// Length returns the number of blocks in the chain including genesis.
func (l *Ledger) Length() int {
	return len(l.blocks)
}

// Blocks returns a copy of the chain.
func (l *Ledger) Blocks() []Block {
	blocks := make([]Block, len(l.blocks))
	copy(blocks, l.blocks)

	return blocks
}

// Work returns the cumulative work of the current chain.
func (l *Ledger) Work() *big.Int {
	return ChainWork(l.blocks)
}

// =============================================================================

// AppendBlock validates the block against the tail of the chain and if that
// passes, adds the block to the chain.
func (l *Ledger) AppendBlock(block Block) error {
	l.evHandler("ledger: AppendBlock: started: blk[%d]: hash[%s]", block.Index, block.Hash)

	if err := l.IsValidBlock(block, l.Tail()); err != nil {
		l.evHandler("ledger: AppendBlock: rejected: blk[%d]: %s", block.Index, err)
		return err
	}

	l.blocks = append(l.blocks, block)
	l.evHandler("ledger: AppendBlock: completed: length[%d]", len(l.blocks))

	return nil
}

// IsValidBlock takes a block and validates it to be the next block after
// the previous block.
func (l *Ledger) IsValidBlock(block Block, prevBlock Block) error {
	if block.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: declared difficulty %d above %d", ErrDifficultyRange, block.Difficulty, MaxDifficulty)
	}

	if block.PrevHash != prevBlock.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrPrevHashMismatch, block.PrevHash, prevBlock.Hash)
	}

	hash := block.ComputeHash()
	if block.Hash != hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidHash, block.Hash, hash)
	}

	if block.Difficulty < l.difficulty {
		return fmt.Errorf("%w: declared difficulty %d below %d", ErrHashNotSolved, block.Difficulty, l.difficulty)
	}

	if !IsHashSolved(block.Difficulty, block.Hash) {
		return fmt.Errorf("%w: %s at difficulty %d", ErrHashNotSolved, block.Hash, block.Difficulty)
	}

	if block.Index != prevBlock.Index+1 {
		return fmt.Errorf("%w: got %d, exp %d", ErrWrongIndex, block.Index, prevBlock.Index+1)
	}

	return nil
}

// IsValidChain validates every block of the candidate chain starting from
// the canonical genesis block.
func (l *Ledger) IsValidChain(candidate []Block) error {
	if len(candidate) == 0 {
		return ErrEmptyChain
	}

	if !candidate[0].equal(l.genesis) {
		return ErrInvalidGenesis
	}

	for i := 1; i < len(candidate); i++ {
		if err := l.IsValidBlock(candidate[i], candidate[i-1]); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	return nil
}

// ReplaceChain installs the candidate as the new chain if it is valid and it
// is preferred over the current chain by the selection rule. On any error
// the current chain is left untouched. The candidate is validated before
// the selection rule looks at its declared difficulties.
func (l *Ledger) ReplaceChain(candidate []Block) error {
	l.evHandler("ledger: ReplaceChain: started: current[%d]: candidate[%d]", len(l.blocks), len(candidate))

	if err := l.IsValidChain(candidate); err != nil {
		l.evHandler("ledger: ReplaceChain: rejected: %s", err)
		return err
	}

	if !l.preferred(candidate) {
		l.evHandler("ledger: ReplaceChain: rejected: rule[%s]", l.selection)
		return fmt.Errorf("%w: rule %s", ErrNotPreferred, l.selection)
	}

	blocks := make([]Block, len(candidate))
	copy(blocks, candidate)
	l.blocks = blocks

	l.evHandler("ledger: ReplaceChain: completed: length[%d]", len(l.blocks))

	return nil
}

// preferred applies the selection rule to the candidate chain.
func (l *Ledger) preferred(candidate []Block) bool {
	switch l.selection {
	case SelectLongest:
		return len(candidate) > len(l.blocks)

	default:
		return ChainWork(candidate).Cmp(ChainWork(l.blocks)) > 0
	}
}

// =============================================================================

// ChainWork returns the sum of the work of every block in the chain.
func ChainWork(blocks []Block) *big.Int {
	work := new(big.Int)
	for _, block := range blocks {
		work.Add(work, block.Work())
	}

	return work
}
