package ledger

import "errors"

// Set of error variables returned by the validation rules.
var (
	ErrPrevHashMismatch = errors.New("previous hash does not match the tail of the chain")
	ErrInvalidHash      = errors.New("stored hash does not match the recomputed hash")
	ErrHashNotSolved    = errors.New("hash does not satisfy the difficulty target")
	ErrDifficultyRange  = errors.New("declared difficulty is out of range")
	ErrWrongIndex       = errors.New("block is not the next index")
	ErrInvalidGenesis   = errors.New("first block is not the canonical genesis block")
	ErrEmptyChain       = errors.New("chain has no blocks")
	ErrNotPreferred     = errors.New("chain does not beat the current chain")
	ErrTxNotFound       = errors.New("transaction not found")
)
