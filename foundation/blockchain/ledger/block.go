package ledger

import (
	"math/big"
	"strings"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/signature"
)

// Block represents a group of transactions batched together.
type Block struct {
	Index        uint64        `json:"index"`        // Position in the chain, 0 is genesis.
	TimeStamp    int64         `json:"timestamp"`    // Unix milliseconds the block was assembled.
	Transactions []Transaction `json:"transactions"` // Ordered set of transactions.
	PrevHash     string        `json:"previousHash"` // Hash of the previous block in the chain.
	Hash         string        `json:"hash"`         // Hash over the hashed fields including the nonce.
	Nonce        uint64        `json:"nonce"`        // Value identified to solve the hash solution.
	Validator    string        `json:"validator"`    // Account of the node who produced the block.
	Difficulty   uint          `json:"difficulty"`   // Number of 0's the producer claims the hash has.
}

// hashedBlock is the set of block fields covered by the block hash.
type hashedBlock struct {
	Index        uint64        `json:"index"`
	TimeStamp    int64         `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PrevHash     string        `json:"previousHash"`
	Nonce        uint64        `json:"nonce"`
}

// NewGenesisBlock constructs the canonical first block of the chain.
func NewGenesisBlock(date time.Time) Block {
	b := Block{
		Index:        0,
		TimeStamp:    date.UTC().UnixMilli(),
		Transactions: []Transaction{},
		PrevHash:     signature.ZeroHash,
		Nonce:        0,
	}
	b.Hash = b.ComputeHash()

	return b
}

// ComputeHash recomputes the hash of the block from its hashed fields.
func (b Block) ComputeHash() string {
	trans := b.Transactions
	if trans == nil {
		trans = []Transaction{}
	}

	return signature.Hash(hashedBlock{
		Index:        b.Index,
		TimeStamp:    b.TimeStamp,
		Transactions: trans,
		PrevHash:     b.PrevHash,
		Nonce:        b.Nonce,
	})
}

// MaxDifficulty is the number of hex characters in a block hash and so the
// highest difficulty a hash can satisfy.
const MaxDifficulty = 64

// Work returns the expected number of hashes needed to produce this block
// at its declared difficulty. The genesis block carries no work. Declared
// difficulties above MaxDifficulty count as MaxDifficulty.
func (b Block) Work() *big.Int {
	if b.Index == 0 {
		return new(big.Int)
	}

	difficulty := b.Difficulty
	if difficulty > MaxDifficulty {
		difficulty = MaxDifficulty
	}

	return new(big.Int).Lsh(big.NewInt(1), 4*difficulty)
}

// equal performs a field by field comparison of two blocks.
func (b Block) equal(other Block) bool {
	if b.Index != other.Index ||
		b.TimeStamp != other.TimeStamp ||
		b.PrevHash != other.PrevHash ||
		b.Hash != other.Hash ||
		b.Nonce != other.Nonce ||
		b.Validator != other.Validator ||
		b.Difficulty != other.Difficulty ||
		len(b.Transactions) != len(other.Transactions) {
		return false
	}

	for i := range b.Transactions {
		if b.Transactions[i] != other.Transactions[i] {
			return false
		}
	}

	return true
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of 0's.
func IsHashSolved(difficulty uint, hash string) bool {
	if len(hash) != 64 || difficulty > MaxDifficulty {
		return false
	}

	return strings.HasPrefix(hash, strings.Repeat("0", int(difficulty)))
}
