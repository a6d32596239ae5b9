package ledger

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/merkle"
)

// Hash returns the merkle leaf hash of the transaction.
func (tx Transaction) Hash() ([]byte, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	h := sha256.Sum256(data)
	return h[:], nil
}

// leaves returns the merkle leaf hashes of the block's transactions.
func (b Block) leaves() ([][]byte, error) {
	leaves := make([][]byte, len(b.Transactions))
	for i, tx := range b.Transactions {
		h, err := tx.Hash()
		if err != nil {
			return nil, err
		}
		leaves[i] = h
	}

	return leaves, nil
}

// TxProof returns the merkle inclusion proof for the transaction in the block.
func (b Block) TxProof(txID string) (merkle.Proof, error) {
	leaves, err := b.leaves()
	if err != nil {
		return merkle.Proof{}, err
	}

	for i, tx := range b.Transactions {
		if tx.ID == txID {
			return merkle.NewProof(leaves, i)
		}
	}

	return merkle.Proof{}, fmt.Errorf("%w: %s in block %d", ErrTxNotFound, txID, b.Index)
}

// TxProof finds the transaction on the chain and returns the block holding
// it along with the inclusion proof.
func (l *Ledger) TxProof(txID string) (Block, merkle.Proof, error) {
	for _, block := range l.blocks {
		p, err := block.TxProof(txID)
		if err == nil {
			return block, p, nil
		}
	}

	return Block{}, merkle.Proof{}, fmt.Errorf("%w: %s", ErrTxNotFound, txID)
}
