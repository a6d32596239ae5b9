package public

import (
	"time"

	"github.com/ardanlabs/gossipchain/business/sys/validate"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/merkle"
	"github.com/google/uuid"
)

// NewTx is what we require from clients when submitting a transaction. The
// id and timestamp are generated when left out.
type NewTx struct {
	ID        string `json:"id"`
	From      string `json:"from" validate:"required"`
	To        string `json:"to" validate:"required"`
	Amount    uint64 `json:"amount" validate:"required"`
	TimeStamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// Validate checks the data in the model is considered clean.
func (ntx NewTx) Validate() error {
	return validate.Check(ntx)
}

func (ntx NewTx) toLedger(now time.Time) ledger.Transaction {
	tx := ledger.Transaction{
		ID:        ntx.ID,
		From:      ntx.From,
		To:        ntx.To,
		Amount:    ntx.Amount,
		TimeStamp: ntx.TimeStamp,
		Signature: ntx.Signature,
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	if tx.TimeStamp == 0 {
		tx.TimeStamp = now.UnixMilli()
	}

	return tx
}

// ConnectPeer is what we require to connect to another node.
type ConnectPeer struct {
	Address string `json:"address" validate:"required,url"`
}

// Validate checks the data in the model is considered clean.
func (cp ConnectPeer) Validate() error {
	return validate.Check(cp)
}

type balance struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

type txProof struct {
	BlockIndex uint64       `json:"block_index"`
	BlockHash  string       `json:"block_hash"`
	Proof      merkle.Proof `json:"proof"`
}

type status struct {
	Status string `json:"status"`
}
