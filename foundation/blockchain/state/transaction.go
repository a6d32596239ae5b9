package state

import (
	"context"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
)

// SubmitTransaction accepts a transaction from a client of this node. It is
// validated, added to the mempool and shared with every peer.
func (s *State) SubmitTransaction(ctx context.Context, tx ledger.Transaction) error {
	var err error
	if derr := s.do(ctx, func() { err = s.submitTransaction(tx) }); derr != nil {
		return derr
	}

	return err
}

func (s *State) submitTransaction(tx ledger.Transaction) error {
	s.evHandler("state: SubmitTransaction: started: tx[%s]", tx)
	defer s.evHandler("state: SubmitTransaction: completed")

	if err := s.mempool.Validate(tx); err != nil {
		return err
	}

	n := s.mempool.Upsert(tx)
	s.evHandler("state: SubmitTransaction: mempool[%d]", n)

	s.notifier.TransactionAccepted(tx)
	s.net.BroadcastTransaction(tx)
	s.autoMineIfEnabled()

	return nil
}
