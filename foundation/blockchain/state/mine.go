package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/miner"
)

// Set of error variables for requesting a mining operation.
var (
	ErrMinerBusy      = miner.ErrBusy
	ErrNoTransactions = miner.ErrNoTransactions
)

// RequestMine starts a mining operation over the valid transactions in the
// mempool. The search runs in the background on the event loop.
func (s *State) RequestMine(ctx context.Context) error {
	var err error
	if derr := s.do(ctx, func() { err = s.startMining() }); derr != nil {
		return derr
	}

	return err
}

// =============================================================================

// startMining assembles the candidate block on top of the current tail.
func (s *State) startMining() error {
	if s.miner.Status() != miner.Idle {
		return ErrMinerBusy
	}

	trans := s.mempool.PickValid()
	if len(trans) == 0 {
		return ErrNoTransactions
	}

	args := miner.Args{
		Beneficiary:  s.beneficiaryID,
		Difficulty:   s.ledger.Difficulty(),
		MiningReward: s.genesis.MiningReward,
		PrevBlock:    s.ledger.Tail(),
		Trans:        trans,
	}

	if err := s.miner.Begin(args); err != nil {
		return fmt.Errorf("begin mining: %w", err)
	}

	return nil
}

// mineSlice advances the search by one slice. A solved block is appended
// to the ledger and broadcast to every peer.
func (s *State) mineSlice() {
	block, solved := s.miner.Step(s.miningSlice)
	if !solved {
		return
	}

	if err := s.ledger.AppendBlock(block); err != nil {
		s.evHandler("state: mineSlice: MINING: ERROR: %s", err)
		return
	}

	s.mempool.Truncate()
	s.notifier.BlockAccepted(block)

	sent := s.net.BroadcastBlock(block)
	s.evHandler("state: mineSlice: MINING: blk[%d]: hash[%s]: peers[%d]", block.Index, block.Hash, sent)
}

// =============================================================================
// These methods are bound as hooks for the network.

// blockAccepted is called after a block from a peer was appended.
func (s *State) blockAccepted(block ledger.Block) {
	if s.miner.Abort() {
		s.evHandler("state: blockAccepted: MINING: aborted for peer blk[%d]", block.Index)
	}

	s.notifier.BlockAccepted(block)
}

// chainReplaced is called after the chain was replaced by a peer's chain.
func (s *State) chainReplaced(blocks []ledger.Block) {
	if s.miner.Abort() {
		s.evHandler("state: chainReplaced: MINING: aborted for chain length[%d]", len(blocks))
	}

	s.notifier.ChainReplaced(blocks)
}

// transactionAccepted is called after a transaction from a peer was added
// to the mempool.
func (s *State) transactionAccepted(tx ledger.Transaction) {
	s.notifier.TransactionAccepted(tx)
	s.autoMineIfEnabled()
}

// autoMineIfEnabled starts mining when auto mining is on and the miner is
// free.
func (s *State) autoMineIfEnabled() {
	if !s.autoMine || s.miner.Status() != miner.Idle {
		return
	}

	if err := s.startMining(); err != nil {
		s.evHandler("state: autoMine: %s", err)
	}
}
