package state

import (
	"context"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/merkle"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/gorilla/websocket"
)

// Status represents a summary of the node.
type Status struct {
	Host        string `json:"host"`
	Beneficiary string `json:"beneficiary"`
	Length      int    `json:"length"`
	TailIndex   uint64 `json:"tail_index"`
	TailHash    string `json:"tail_hash"`
	Work        string `json:"work"`
	Difficulty  uint   `json:"difficulty"`
	Selection   string `json:"selection"`
	Miner       string `json:"miner"`
	Pool        int    `json:"pool"`
	Peers       int    `json:"peers"`
}

// ChainSnapshot returns a copy of the current chain.
func (s *State) ChainSnapshot(ctx context.Context) ([]ledger.Block, error) {
	var blocks []ledger.Block
	if err := s.do(ctx, func() { blocks = s.ledger.Blocks() }); err != nil {
		return nil, err
	}

	return blocks, nil
}

// PoolSnapshot returns a copy of the transactions in the mempool.
func (s *State) PoolSnapshot(ctx context.Context) ([]ledger.Transaction, error) {
	var trans []ledger.Transaction
	if err := s.do(ctx, func() { trans = s.mempool.Copy() }); err != nil {
		return nil, err
	}

	return trans, nil
}

// PeerList returns the connected peers.
func (s *State) PeerList(ctx context.Context) ([]peer.Peer, error) {
	var peers []peer.Peer
	if err := s.do(ctx, func() { peers = s.net.Peers() }); err != nil {
		return nil, err
	}

	return peers, nil
}

// Balance replays the chain to compute the balance of the account.
func (s *State) Balance(ctx context.Context, account string) (int64, error) {
	var balance int64
	if err := s.do(ctx, func() { balance = s.ledger.Balance(account) }); err != nil {
		return 0, err
	}

	return balance, nil
}

// Status returns a summary of the node.
func (s *State) Status(ctx context.Context) (Status, error) {
	var st Status
	f := func() {
		tail := s.ledger.Tail()
		st = Status{
			Host:        s.host,
			Beneficiary: s.beneficiaryID,
			Length:      s.ledger.Length(),
			TailIndex:   tail.Index,
			TailHash:    tail.Hash,
			Work:        s.ledger.Work().String(),
			Difficulty:  s.ledger.Difficulty(),
			Selection:   string(s.ledger.Selection()),
			Miner:       s.miner.Status().String(),
			Pool:        s.mempool.Count(),
			Peers:       len(s.net.Peers()),
		}
	}

	if err := s.do(ctx, f); err != nil {
		return Status{}, err
	}

	return st, nil
}

// =============================================================================

// ConnectToPeer starts an outbound connection to the peer at the address.
func (s *State) ConnectToPeer(ctx context.Context, address string) error {
	var err error
	if derr := s.do(ctx, func() { err = s.net.Connect(address) }); derr != nil {
		return derr
	}

	return err
}

// Accept registers an inbound peer connection. The address is the one the
// peer advertised, or its remote address when it advertised none.
func (s *State) Accept(ws *websocket.Conn, address string) {
	if address == "" {
		address = ws.RemoteAddr().String()
	}

	s.net.Accept(ws, address)
}

// TxProof returns the block holding the transaction and the merkle proof
// of its inclusion.
func (s *State) TxProof(ctx context.Context, txID string) (ledger.Block, merkle.Proof, error) {
	var block ledger.Block
	var proof merkle.Proof
	var err error

	if derr := s.do(ctx, func() { block, proof, err = s.ledger.TxProof(txID) }); derr != nil {
		return ledger.Block{}, merkle.Proof{}, derr
	}

	return block, proof, err
}
