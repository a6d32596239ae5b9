package network

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
)

// ConsensusPOW identifies the proof of work consensus handler.
const ConsensusPOW = "POW"

// RegisterConsensus binds the handler to CONSENSUS messages of the kind.
// An existing handler for the kind is replaced.
func (n *Network) RegisterConsensus(kind string, handler ConsensusHandler) {
	n.consensus[kind] = handler
}

// HandleMessage processes a single frame received from the peer. Frames
// from peers that are no longer registered are dropped. Invalid content
// is logged and dropped, the peer stays connected.
func (n *Network) HandleMessage(fromID string, data []byte) {
	if !n.peers.Touch(fromID, n.now()) {
		n.evHandler("network: HandleMessage: peer[%s]: dropped frame from unknown peer", fromID)
		return
	}

	msg, err := Decode(data)
	if err != nil {
		n.evHandler("network: HandleMessage: peer[%s]: malformed: ERROR: %s", fromID, err)
		return
	}

	n.evHandler("network: HandleMessage: peer[%s]: type[%s]", fromID, msg.Type)

	switch msg.Type {
	case TypeChain:
		err = n.handleChain(msg)

	case TypeBlock:
		err = n.handleBlock(fromID, msg, data)

	case TypeTransaction:
		err = n.handleTransaction(fromID, msg, data)

	case TypePeerRequest:
		err = n.handlePeerRequest(fromID)

	case TypePeerList:
		err = n.handlePeerList(msg)

	case TypeConsensus:
		err = n.handleConsensus(fromID, msg, data)

	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}

	if err != nil {
		n.evHandler("network: HandleMessage: peer[%s]: type[%s]: WARNING: %s", fromID, msg.Type, err)
	}
}

// =============================================================================

// handleChain replaces the local chain when the candidate wins the chain
// selection rule.
func (n *Network) handleChain(msg Message) error {
	var blocks []ledger.Block
	if err := msg.Decode(&blocks); err != nil {
		return err
	}

	if err := n.ledger.ReplaceChain(blocks); err != nil {
		return err
	}

	if n.hooks.ChainReplaced != nil {
		n.hooks.ChainReplaced(n.ledger.Blocks())
	}

	return nil
}

// handleBlock appends a block produced by another node and gossips it on.
func (n *Network) handleBlock(fromID string, msg Message, data []byte) error {
	var block ledger.Block
	if err := msg.Decode(&block); err != nil {
		return err
	}

	if err := n.acceptBlock(block); err != nil {
		return err
	}

	n.broadcastRaw(msg.Type, data, fromID)

	return nil
}

// acceptBlock appends the block to the ledger and clears the pool.
func (n *Network) acceptBlock(block ledger.Block) error {
	if err := n.ledger.AppendBlock(block); err != nil {
		return err
	}

	n.mempool.Truncate()

	if n.hooks.BlockAccepted != nil {
		n.hooks.BlockAccepted(block)
	}

	return nil
}

// handleTransaction adds the transaction to the pool and gossips it on.
func (n *Network) handleTransaction(fromID string, msg Message, data []byte) error {
	var tx ledger.Transaction
	if err := msg.Decode(&tx); err != nil {
		return err
	}

	if err := n.mempool.Validate(tx); err != nil {
		return err
	}

	n.mempool.Upsert(tx)

	if n.hooks.TransactionAccepted != nil {
		n.hooks.TransactionAccepted(tx)
	}

	n.broadcastRaw(msg.Type, data, fromID)

	return nil
}

// handlePeerRequest replies with the addresses of every other peer.
func (n *Network) handlePeerRequest(fromID string) error {
	var list []PeerAddr
	for _, p := range n.peers.Copy() {
		if p.ID == fromID {
			continue
		}
		list = append(list, PeerAddr{ID: p.ID, Address: p.Address})
	}

	if list == nil {
		list = []PeerAddr{}
	}

	n.sendTo(fromID, TypePeerList, list)

	return nil
}

// handlePeerList connects to the listed peers that are dialable and not
// already known.
func (n *Network) handlePeerList(msg Message) error {
	var list []PeerAddr
	if err := msg.Decode(&list); err != nil {
		return err
	}

	for _, pa := range list {
		if !n.dialable(pa.Address) {
			continue
		}

		if err := n.Connect(pa.Address); err != nil {
			n.evHandler("network: handlePeerList: address[%s]: %s", pa.Address, err)
		}
	}

	return nil
}

// dialable reports if the address is a websocket url for a host other
// than this node.
func (n *Network) dialable(address string) bool {
	if !strings.HasPrefix(address, "ws://") && !strings.HasPrefix(address, "wss://") {
		return false
	}

	if n.host == "" {
		return true
	}

	u, err := url.Parse(address)
	if err != nil {
		return false
	}

	self, err := url.Parse(n.host)
	if err != nil {
		return true
	}

	return u.Host != self.Host
}

// handleConsensus dispatches the payload to the handler registered for its
// kind and gossips the message on once the handler accepts it.
func (n *Network) handleConsensus(fromID string, msg Message, data []byte) error {
	var cm Consensus
	if err := msg.Decode(&cm); err != nil {
		return err
	}

	handler, exists := n.consensus[cm.Kind]
	if !exists {
		return fmt.Errorf("no consensus handler for kind %q", cm.Kind)
	}

	if err := handler(fromID, cm.Payload); err != nil {
		return fmt.Errorf("consensus %s: %w", cm.Kind, err)
	}

	n.broadcastRaw(msg.Type, data, fromID)

	return nil
}

// powCandidate handles a proof of work candidate block.
func (n *Network) powCandidate(fromID string, payload json.RawMessage) error {
	var block ledger.Block
	if err := json.Unmarshal(payload, &block); err != nil {
		return fmt.Errorf("decoding candidate block: %w", err)
	}

	return n.acceptBlock(block)
}
