// Package network implements the gossip protocol between nodes. It owns
// every peer connection, dispatches inbound messages against the ledger
// and the mempool, and broadcasts outbound ones.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// AddressHeader carries the address a dialing node can be reached at.
const AddressHeader = "X-Node-Address"

// dialTimeout bounds a single outbound connection attempt.
const dialTimeout = 10 * time.Second

// Set of error variables for connecting to peers.
var (
	ErrSelfConnect    = errors.New("can't connect to self")
	ErrAlreadyKnown   = errors.New("peer already connected or dialing")
	ErrInvalidAddress = errors.New("peer address must be a ws:// or wss:// url")
)

// =============================================================================

// Dialer opens a websocket to the peer at the address.
type Dialer func(ctx context.Context, address string, header http.Header) (*websocket.Conn, error)

// DefaultDialer dials using the gorilla websocket default dialer.
func DefaultDialer(ctx context.Context, address string, header http.Header) (*websocket.Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, address, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	return ws, err
}

// Hooks are called after the network changes the ledger or the mempool.
type Hooks struct {
	BlockAccepted       func(block ledger.Block)
	ChainReplaced       func(blocks []ledger.Block)
	TransactionAccepted func(tx ledger.Transaction)
}

// ConsensusHandler validates and applies the payload of a CONSENSUS
// message. Returning nil gossips the message on to the other peers.
type ConsensusHandler func(fromID string, payload json.RawMessage) error

// Config represents the configuration required to start the network.
type Config struct {
	Host              string
	Ledger            *ledger.Ledger
	Mempool           *mempool.Mempool
	Hooks             Hooks
	Post              func(fn func()) bool
	Dialer            Dialer
	StaleThreshold    time.Duration
	PingInterval      time.Duration
	SendQueueSize     int
	ReconnectAttempts int
	ReconnectBackoff  time.Duration
	EvHandler         func(v string, args ...any)
	Now               func() time.Time
}

// Network manages the set of peers. Apart from Accept, every method must be
// called from the goroutine that owns the ledger and the mempool, the Post
// function schedules work onto that goroutine.
type Network struct {
	host              string
	ledger            *ledger.Ledger
	mempool           *mempool.Mempool
	hooks             Hooks
	post              func(fn func()) bool
	dialer            Dialer
	staleThreshold    time.Duration
	pingInterval      time.Duration
	sendQueueSize     int
	reconnectAttempts int
	reconnectBackoff  time.Duration
	evHandler         func(v string, args ...any)
	now               func() time.Time

	peers     *peer.Registry
	dialing   map[string]struct{}
	consensus map[string]ConsensusHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a network with no peers.
func New(cfg Config) *Network {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	post := cfg.Post
	if post == nil {
		post = func(fn func()) bool {
			fn()
			return true
		}
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = DefaultDialer
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	n := Network{
		host:              cfg.Host,
		ledger:            cfg.Ledger,
		mempool:           cfg.Mempool,
		hooks:             cfg.Hooks,
		post:              post,
		dialer:            dialer,
		staleThreshold:    cfg.StaleThreshold,
		pingInterval:      cfg.PingInterval,
		sendQueueSize:     cfg.SendQueueSize,
		reconnectAttempts: cfg.ReconnectAttempts,
		reconnectBackoff:  cfg.ReconnectBackoff,
		evHandler:         ev,
		now:               now,
		peers:             peer.NewRegistry(),
		dialing:           make(map[string]struct{}),
		consensus:         make(map[string]ConsensusHandler),
		ctx:               ctx,
		cancel:            cancel,
	}

	n.RegisterConsensus(ConsensusPOW, n.powCandidate)

	return &n
}

// Shutdown closes every peer connection and waits for the connection
// goroutines to finish. It must be called once the owning goroutine has
// stopped processing posted work.
func (n *Network) Shutdown() {
	n.evHandler("network: shutdown: started")
	defer n.evHandler("network: shutdown: completed")

	n.cancel()

	for _, p := range n.peers.Copy() {
		n.peers.Remove(p.ID)
	}

	n.wg.Wait()
}

// Peers returns the connected peers.
func (n *Network) Peers() []peer.Peer {
	return n.peers.Copy()
}

// =============================================================================

// Accept takes an upgraded inbound websocket and registers it as a peer.
// It can be called from any goroutine.
func (n *Network) Accept(ws *websocket.Conn, address string) {
	id := uuid.NewString()
	c := newWSConn(ws, n.sendQueueSize)

	if n.ctx.Err() != nil {
		c.Close()
		return
	}

	attach := func() {
		n.Attach(id, address, false, c)
		n.serve(id, c)
	}

	if !n.post(attach) {
		c.Close()
	}
}

// Connect starts an outbound connection to the peer at the address. The
// dial happens in the background, the peer is registered once connected.
func (n *Network) Connect(address string) error {
	if !strings.HasPrefix(address, "ws://") && !strings.HasPrefix(address, "wss://") {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	if address == n.host {
		return ErrSelfConnect
	}

	if _, exists := n.dialing[address]; exists || n.peers.HasAddress(address) {
		return ErrAlreadyKnown
	}

	n.dialing[address] = struct{}{}
	n.evHandler("network: Connect: dialing: address[%s]", address)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ws, err := n.dial(address)
		if err != nil {
			n.evHandler("network: Connect: address[%s]: ERROR: %s", address, err)
			n.post(func() {
				delete(n.dialing, address)
			})
			return
		}

		id := uuid.NewString()
		c := newWSConn(ws, n.sendQueueSize)

		attach := func() {
			delete(n.dialing, address)
			n.Attach(id, address, true, c)
			n.serve(id, c)
		}

		if !n.post(attach) {
			c.Close()
		}
	}()

	return nil
}

// dial opens the websocket, retrying with a linear backoff when reconnect
// attempts are configured.
func (n *Network) dial(address string) (*websocket.Conn, error) {
	header := http.Header{}
	if n.host != "" {
		header.Set(AddressHeader, n.host)
	}

	var err error
	for attempt := 0; attempt <= n.reconnectAttempts; attempt++ {
		if attempt > 0 {
			n.evHandler("network: dial: address[%s]: retry[%d]", address, attempt)

			select {
			case <-time.After(time.Duration(attempt) * n.reconnectBackoff):
			case <-n.ctx.Done():
				return nil, n.ctx.Err()
			}
		}

		ctx, cancel := context.WithTimeout(n.ctx, dialTimeout)
		var ws *websocket.Conn
		ws, err = n.dialer(ctx, address, header)
		cancel()

		if err == nil {
			return ws, nil
		}
	}

	return nil, err
}

// serve starts the goroutines moving frames for the connection. Inbound
// frames are posted to the owning goroutine. It runs on the owning
// goroutine so the wait group is never grown while Shutdown waits on it.
func (n *Network) serve(id string, c *wsConn) {
	n.wg.Add(2)

	go func() {
		defer n.wg.Done()
		c.writeLoop(n.pingInterval)
	}()

	go func() {
		defer n.wg.Done()

		onMessage := func(data []byte) {
			n.post(func() {
				n.HandleMessage(id, data)
			})
		}

		onPong := func() {
			n.post(func() {
				n.peers.Touch(id, n.now())
			})
		}

		onClose := func(err error) {
			n.post(func() {
				n.Disconnect(id, err)
			})
		}

		c.readLoop(onMessage, onPong, onClose)
	}()
}

// =============================================================================

// Attach registers the connection as a peer and bootstraps it with the
// local chain. Outbound peers are also asked for their peer list.
func (n *Network) Attach(id string, address string, outbound bool, conn peer.Conn) peer.Peer {
	p := n.peers.Add(id, address, outbound, conn, n.now())
	n.evHandler("network: Attach: peer[%s]: outbound[%t]: peers[%d]", p, outbound, n.peers.Len())

	n.sendTo(id, TypeChain, n.ledger.Blocks())

	if outbound {
		n.sendTo(id, TypePeerRequest, nil)
	}

	return p
}

// Disconnect deregisters the peer and closes its connection.
func (n *Network) Disconnect(id string, reason error) {
	p, exists := n.peers.Remove(id)
	if !exists {
		return
	}

	n.evHandler("network: Disconnect: peer[%s]: reason[%v]: peers[%d]", p, reason, n.peers.Len())
}

// Sweep removes the peers that have not been seen within the staleness
// threshold and closes their connections.
func (n *Network) Sweep() {
	if n.staleThreshold <= 0 {
		return
	}

	for _, id := range n.peers.Stale(n.staleThreshold, n.now()) {
		if p, exists := n.peers.Remove(id); exists {
			n.evHandler("network: Sweep: removed stale peer[%s]: lastSeen[%s]", p, p.LastSeen.Format(time.RFC3339))
		}
	}
}

// Broadcast sends the message to every peer except the one at excludeID.
// Peers that can't take the message are skipped. The number of peers the
// message was queued for is returned.
func (n *Network) Broadcast(msg Message, excludeID string) int {
	data, err := msg.Encode()
	if err != nil {
		n.evHandler("network: Broadcast: type[%s]: ERROR: %s", msg.Type, err)
		return 0
	}

	return n.broadcastRaw(msg.Type, data, excludeID)
}

// BroadcastBlock shares a locally produced block with every peer.
func (n *Network) BroadcastBlock(block ledger.Block) int {
	msg, err := NewMessage(TypeBlock, block)
	if err != nil {
		n.evHandler("network: BroadcastBlock: ERROR: %s", err)
		return 0
	}

	return n.Broadcast(msg, "")
}

// BroadcastTransaction shares a locally submitted transaction with every peer.
func (n *Network) BroadcastTransaction(tx ledger.Transaction) int {
	msg, err := NewMessage(TypeTransaction, tx)
	if err != nil {
		n.evHandler("network: BroadcastTransaction: ERROR: %s", err)
		return 0
	}

	return n.Broadcast(msg, "")
}

// broadcastRaw sends already encoded data to every peer except excludeID.
func (n *Network) broadcastRaw(typ Type, data []byte, excludeID string) int {
	var sent int
	for _, p := range n.peers.Copy() {
		if p.ID == excludeID {
			continue
		}

		if err := n.peers.Send(p.ID, data); err != nil {
			n.evHandler("network: Broadcast: type[%s]: peer[%s]: WARNING: %s", typ, p, err)
			if errors.Is(err, ErrConnClosed) {
				n.Disconnect(p.ID, err)
			}
			continue
		}
		sent++
	}

	n.evHandler("network: Broadcast: type[%s]: sent[%d]", typ, sent)

	return sent
}

// sendTo sends a single message to the specified peer.
func (n *Network) sendTo(id string, typ Type, payload any) {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		n.evHandler("network: sendTo: peer[%s]: ERROR: %s", id, err)
		return
	}

	data, err := msg.Encode()
	if err != nil {
		n.evHandler("network: sendTo: peer[%s]: ERROR: %s", id, err)
		return
	}

	if err := n.peers.Send(id, data); err != nil {
		n.evHandler("network: sendTo: type[%s]: peer[%s]: WARNING: %s", typ, id, err)
		if errors.Is(err, ErrConnClosed) {
			n.Disconnect(id, err)
		}
	}
}
