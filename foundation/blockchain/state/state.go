// Package state is the core API for the blockchain and implements all the
// business rules and processing. A single goroutine owns the ledger, the
// mempool, the miner and the peers. Everything else hands work to it.
package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/miner"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/network"
)

// inboxSize is the number of pending events the loop can hold before
// posting goroutines block.
const inboxSize = 1024

// Set of default values used when the configuration leaves them out.
const (
	defaultMaxPoolSize = 100
	defaultMiningSlice = 50 * time.Millisecond
)

// ErrShutdown is returned when the node is no longer processing requests.
var ErrShutdown = errors.New("node is shutting down")

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the blockchain.
type EventHandler func(v string, args ...any)

// Notifier is told about changes made to the ledger and the mempool. The
// calls happen on the event loop and must not block.
type Notifier interface {
	ChainReplaced(blocks []ledger.Block)
	BlockAccepted(block ledger.Block)
	TransactionAccepted(tx ledger.Transaction)
}

type nopNotifier struct{}

func (nopNotifier) ChainReplaced([]ledger.Block) {}
func (nopNotifier) BlockAccepted(ledger.Block) {}
func (nopNotifier) TransactionAccepted(ledger.Transaction) {}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	BeneficiaryID     string
	Host              string
	Genesis           genesis.Genesis
	Selection         ledger.Selection
	MaxPoolSize       int
	StaleThreshold    time.Duration
	SweepInterval     time.Duration
	MiningSlice       time.Duration
	PingInterval      time.Duration
	SendQueueSize     int
	ReconnectAttempts int
	ReconnectBackoff  time.Duration
	AutoMine          bool
	Verifier          mempool.Verifier
	Dialer            network.Dialer
	EvHandler         EventHandler
	Notifier          Notifier
}

// State manages the blockchain for the node.
type State struct {
	beneficiaryID string
	host          string
	genesis       genesis.Genesis
	miningSlice   time.Duration
	sweepInterval time.Duration
	autoMine      bool
	evHandler     EventHandler
	notifier      Notifier

	ledger  *ledger.Ledger
	mempool *mempool.Mempool
	miner   *miner.Miner
	net     *network.Network

	inbox    chan func()
	shut     chan struct{}
	done     chan struct{}
	shutOnce sync.Once
}

// New constructs the node state and starts the event loop.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.BeneficiaryID == "" {
		return nil, errors.New("beneficiary account is required")
	}

	maxPoolSize := cfg.MaxPoolSize
	if maxPoolSize == 0 {
		maxPoolSize = defaultMaxPoolSize
	}

	mp, err := mempool.New(mempool.Config{
		MaxSize:  maxPoolSize,
		Verifier: cfg.Verifier,
	})
	if err != nil {
		return nil, err
	}

	miningSlice := cfg.MiningSlice
	if miningSlice <= 0 {
		miningSlice = defaultMiningSlice
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	s := State{
		beneficiaryID: cfg.BeneficiaryID,
		host:          cfg.Host,
		genesis:       cfg.Genesis,
		miningSlice:   miningSlice,
		sweepInterval: cfg.SweepInterval,
		autoMine:      cfg.AutoMine,
		evHandler:     ev,
		notifier:      notifier,

		ledger: ledger.New(ledger.Config{
			Genesis:   cfg.Genesis,
			Selection: cfg.Selection,
			EvHandler: ev,
		}),
		mempool: mp,
		miner:   miner.New(ev),

		inbox: make(chan func(), inboxSize),
		shut:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	s.net = network.New(network.Config{
		Host:    cfg.Host,
		Ledger:  s.ledger,
		Mempool: s.mempool,
		Hooks: network.Hooks{
			BlockAccepted:       s.blockAccepted,
			ChainReplaced:       s.chainReplaced,
			TransactionAccepted: s.transactionAccepted,
		},
		Post:              s.post,
		Dialer:            cfg.Dialer,
		StaleThreshold:    cfg.StaleThreshold,
		PingInterval:      cfg.PingInterval,
		SendQueueSize:     cfg.SendQueueSize,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectBackoff:  cfg.ReconnectBackoff,
		EvHandler:         ev,
	})

	go s.run()

	return &s, nil
}

// Shutdown stops the event loop and closes every peer connection.
func (s *State) Shutdown() {
	s.shutOnce.Do(func() {
		s.evHandler("state: shutdown: started")
		defer s.evHandler("state: shutdown: completed")

		close(s.shut)
		<-s.done

		s.net.Shutdown()
	})
}

// Genesis returns the chain parameters the node runs with.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// Host returns the address peers can reach this node at.
func (s *State) Host() string {
	return s.host
}

// =============================================================================

// run is the event loop. It executes posted work in order and runs one
// mining slice whenever a search is in progress and nothing is pending.
func (s *State) run() {
	s.evHandler("state: run: event loop started")
	defer func() {
		s.evHandler("state: run: event loop stopped")
		close(s.done)
	}()

	var sweep <-chan time.Time
	if s.sweepInterval > 0 {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		if s.miner.Status() == miner.Searching {
			select {
			case fn := <-s.inbox:
				fn()
			case <-sweep:
				s.net.Sweep()
			case <-s.shut:
				s.miner.Abort()
				return
			default:
				s.mineSlice()
			}
			continue
		}

		select {
		case fn := <-s.inbox:
			fn()
		case <-sweep:
			s.net.Sweep()
		case <-s.shut:
			return
		}
	}
}

// post queues the function for execution on the event loop. It reports
// false once the node is shutting down.
func (s *State) post(fn func()) bool {
	select {
	case <-s.shut:
		return false
	default:
	}

	select {
	case s.inbox <- fn:
		return true
	case <-s.shut:
		return false
	}
}

// do executes the function on the event loop and waits for it to finish.
// When an error is returned the function never ran. Once the loop has
// started the function, do waits for it regardless of the context.
func (s *State) do(ctx context.Context, fn func()) error {
	var claimed atomic.Bool
	finished := make(chan struct{})

	if !s.post(func() {
		defer close(finished)
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		fn()
	}) {
		return ErrShutdown
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
	case <-s.done:
		if claimed.CompareAndSwap(false, true) {
			return ErrShutdown
		}
	}

	<-finished
	return nil
}
