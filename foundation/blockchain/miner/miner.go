// Package miner implements the proof of work search as a resumable task.
// The owner advances the search one time slice at a time so other work can
// run between slices, and can abandon it between any two slices.
package miner

import (
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
)

// Set of error variables for starting a mining operation.
var (
	ErrBusy           = errors.New("mining operation already in progress")
	ErrNoTransactions = errors.New("no transactions to mine")
)

// checkEvery is the number of hashes computed between clock checks.
const checkEvery = 256

// =============================================================================

// Status represents the state of the mining task.
type Status int

// Set of mining task states. Success and Aborted are transitions reported
// by Step and Abort, the task rests in Idle afterwards.
const (
	Idle Status = iota
	Assembling
	Searching
	Success
	Aborted
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Assembling:
		return "ASSEMBLING"
	case Searching:
		return "SEARCHING"
	case Success:
		return "SUCCESS"
	case Aborted:
		return "ABORTED"
	}

	return "UNKNOWN"
}

// Args represents the information needed to assemble a candidate block.
type Args struct {
	Beneficiary  string
	Difficulty   uint
	MiningReward uint64
	PrevBlock    ledger.Block
	Trans        []ledger.Transaction
}

// Miner manages a single proof of work search. It is not safe for
// concurrent use, the node's event loop is the only owner.
type Miner struct {
	status    Status
	block     ledger.Block
	attempts  uint64
	started   time.Time
	evHandler func(v string, args ...any)
	now       func() time.Time
}

// New constructs an idle miner.
func New(evHandler func(v string, args ...any)) *Miner {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Miner{
		status:    Idle,
		evHandler: ev,
		now:       time.Now,
	}
}

// Status returns the current state of the task.
func (m *Miner) Status() Status {
	return m.status
}

// Candidate returns the block currently being searched.
func (m *Miner) Candidate() (ledger.Block, bool) {
	if m.status != Searching {
		return ledger.Block{}, false
	}

	return m.block, true
}

// Begin assembles a candidate block on top of the previous block and moves
// the task into the search. Only an idle miner can begin.
func (m *Miner) Begin(args Args) error {
	if m.status != Idle {
		return ErrBusy
	}

	if len(args.Trans) == 0 {
		return ErrNoTransactions
	}

	m.status = Assembling
	m.evHandler("miner: Begin: ASSEMBLING: prevBlk[%d]: trans[%d]", args.PrevBlock.Index, len(args.Trans))

	now := m.now().UTC().UnixMilli()

	trans := make([]ledger.Transaction, 0, len(args.Trans)+1)
	trans = append(trans, args.Trans...)
	trans = append(trans, ledger.NewRewardTransaction(args.Beneficiary, args.MiningReward, now))

	// Choose a random starting point for the nonce. After this, the nonce
	// will be incremented by 1 until a solution is found by us or another node.
	var nonce uint64
	if nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64)); err == nil {
		nonce = nBig.Uint64()
	}

	m.block = ledger.Block{
		Index:        args.PrevBlock.Index + 1,
		TimeStamp:    now,
		Transactions: trans,
		PrevHash:     args.PrevBlock.Hash,
		Nonce:        nonce,
		Validator:    args.Beneficiary,
		Difficulty:   args.Difficulty,
	}
	m.attempts = 0
	m.started = m.now()

	for _, tx := range trans {
		m.evHandler("miner: Begin: ASSEMBLING: tx[%s]", tx)
	}

	m.status = Searching
	m.evHandler("miner: Begin: SEARCHING: blk[%d]: difficulty[%d]", m.block.Index, m.block.Difficulty)

	return nil
}

// Step performs the search for at most the slice duration and then yields.
// When a solution is found the solved block is returned and the miner is
// idle again.
func (m *Miner) Step(slice time.Duration) (ledger.Block, bool) {
	if m.status != Searching {
		return ledger.Block{}, false
	}

	deadline := m.now().Add(slice)

	for i := 1; ; i++ {
		m.attempts++

		// Hash the block and check if we have solved the puzzle.
		hash := m.block.ComputeHash()
		if ledger.IsHashSolved(m.block.Difficulty, hash) {
			m.block.Hash = hash
			block := m.block

			m.status = Success
			m.evHandler("miner: Step: SUCCESS: blk[%d]: hash[%s]: attempts[%d]: duration[%v]", block.Index, hash, m.attempts, m.now().Sub(m.started))
			m.reset()

			return block, true
		}
		m.block.Nonce++

		if i%checkEvery == 0 && !m.now().Before(deadline) {
			return ledger.Block{}, false
		}
	}
}

// Abort abandons the search in progress. It reports if there was a search
// to abandon.
func (m *Miner) Abort() bool {
	if m.status != Searching && m.status != Assembling {
		return false
	}

	m.status = Aborted
	m.evHandler("miner: Abort: ABORTED: blk[%d]: attempts[%d]", m.block.Index, m.attempts)
	m.reset()

	return true
}

// reset returns the task to idle.
func (m *Miner) reset() {
	m.block = ledger.Block{}
	m.attempts = 0
	m.status = Idle
}
