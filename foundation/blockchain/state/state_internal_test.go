package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/miner"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/network"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_PeerBlockAbortsMining(t *testing.T) {
	t.Log("Given the need to abandon mining when a peer produces the next block.")
	{
		var mu sync.Mutex
		var trace []string
		ev := func(v string, args ...any) {
			mu.Lock()
			defer mu.Unlock()
			trace = append(trace, v)
		}

		notes := &countNotifier{}

		s, err := New(Config{
			BeneficiaryID: "local",
			Genesis: genesis.Genesis{
				Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
				Difficulty:   1,
				MiningReward: 50,
			},
			EvHandler: ev,
			Notifier:  notes,
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
		}
		defer s.Shutdown()

		ctx := context.Background()

		if err := s.SubmitTransaction(ctx, ledger.NewTransaction("bill", "jill", 10)); err != nil {
			t.Fatalf("\t%s\tShould be able to submit a transaction: %v", failed, err)
		}

		// Search at a difficulty that can't be solved so the search is still
		// running when the peer block shows up.
		begin := func() {
			err = s.miner.Begin(miner.Args{
				Beneficiary:  "local",
				Difficulty:   64,
				MiningReward: 50,
				PrevBlock:    s.ledger.Tail(),
				Trans:        s.mempool.PickValid(),
			})
		}
		if derr := s.do(ctx, begin); derr != nil || err != nil {
			t.Fatalf("\t%s\tShould be able to begin mining: %v %v", failed, derr, err)
		}

		t.Logf("\tTest 0:\tWhen a valid block arrives from a peer while SEARCHING.")
		{
			var before, after miner.Status
			var length int
			var tail ledger.Block
			var pool int

			deliver := func() {
				before = s.miner.Status()

				prev := s.ledger.Tail()
				block := ledger.Block{
					Index:        prev.Index + 1,
					TimeStamp:    prev.TimeStamp + 1000,
					Transactions: []ledger.Transaction{ledger.NewRewardTransaction("external", 50, prev.TimeStamp+1000)},
					PrevHash:     prev.Hash,
					Validator:    "external",
					Difficulty:   1,
				}
				for {
					block.Hash = block.ComputeHash()
					if ledger.IsHashSolved(1, block.Hash) {
						break
					}
					block.Nonce++
				}

				msg, merr := network.NewMessage(network.TypeBlock, block)
				if merr != nil {
					return
				}
				data, merr := msg.Encode()
				if merr != nil {
					return
				}

				s.net.Attach("peer", "ws://peer:9080/v1/p2p", false, &nopConn{})
				s.net.HandleMessage("peer", data)

				after = s.miner.Status()
				length = s.ledger.Length()
				tail = s.ledger.Tail()
				pool = s.mempool.Count()
			}

			if err := s.do(ctx, deliver); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to deliver the block: %v", failed, err)
			}

			if before != miner.Searching {
				t.Fatalf("\t%s\tTest 0:\tShould be SEARCHING before the block, got %s.", failed, before)
			}
			t.Logf("\t%s\tTest 0:\tShould be SEARCHING before the block.", success)

			if after != miner.Idle {
				t.Fatalf("\t%s\tTest 0:\tShould be IDLE once the block is accepted, got %s.", failed, after)
			}
			t.Logf("\t%s\tTest 0:\tShould be IDLE once the block is accepted.", success)

			mu.Lock()
			var aborted bool
			for _, v := range trace {
				if strings.Contains(v, "ABORTED") {
					aborted = true
				}
			}
			mu.Unlock()

			if !aborted {
				t.Fatalf("\t%s\tTest 0:\tShould pass through ABORTED.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould pass through ABORTED.", success)

			if length != 2 || tail.Validator != "external" {
				t.Fatalf("\t%s\tTest 0:\tShould hold the peer block at height 1, length %d validator %q.", failed, length, tail.Validator)
			}
			t.Logf("\t%s\tTest 0:\tShould hold the peer block at height 1.", success)

			if pool != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould clear the mempool, got %d.", failed, pool)
			}
			t.Logf("\t%s\tTest 0:\tShould clear the mempool.", success)

			if got := notes.blocks(); got != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould report only the peer block, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould report only the peer block.", success)
		}
	}
}

// =============================================================================

type nopConn struct{}

func (nopConn) Send([]byte) error { return nil }
func (nopConn) Close() error      { return nil }

func Test_ExpiredRequest(t *testing.T) {
	t.Log("Given the need to drop requests whose caller stopped waiting.")
	{
		s, err := New(Config{
			BeneficiaryID: "local",
			Genesis: genesis.Genesis{
				Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
				Difficulty:   1,
				MiningReward: 50,
			},
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
		}
		defer s.Shutdown()

		t.Logf("\tTest 0:\tWhen the deadline passes while the loop is busy.")
		{
			release := make(chan struct{})
			if !s.post(func() { <-release }) {
				t.Fatalf("\t%s\tTest 0:\tShould be able to block the loop.", failed)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			err := s.SubmitTransaction(ctx, ledger.NewTransaction("bill", "jill", 10))
			close(release)

			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("\t%s\tTest 0:\tShould report the expired deadline, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould report the expired deadline.", success)

			trans, err := s.PoolSnapshot(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read the pool: %v", failed, err)
			}

			if len(trans) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould not add the transaction to the pool, got %d.", failed, len(trans))
			}
			t.Logf("\t%s\tTest 0:\tShould not add the transaction to the pool.", success)
		}
	}
}

type countNotifier struct {
	mu       sync.Mutex
	accepted int
}

func (n *countNotifier) ChainReplaced([]ledger.Block) {}
func (n *countNotifier) TransactionAccepted(ledger.Transaction) {}

func (n *countNotifier) BlockAccepted(ledger.Block) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted++
}

func (n *countNotifier) blocks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.accepted
}
