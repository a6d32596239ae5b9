package miner_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/miner"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_MineBlock(t *testing.T) {
	t.Log("Given the need to mine a block at difficulty 4.")
	{
		gen := genesis.Genesis{Date: genesis.Default.Date, Difficulty: 4, MiningReward: 50}
		l := ledger.New(ledger.Config{Genesis: gen})
		m := miner.New(nil)

		args := miner.Args{
			Beneficiary:  "miner1",
			Difficulty:   gen.Difficulty,
			MiningReward: gen.MiningReward,
			PrevBlock:    l.Tail(),
			Trans:        []ledger.Transaction{ledger.NewTransaction("bill", "jill", 10)},
		}

		if err := m.Begin(args); err != nil {
			t.Fatalf("\t%s\tShould be able to begin mining: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to begin mining.", success)

		if m.Status() != miner.Searching {
			t.Fatalf("\t%s\tShould be searching, got %s.", failed, m.Status())
		}
		t.Logf("\t%s\tShould be searching.", success)

		var block ledger.Block
		var solved bool
		for i := 0; i < 100_000 && !solved; i++ {
			block, solved = m.Step(10 * time.Millisecond)
		}

		if !solved {
			t.Fatalf("\t%s\tShould be able to solve the block.", failed)
		}
		t.Logf("\t%s\tShould be able to solve the block.", success)

		if !strings.HasPrefix(block.Hash, "0000") || block.Hash != block.ComputeHash() {
			t.Fatalf("\t%s\tShould have a hash starting with 0000, got %s.", failed, block.Hash)
		}
		t.Logf("\t%s\tShould have a hash starting with 0000.", success)

		reward := block.Transactions[len(block.Transactions)-1]
		if len(block.Transactions) != 2 || reward.From != ledger.CoinbaseAccount || reward.To != "miner1" || reward.Amount != 50 {
			t.Fatalf("\t%s\tShould include the reward transaction, got %+v.", failed, block.Transactions)
		}
		t.Logf("\t%s\tShould include the reward transaction.", success)

		if err := l.AppendBlock(block); err != nil {
			t.Fatalf("\t%s\tShould be able to append the mined block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to append the mined block.", success)

		if m.Status() != miner.Idle {
			t.Fatalf("\t%s\tShould be idle after success, got %s.", failed, m.Status())
		}
		t.Logf("\t%s\tShould be idle after success.", success)
	}
}

func Test_Begin(t *testing.T) {
	t.Log("Given the need to only run one mining operation.")
	{
		m := miner.New(nil)
		prev := ledger.NewGenesisBlock(genesis.Default.Date)

		err := m.Begin(miner.Args{PrevBlock: prev, Difficulty: 64})
		if !errors.Is(err, miner.ErrNoTransactions) || m.Status() != miner.Idle {
			t.Fatalf("\t%s\tShould not begin without transactions: %v", failed, err)
		}
		t.Logf("\t%s\tShould not begin without transactions.", success)

		args := miner.Args{
			PrevBlock:  prev,
			Difficulty: 64,
			Trans:      []ledger.Transaction{ledger.NewTransaction("bill", "jill", 10)},
		}
		if err := m.Begin(args); err != nil {
			t.Fatalf("\t%s\tShould be able to begin mining: %v", failed, err)
		}

		if err := m.Begin(args); !errors.Is(err, miner.ErrBusy) {
			t.Fatalf("\t%s\tShould reject a second operation: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a second operation.", success)

		candidate, ok := m.Candidate()
		if !ok || candidate.Index != 1 || candidate.PrevHash != prev.Hash {
			t.Fatalf("\t%s\tShould build the candidate on the tail, got %+v.", failed, candidate)
		}
		t.Logf("\t%s\tShould build the candidate on the tail.", success)
	}
}

func Test_StepAndAbort(t *testing.T) {
	t.Log("Given a search that can't be solved.")
	{
		m := miner.New(nil)
		args := miner.Args{
			PrevBlock:  ledger.NewGenesisBlock(genesis.Default.Date),
			Difficulty: 64,
			Trans:      []ledger.Transaction{ledger.NewTransaction("bill", "jill", 10)},
		}
		if err := m.Begin(args); err != nil {
			t.Fatalf("\t%s\tShould be able to begin mining: %v", failed, err)
		}

		for i := 0; i < 3; i++ {
			start := time.Now()
			if _, solved := m.Step(5 * time.Millisecond); solved {
				t.Fatalf("\t%s\tShould never report a non-conforming hash as solved.", failed)
			}

			if time.Since(start) > time.Second {
				t.Fatalf("\t%s\tShould yield after the slice.", failed)
			}
		}
		t.Logf("\t%s\tShould yield after each slice without a solution.", success)

		if m.Status() != miner.Searching {
			t.Fatalf("\t%s\tShould still be searching, got %s.", failed, m.Status())
		}

		if !m.Abort() {
			t.Fatalf("\t%s\tShould be able to abort the search.", failed)
		}
		t.Logf("\t%s\tShould be able to abort the search.", success)

		if _, ok := m.Candidate(); ok || m.Status() != miner.Idle {
			t.Fatalf("\t%s\tShould be idle with no candidate after abort.", failed)
		}
		t.Logf("\t%s\tShould be idle with no candidate after abort.", success)

		if _, solved := m.Step(time.Millisecond); solved {
			t.Fatalf("\t%s\tShould not emit a block after abort.", failed)
		}

		if m.Abort() {
			t.Fatalf("\t%s\tShould report nothing to abort when idle.", failed)
		}
		t.Logf("\t%s\tShould report nothing to abort when idle.", success)
	}
}
