package mempool_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func tran(id string, from string, to string, amount uint64, ts int64) ledger.Transaction {
	return ledger.Transaction{ID: id, From: from, To: to, Amount: amount, TimeStamp: ts}
}

func TestEviction(t *testing.T) {
	t.Log("Given the need to keep the pool bounded.")
	{
		t.Logf("\tTest 0:\tWhen adding four transactions to a pool of three.")
		{
			mp, err := mempool.New(mempool.Config{MaxSize: 3})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the mempool: %v", failed, err)
			}

			for i, id := range []string{"T1", "T2", "T3", "T4"} {
				n := mp.Upsert(tran(id, "bill", "jill", 10, int64(i)))
				if n > 3 {
					t.Fatalf("\t%s\tTest 0:\tShould never exceed the max size, got %d.", failed, n)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould never exceed the max size.", success)

			got := mp.Copy()
			exp := []string{"T2", "T3", "T4"}
			if len(got) != len(exp) {
				t.Fatalf("\t%s\tTest 0:\tShould have %d transactions, got %d.", failed, len(exp), len(got))
			}
			for i := range exp {
				if got[i].ID != exp[i] {
					t.Logf("\t%s\tTest 0:\tgot: %s", failed, got[i].ID)
					t.Logf("\t%s\tTest 0:\texp: %s", failed, exp[i])
					t.Fatalf("\t%s\tTest 0:\tShould evict the oldest transaction first.", failed)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould evict the oldest transaction first.", success)
		}
	}
}

func TestUpsert(t *testing.T) {
	t.Log("Given the need to update transactions by id.")
	{
		mp, err := mempool.New(mempool.Config{MaxSize: 3})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the mempool: %v", failed, err)
		}

		mp.Upsert(tran("T1", "bill", "jill", 10, 1))
		mp.Upsert(tran("T2", "bill", "jill", 20, 2))
		n := mp.Upsert(tran("T1", "bill", "jill", 99, 1))

		if n != 2 {
			t.Fatalf("\t%s\tShould overwrite in place, got %d transactions.", failed, n)
		}
		t.Logf("\t%s\tShould overwrite in place.", success)

		got := mp.Copy()
		if got[0].ID != "T1" || got[0].Amount != 99 {
			t.Fatalf("\t%s\tShould keep the position and new fields, got %+v.", failed, got[0])
		}
		t.Logf("\t%s\tShould keep the position and new fields.", success)

		mp.Truncate()
		if mp.Count() != 0 {
			t.Fatalf("\t%s\tShould be able to truncate the mempool.", failed)
		}
		t.Logf("\t%s\tShould be able to truncate the mempool.", success)
	}
}

func TestValidate(t *testing.T) {
	type table struct {
		name string
		tx   ledger.Transaction
		err  error
	}

	tt := []table{
		{name: "valid", tx: tran("T9", "bill", "bob", 5, 7)},
		{name: "missing from", tx: tran("T9", "", "bob", 5, 7), err: mempool.ErrMissingParty},
		{name: "missing to", tx: tran("T9", "bill", "", 5, 7), err: mempool.ErrMissingParty},
		{name: "zero amount", tx: tran("T9", "bill", "bob", 0, 7), err: mempool.ErrInvalidAmount},
		{name: "max amount", tx: tran("T9", "bill", "bob", ledger.MaxAmount, 7)},
		{name: "amount above max", tx: tran("T9", "bill", "bob", ledger.MaxAmount+1, 7), err: mempool.ErrInvalidAmount},
		{name: "same content different id", tx: tran("T9", "bill", "jill", 10, 1), err: mempool.ErrDuplicate},
		{name: "same content same id", tx: tran("T1", "bill", "jill", 10, 1), err: mempool.ErrDuplicate},
		{name: "different timestamp", tx: tran("T9", "bill", "jill", 10, 2)},
	}

	t.Log("Given the need to validate transactions against the pool.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				mp, err := mempool.New(mempool.Config{MaxSize: 10})
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to construct the mempool: %v", failed, testID, err)
				}
				mp.Upsert(tran("T1", "bill", "jill", 10, 1))

				err = mp.Validate(tst.tx)
				if !errors.Is(err, tst.err) {
					t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
					t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.err)
					t.Fatalf("\t%s\tTest %d:\tShould get back the expected result for %s.", failed, testID, tst.name)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the expected result for %s.", success, testID, tst.name)
			}

			t.Run(tst.name, f)
		}
	}
}

func TestPickValid(t *testing.T) {
	t.Log("Given the need to pick transactions for a block.")
	{
		errBadSig := errors.New("bad signature")
		verify := func(tx ledger.Transaction) error {
			if tx.Signature == "bad" {
				return errBadSig
			}
			return nil
		}

		mp, err := mempool.New(mempool.Config{MaxSize: 10, Verifier: verify})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the mempool: %v", failed, err)
		}

		mp.Upsert(tran("T1", "bill", "jill", 10, 1))
		mp.Upsert(tran("T2", "bill", "jill", 10, 1))
		forged := tran("T3", "bob", "jill", 10, 1)
		forged.Signature = "bad"
		mp.Upsert(forged)
		mp.Upsert(tran("T4", "jill", "bob", 3, 2))

		got := mp.PickValid()
		if len(got) != 2 || got[0].ID != "T1" || got[1].ID != "T4" {
			t.Fatalf("\t%s\tShould pick one entry per content key and skip bad signatures, got %v.", failed, got)
		}
		t.Logf("\t%s\tShould pick one entry per content key and skip bad signatures.", success)

		if err := mp.Validate(forged); !errors.Is(err, errBadSig) {
			t.Fatalf("\t%s\tShould surface the verifier error, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould surface the verifier error.", success)
	}
}
