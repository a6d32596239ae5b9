package main

import (
	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/events"
)

// chainSummary is what event subscribers receive when the chain is replaced.
type chainSummary struct {
	Length   int    `json:"length"`
	TailHash string `json:"tail_hash"`
}

// notifier forwards ledger and mempool changes to the event subscribers.
type notifier struct {
	evts *events.Events
}

func (n notifier) ChainReplaced(blocks []ledger.Block) {
	var sum chainSummary
	if len(blocks) > 0 {
		sum = chainSummary{Length: len(blocks), TailHash: blocks[len(blocks)-1].Hash}
	}

	n.evts.Send(events.TypeChainReplaced, sum)
}

func (n notifier) BlockAccepted(block ledger.Block) {
	n.evts.Send(events.TypeBlockAccepted, block)
}

func (n notifier) TransactionAccepted(tx ledger.Transaction) {
	n.evts.Send(events.TypeTransactionAccepted, tx)
}
