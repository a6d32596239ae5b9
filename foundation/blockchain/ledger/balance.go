package ledger

import "math"

// Balance replays every transaction in the chain and returns the resulting
// balance for the account. Nothing is cached, every call walks the chain.
// Amounts from peer blocks are not bounded, so the balance saturates at
// the limits of an int64 instead of wrapping.
func (l *Ledger) Balance(account string) int64 {
	var balance int64

	for _, block := range l.blocks {
		for _, tx := range block.Transactions {
			amount := int64(min(tx.Amount, MaxAmount))

			if tx.From == account && tx.From != CoinbaseAccount {
				balance = sub(balance, amount)
			}

			if tx.To == account {
				balance = add(balance, amount)
			}
		}
	}

	return balance
}

// add returns a+b for a non-negative b, saturating at math.MaxInt64.
func add(a int64, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// sub returns a-b for a non-negative b, saturating at math.MinInt64.
func sub(a int64, b int64) int64 {
	if a < math.MinInt64+b {
		return math.MinInt64
	}
	return a - b
}
