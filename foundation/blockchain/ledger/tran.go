package ledger

import (
	"crypto/ecdsa"
	"fmt"
	"math"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/signature"
	"github.com/google/uuid"
)

// CoinbaseAccount is the sender recorded on mining reward transactions. It
// is never debited when balances are computed.
const CoinbaseAccount = "coinbase"

// MaxAmount is the largest amount a single transaction can move and still
// be represented in a balance.
const MaxAmount uint64 = math.MaxInt64

// =============================================================================

// Transaction is the transactional information between two parties.
type Transaction struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	TimeStamp int64  `json:"timestamp"` // Unix milliseconds.
	Signature string `json:"signature"`
}

// NewTransaction constructs a new transaction with a generated id and the
// current time.
func NewTransaction(from string, to string, amount uint64) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Amount:    amount,
		TimeStamp: time.Now().UTC().UnixMilli(),
	}
}

// NewRewardTransaction constructs the transaction crediting the miner of a
// block with the mining reward.
func NewRewardTransaction(to string, amount uint64, timeStamp int64) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		From:      CoinbaseAccount,
		To:        to,
		Amount:    amount,
		TimeStamp: timeStamp,
	}
}

// ContentKey returns the business identity of the transaction. Two
// transactions with the same content key are duplicates regardless of id.
func (tx Transaction) ContentKey() string {
	return fmt.Sprintf("%s|%s|%d|%d", tx.From, tx.To, tx.Amount, tx.TimeStamp)
}

// SigningData returns the part of the transaction covered by the signature.
func (tx Transaction) SigningData() TransactionData {
	return TransactionData{
		From:      tx.From,
		To:        tx.To,
		Amount:    tx.Amount,
		TimeStamp: tx.TimeStamp,
	}
}

// Sign signs the transaction with the private key. The from account is set
// to the address behind the key.
func (tx Transaction) Sign(privateKey *ecdsa.PrivateKey) (Transaction, error) {
	tx.From = signature.PublicKeyToAddress(privateKey.PublicKey)

	sig, err := signature.Sign(tx.SigningData(), privateKey)
	if err != nil {
		return Transaction{}, err
	}
	tx.Signature = sig

	return tx, nil
}

// VerifySignature checks the signature was produced by the from account.
func (tx Transaction) VerifySignature() error {
	if tx.Signature == "" {
		return signature.ErrSignerMismatch
	}

	return signature.VerifySigner(tx.SigningData(), tx.Signature, tx.From)
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:%s->%s:%d", tx.ID, tx.From, tx.To, tx.Amount)
}

// TransactionData represents the signed fields of a transaction.
type TransactionData struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	TimeStamp int64  `json:"timestamp"`
}
