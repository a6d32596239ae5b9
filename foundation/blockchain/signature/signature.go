// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents the previous hash recorded by the genesis block.
const ZeroHash string = "0"

// gossipID is an arbitrary number added to the recovery id of a signature.
// This will make it clear that the signature comes from this blockchain.
const gossipID = 29

// ErrSignerMismatch is returned when the signature was not produced by the
// claimed account.
var ErrSignerMismatch = errors.New("signature does not match the from account")

// =============================================================================

// Hash returns a unique hex encoded sha256 string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Sign uses the specified private key to sign the data. The signature is
// returned in the hex encoded [R|S|V] format.
func Sign(value any, privateKey *ecdsa.PrivateKey) (string, error) {

	// Prepare the data for signing.
	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	// Mark the recovery id so the signature is unique to this chain.
	sig[crypto.RecoveryIDOffset] += gossipID

	return hexutil.Encode(sig), nil
}

// FromAddress extracts the address for the account that signed the data.
func FromAddress(value any, sigStr string) (string, error) {

	// Prepare the data for public key extraction.
	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	sig, err := hexutil.Decode(sigStr)
	if err != nil {
		return "", fmt.Errorf("decoding signature: %w", err)
	}

	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length %d", len(sig))
	}

	// Check the recovery id is either 0 or 1 after removing the marker.
	v := sig[crypto.RecoveryIDOffset] - gossipID
	if v != 0 && v != 1 {
		return "", errors.New("invalid recovery id")
	}
	sig[crypto.RecoveryIDOffset] = v

	// Capture the public key associated with this data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// VerifySigner checks the signature over the value was produced by the
// private key behind the specified address.
func VerifySigner(value any, sigStr string, address string) error {
	from, err := FromAddress(value, sigStr)
	if err != nil {
		return err
	}

	if !strings.EqualFold(from, address) {
		return ErrSignerMismatch
	}

	return nil
}

// PublicKeyToAddress converts the public key to an account address.
func PublicKeyToAddress(pk ecdsa.PublicKey) string {
	return crypto.PubkeyToAddress(pk).String()
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the chain stamp embedded into the final hash.
func stamp(value any) ([]byte, error) {

	// Marshal the data.
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	// Hash the data into a 32 byte array. This will provide
	// a data length consistency with all data.
	txHash := crypto.Keccak256(v)

	// This stamp is used so signatures we produce when signing data
	// are always unique to this blockchain.
	stamp := []byte("\x19Gossip Signed Message:\n32")

	return crypto.Keccak256(stamp, txHash), nil
}
