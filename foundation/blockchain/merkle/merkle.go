// Package merkle computes merkle roots and inclusion proofs over the
// transactions of a block. An odd node at any level is paired with itself.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of error variables for building and checking proofs.
var (
	ErrNoLeaves     = errors.New("cannot construct tree with no leaves")
	ErrOutOfRange   = errors.New("leaf index out of range")
	ErrProofInvalid = errors.New("proof does not lead to the merkle root")
)

// Set of values describing where a proof hash is concatenated.
const (
	Left  = 0 // proof hash comes first.
	Right = 1 // proof hash comes second.
)

// Proof represents the information needed to prove a leaf is part of the
// tree with the specified root.
type Proof struct {
	Leaf  string   `json:"leaf"`
	Root  string   `json:"merkle_root"`
	Path  []string `json:"proof"`
	Order []int    `json:"proof_order"`
}

// =============================================================================

// Root returns the merkle root of the leaf hashes.
func Root(leaves [][]byte) ([]byte, error) {
	levels, err := build(leaves)
	if err != nil {
		return nil, err
	}

	return levels[len(levels)-1][0], nil
}

// NewProof constructs the proof for the leaf at the index.
func NewProof(leaves [][]byte, index int) (Proof, error) {
	if index < 0 || index >= len(leaves) {
		return Proof{}, ErrOutOfRange
	}

	levels, err := build(leaves)
	if err != nil {
		return Proof{}, err
	}

	p := Proof{
		Leaf: hexutil.Encode(leaves[index]),
		Root: hexutil.Encode(levels[len(levels)-1][0]),
	}

	for _, level := range levels[:len(levels)-1] {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}

		p.Path = append(p.Path, hexutil.Encode(level[sibling]))
		if index%2 == 0 {
			p.Order = append(p.Order, Right)
		} else {
			p.Order = append(p.Order, Left)
		}

		index /= 2
	}

	return p, nil
}

// Verify walks the proof from the leaf and checks it ends at the root.
func (p Proof) Verify() error {
	hash, err := hexutil.Decode(p.Leaf)
	if err != nil {
		return err
	}

	if len(p.Path) != len(p.Order) {
		return ErrProofInvalid
	}

	for i, s := range p.Path {
		sibling, err := hexutil.Decode(s)
		if err != nil {
			return err
		}

		switch p.Order[i] {
		case Left:
			hash = pair(sibling, hash)
		default:
			hash = pair(hash, sibling)
		}
	}

	root, err := hexutil.Decode(p.Root)
	if err != nil {
		return err
	}

	if !bytes.Equal(hash, root) {
		return ErrProofInvalid
	}

	return nil
}

// =============================================================================

// build returns every level of the tree, leaves first and root last.
func build(leaves [][]byte) ([][][]byte, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}

	levels := [][][]byte{leaves}
	for level := leaves; len(level) > 1; {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := i + 1
			if right == len(level) {
				right = i
			}
			next = append(next, pair(level[i], level[right]))
		}

		levels = append(levels, next)
		level = next
	}

	return levels, nil
}

func pair(left []byte, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
