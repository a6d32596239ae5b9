package network

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies the kind of message exchanged between peers.
type Type string

// Set of message types understood by the protocol.
const (
	TypeChain       Type = "CHAIN"
	TypeBlock       Type = "BLOCK"
	TypeTransaction Type = "TRANSACTION"
	TypePeerRequest Type = "PEER_REQUEST"
	TypePeerList    Type = "PEER_LIST"
	TypeConsensus   Type = "CONSENSUS"
)

// ErrMissingType is returned when a message has no type.
var ErrMissingType = errors.New("message has no type")

// =============================================================================

// Message represents the envelope for every frame sent between peers.
type Message struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage constructs a message with the payload encoded as JSON. A nil
// payload produces a message with no payload.
func NewMessage(typ Type, payload any) (Message, error) {
	msg := Message{Type: typ}
	if payload == nil {
		return msg, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s payload: %w", typ, err)
	}
	msg.Payload = data

	return msg, nil
}

// Decode unmarshals the message payload into the provided value.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}

	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", m.Type, err)
	}

	return nil
}

// Encode returns the wire representation of the message.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a frame received from a peer.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}

	if msg.Type == "" {
		return Message{}, ErrMissingType
	}

	return msg, nil
}

// =============================================================================

// PeerAddr represents a peer entry in a PEER_LIST message.
type PeerAddr struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Consensus represents the payload of a CONSENSUS message.
type Consensus struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}
