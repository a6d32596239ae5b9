// Package events allows for the registering and receiving of node
// notifications by subscribers such as websocket clients.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer is the number of events a subscriber can fall behind
// before events are dropped for it.
const messageBuffer = 100

// Set of event types published by the node.
const (
	TypeChainReplaced       = "CHAIN_REPLACED"
	TypeBlockAccepted       = "BLOCK_ACCEPTED"
	TypeTransactionAccepted = "TRANSACTION_ACCEPTED"
	TypeTrace               = "TRACE"
)

// Event represents a single notification.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	m  map[string]chan Event
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan Event),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) <-chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	ch = make(chan Event, messageBuffer)
	evt.m[id] = ch

	return ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)

	return nil
}

// Len returns the number of subscribers.
func (evt *Events) Len() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals an event to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(typ string, data any) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	e := Event{Type: typ, Data: data}
	for _, ch := range evt.m {
		select {
		case ch <- e:
		default:
		}
	}
}
