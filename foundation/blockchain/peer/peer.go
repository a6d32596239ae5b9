// Package peer maintains the peer related information such as the set
// of connected peers and their liveness.
package peer

import (
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned when a peer id is not registered.
var ErrNotFound = errors.New("peer not found")

// Conn represents the behavior a connection to a peer must provide. Send
// must never block, it reports an error when the connection can't take
// the message right now.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// =============================================================================

// Peer represents information about a node in the network.
type Peer struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	Outbound    bool      `json:"outbound"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Match validates if the specified address matches this peer.
func (p Peer) Match(address string) bool {
	return p.Address == address
}

// String implements the fmt.Stringer interface for logging.
func (p Peer) String() string {
	return p.ID + "@" + p.Address
}

// =============================================================================

// entry pairs the peer record with the connection that serves it.
type entry struct {
	peer Peer
	conn Conn
}

// Registry represents the set of connected peers keyed by session id. The
// connections never leave the registry. It is not safe for concurrent use,
// the node's event loop is the only owner.
type Registry struct {
	set map[string]*entry
}

// NewRegistry constructs a registry to manage connected peers.
func NewRegistry() *Registry {
	return &Registry{
		set: make(map[string]*entry),
	}
}

// Add registers a new connection under the session id.
func (r *Registry) Add(id string, address string, outbound bool, conn Conn, now time.Time) Peer {
	p := Peer{
		ID:          id,
		Address:     address,
		Outbound:    outbound,
		ConnectedAt: now,
		LastSeen:    now,
	}

	r.set[id] = &entry{peer: p, conn: conn}

	return p
}

// Remove deregisters the peer and closes its connection.
func (r *Registry) Remove(id string) (Peer, bool) {
	e, exists := r.set[id]
	if !exists {
		return Peer{}, false
	}

	delete(r.set, id)
	e.conn.Close()

	return e.peer, true
}

// Touch records activity for the peer.
func (r *Registry) Touch(id string, now time.Time) bool {
	e, exists := r.set[id]
	if !exists {
		return false
	}

	e.peer.LastSeen = now

	return true
}

// Get returns the peer record for the id.
func (r *Registry) Get(id string) (Peer, bool) {
	e, exists := r.set[id]
	if !exists {
		return Peer{}, false
	}

	return e.peer, true
}

// HasAddress reports if a peer with the address is registered.
func (r *Registry) HasAddress(address string) bool {
	for _, e := range r.set {
		if e.peer.Match(address) {
			return true
		}
	}

	return false
}

// Send hands the data to the connection of the specified peer.
func (r *Registry) Send(id string, data []byte) error {
	e, exists := r.set[id]
	if !exists {
		return ErrNotFound
	}

	return e.conn.Send(data)
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	return len(r.set)
}

// Copy returns the registered peers ordered by the time they connected.
func (r *Registry) Copy() []Peer {
	peers := make([]Peer, 0, len(r.set))
	for _, e := range r.set {
		peers = append(peers, e.peer)
	}

	sort.Slice(peers, func(i, j int) bool {
		if peers[i].ConnectedAt.Equal(peers[j].ConnectedAt) {
			return peers[i].ID < peers[j].ID
		}
		return peers[i].ConnectedAt.Before(peers[j].ConnectedAt)
	})

	return peers
}

// Stale returns the ids of the peers not seen since the threshold.
func (r *Registry) Stale(threshold time.Duration, now time.Time) []string {
	var ids []string
	for id, e := range r.set {
		if now.Sub(e.peer.LastSeen) > threshold {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids
}
