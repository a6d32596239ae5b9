package peer_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
)

type conn struct {
	sent   [][]byte
	closed bool
}

func (c *conn) Send(data []byte) error {
	if c.closed {
		return errors.New("closed")
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *conn) Close() error {
	c.closed = true
	return nil
}

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		hosts []string
	}

	tt := []table{
		{
			name:  "basic",
			hosts: []string{"host1", "host2", "host3"},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			reg := peer.NewRegistry()
			now := time.Now()

			conns := make(map[string]*conn)
			for i, host := range tst.hosts {
				c := &conn{}
				id := host + "-id"
				conns[id] = c
				reg.Add(id, host, false, c, now.Add(time.Duration(i)*time.Second))
			}

			peers := reg.Copy()
			if len(peers) != len(tst.hosts) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.hosts))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			for i, p := range peers {
				if p.Address != tst.hosts[i] {
					t.Fatalf("Test %s:\tShould get back the peers in connect order.", tst.name)
				}
			}

			if !reg.HasAddress("host2") || reg.HasAddress("host9") {
				t.Fatalf("Test %s:\tShould match peers by address.", tst.name)
			}

			if err := reg.Send("host1-id", []byte("hello")); err != nil || len(conns["host1-id"].sent) != 1 {
				t.Fatalf("Test %s:\tShould be able to send to a peer: %v", tst.name, err)
			}

			if err := reg.Send("missing", []byte("hello")); !errors.Is(err, peer.ErrNotFound) {
				t.Fatalf("Test %s:\tShould not send to an unknown peer: %v", tst.name, err)
			}

			if _, ok := reg.Remove("host2-id"); !ok || !conns["host2-id"].closed {
				t.Fatalf("Test %s:\tShould remove and close the peer.", tst.name)
			}

			if reg.Len() != len(tst.hosts)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, reg.Len())
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.hosts)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Stale(t *testing.T) {
	reg := peer.NewRegistry()
	start := time.Now()

	reg.Add("a", "host1", false, &conn{}, start)
	reg.Add("b", "host2", true, &conn{}, start)

	reg.Touch("b", start.Add(50*time.Second))

	stale := reg.Stale(30*time.Second, start.Add(60*time.Second))
	if len(stale) != 1 || stale[0] != "a" {
		t.Logf("got: %v", stale)
		t.Logf("exp: %v", []string{"a"})
		t.Fatalf("Should only report the peer not seen within the threshold.")
	}

	if reg.Touch("missing", start) {
		t.Fatalf("Should not touch an unknown peer.")
	}
}
