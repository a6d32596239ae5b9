// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/gossipchain/business/web/errs"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/network"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/events"
	"github.com/ardanlabs/gossipchain/foundation/nameservice"
	"github.com/ardanlabs/gossipchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
	NS    *nameservice.NameService
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the chain parameters.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Status returns a summary of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st, err := h.State.Status(ctx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Blocks returns the current chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks, err := h.State.ChainSnapshot(ctx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Accounts returns the known account names.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.NS.Copy(), http.StatusOK)
}

// Balance returns the balance of the account. The account can be given by
// its address or by its name.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := h.NS.Resolve(web.Param(r, "account"))

	bal, err := h.State.Balance(ctx, account)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, balance{Account: account, Name: h.NS.Lookup(account), Balance: bal}, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	trans, err := h.State.PoolSnapshot(ctx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// SubmitTransaction adds a new transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx NewTx
	if err := web.Decode(r, &ntx); err != nil {
		return err
	}

	tx := ntx.toLedger(v.Now)

	h.Log.Infow("submit tran", "traceid", v.TraceID, "id", tx.ID, "from", tx.From, "to", tx.To, "amount", tx.Amount)

	if err := h.State.SubmitTransaction(ctx, tx); err != nil {
		switch {
		case errors.Is(err, mempool.ErrDuplicate):
			return errs.NewTrusted(err, http.StatusConflict)
		case isUnavailable(err):
			return errs.NewUnavailable(err)
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// TxProof returns the merkle proof that a transaction is part of a block.
func (h Handlers) TxProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, proof, err := h.State.TxProof(ctx, web.Param(r, "id"))
	if err != nil {
		if errors.Is(err, ledger.ErrTxNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	resp := txProof{
		BlockIndex: block.Index,
		BlockHash:  block.Hash,
		Proof:      proof,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// StartMining asks the node to mine the transactions in the mempool.
func (h Handlers) StartMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.RequestMine(ctx); err != nil {
		switch {
		case errors.Is(err, state.ErrNoTransactions):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, state.ErrMinerBusy):
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	return web.Respond(ctx, w, status{Status: "mining started"}, http.StatusAccepted)
}

// Peers returns the connected peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	peers, err := h.State.PeerList(ctx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, peers, http.StatusOK)
}

// ConnectPeer starts an outbound connection to another node.
func (h Handlers) ConnectPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var cp ConnectPeer
	if err := web.Decode(r, &cp); err != nil {
		return err
	}

	if err := h.State.ConnectToPeer(ctx, cp.Address); err != nil {
		switch {
		case errors.Is(err, network.ErrInvalidAddress):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, network.ErrSelfConnect), errors.Is(err, network.ErrAlreadyKnown):
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	return web.Respond(ctx, w, status{Status: "connecting"}, http.StatusAccepted)
}

// =============================================================================

// isUnavailable reports if the node couldn't process the request at all.
func isUnavailable(err error) bool {
	return errors.Is(err, state.ErrShutdown) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
