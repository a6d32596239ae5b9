// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/network"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
}

// Connect upgrades the request to the websocket a peer gossips over. The
// connection keeps running after the handler returns.
func (h Handlers) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	ws, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	address := r.Header.Get(network.AddressHeader)
	h.Log.Infow("peer connected", "traceid", v.TraceID, "remoteaddr", r.RemoteAddr, "address", address)

	web.SetStatusCode(ctx, http.StatusSwitchingProtocols)
	h.State.Accept(ws, address)

	return nil
}
