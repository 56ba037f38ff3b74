// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/meridianlabs/liquidstake/api/restutil"
	"github.com/meridianlabs/liquidstake/pool"
	"github.com/meridianlabs/liquidstake/protocol"
)

// poolHandler serves the read-only views of one pool.
type poolHandler struct {
	pool *pool.Pool
}

func newPoolHandler(p *pool.Pool) *poolHandler {
	return &poolHandler{pool: p}
}

func (h *poolHandler) handleStats(w http.ResponseWriter, _ *http.Request) error {
	stats, err := h.pool.Stats()
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, stats)
}

func (h *poolHandler) handleOperators(w http.ResponseWriter, _ *http.Request) error {
	ops, err := h.pool.Operators()
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, ops)
}

func (h *poolHandler) handleRequests(w http.ResponseWriter, _ *http.Request) error {
	reqs, err := h.pool.Requests()
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, reqs)
}

func (h *poolHandler) handleRequest(w http.ResponseWriter, req *http.Request) error {
	raw := mux.Vars(req)["ticket"]
	ticket, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return restutil.BadRequest(errors.New("ticket: " + err.Error()))
	}
	view, err := h.pool.Request(protocol.TicketID(ticket))
	if err != nil {
		if errors.Is(err, protocol.ErrNotFound) {
			return restutil.NotFound(err)
		}
		return err
	}
	return restutil.WriteJSON(w, view)
}

func (h *poolHandler) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("pool_get_stats").
		HandlerFunc(restutil.WrapHandlerFunc(h.handleStats))
	sub.Path("/operators").
		Methods(http.MethodGet).
		Name("pool_get_operators").
		HandlerFunc(restutil.WrapHandlerFunc(h.handleOperators))
	sub.Path("/requests").
		Methods(http.MethodGet).
		Name("pool_get_requests").
		HandlerFunc(restutil.WrapHandlerFunc(h.handleRequests))
	sub.Path("/requests/{ticket}").
		Methods(http.MethodGet).
		Name("pool_get_request").
		HandlerFunc(restutil.WrapHandlerFunc(h.handleRequest))
}
