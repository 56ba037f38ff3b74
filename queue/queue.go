// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package queue tracks withdrawal requests through their delayed lifecycle:
// created, claimable once the staking epoch has advanced far enough, and
// consumed on claim. Requests are keyed by claim ticket.
package queue

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

// Leg is one settlement source of a withdrawal request. Exactly one of the
// buffer path (AmountFromBuffer) and the validator path (UnbondNonce,
// Operator, Contract, Requested) is populated.
type Leg struct {
	AmountFromBuffer *big.Int

	UnbondNonce protocol.UnbondNonce
	Operator    protocol.ValidatorID
	Contract    common.Address
	Requested   *big.Int // amount asked of the operator; settlement may release more
}

// BufferLeg builds a buffer-path leg.
func BufferLeg(amount *big.Int) Leg {
	return Leg{AmountFromBuffer: new(big.Int).Set(amount)}
}

// UnbondLeg builds a validator-path leg.
func UnbondLeg(op protocol.ValidatorID, contract common.Address, nonce protocol.UnbondNonce, requested *big.Int) Leg {
	return Leg{
		UnbondNonce: nonce,
		Operator:    op,
		Contract:    contract,
		Requested:   new(big.Int).Set(requested),
	}
}

// Request is a pending withdrawal keyed by its claim ticket.
type Request struct {
	Ticket    protocol.TicketID
	Epoch     uint64 // claimable at or after this staking epoch
	PoolOwned bool   // created by rebalance or forced undelegation
	Legs      []Leg
}

// Claimable reports whether the request can be settled at epoch.
func (r *Request) Claimable(epoch uint64) bool {
	return epoch >= r.Epoch
}

// Manager owns the request records.
type Manager struct {
	requests map[protocol.TicketID]*Request
}

func NewManager() *Manager {
	return &Manager{requests: make(map[protocol.TicketID]*Request)}
}

// Add records a new request. The ticket must be unused.
func (m *Manager) Add(req *Request) error {
	if len(req.Legs) == 0 {
		return errors.Wrap(protocol.ErrInvalidInput, "request has no legs")
	}
	if _, ok := m.requests[req.Ticket]; ok {
		return errors.Wrapf(protocol.ErrInvalidInput, "ticket %d already queued", req.Ticket)
	}
	m.requests[req.Ticket] = req
	return nil
}

// Get returns the request for ticket.
func (m *Manager) Get(ticket protocol.TicketID) (*Request, error) {
	req, ok := m.requests[ticket]
	if !ok {
		return nil, errors.Wrapf(protocol.ErrNotFound, "ticket %d", ticket)
	}
	return req, nil
}

// Remove deletes the request record. Deleting before paying out is the
// engine's defense against double claims.
func (m *Manager) Remove(ticket protocol.TicketID) {
	delete(m.requests, ticket)
}

// Len returns the number of pending requests.
func (m *Manager) Len() int {
	return len(m.requests)
}

// PendingPoolAmount sums the requested amounts of all pool-owned
// validator-path legs still in flight. Rebalancing counts these toward its
// re-delegation target.
func (m *Manager) PendingPoolAmount() *big.Int {
	total := new(big.Int)
	for _, req := range m.requests {
		if !req.PoolOwned {
			continue
		}
		for _, leg := range req.Legs {
			if leg.Requested != nil {
				total.Add(total, leg.Requested)
			}
		}
	}
	return total
}

// Tickets returns all pending tickets (order unspecified).
func (m *Manager) Tickets() []protocol.TicketID {
	out := make([]protocol.TicketID, 0, len(m.requests))
	for ticket := range m.requests {
		out = append(out, ticket)
	}
	return out
}

// Snapshot captures the request set so a failed enclosing operation can
// roll it back.
func (m *Manager) Snapshot() func() {
	requests := make(map[protocol.TicketID]*Request, len(m.requests))
	for k, v := range m.requests {
		legs := make([]Leg, len(v.Legs))
		copy(legs, v.Legs)
		cp := *v
		cp.Legs = legs
		requests[k] = &cp
	}
	return func() {
		m.requests = requests
	}
}
