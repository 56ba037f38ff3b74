// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

// Stats is a read-only snapshot of the pool's headline figures.
type Stats struct {
	TotalBuffered   *big.Int             `json:"totalBuffered"`
	ReservedFunds   *big.Int             `json:"reservedFunds"`
	TotalShares     *big.Int             `json:"totalShares"`
	TotalPooled     *big.Int             `json:"totalPooled"`
	PendingRequests int                  `json:"pendingRequests"`
	Operators       int                  `json:"operators"`
	Fees            protocol.FeeSchedule `json:"fees"`
}

// OperatorInfo is a read-only view of one registered operator.
type OperatorInfo struct {
	ID            protocol.ValidatorID `json:"id"`
	Contract      common.Address       `json:"contract"`
	RewardAddress common.Address       `json:"rewardAddress"`
	Status        string               `json:"status"`
	Stake         *big.Int             `json:"stake"`
}

// RequestInfo is a read-only view of one pending withdrawal request.
type RequestInfo struct {
	Ticket    protocol.TicketID `json:"ticket"`
	Epoch     uint64            `json:"epoch"`
	Claimable bool              `json:"claimable"`
	PoolOwned bool              `json:"poolOwned"`
	Legs      int               `json:"legs"`
}

// viewLock takes the read lock. A view called from within an in-flight
// operation would deadlock against the held write lock, so it is rejected
// the same way run rejects reentrant mutations.
func (p *Pool) viewLock(view string) error {
	if p.owner.Load() == goroutineID() {
		return errors.Wrap(protocol.ErrReentrancy, view)
	}
	p.mu.RLock()
	return nil
}

// Stats returns the pool's current figures.
func (p *Pool) Stats() (*Stats, error) {
	if err := p.viewLock("stats"); err != nil {
		return nil, err
	}
	defer p.mu.RUnlock()

	pooled, err := p.totalPooled()
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalBuffered:   new(big.Int).Set(p.st.totalBuffered),
		ReservedFunds:   new(big.Int).Set(p.st.reservedFunds),
		TotalShares:     new(big.Int).Set(p.st.totalShares),
		TotalPooled:     pooled,
		PendingRequests: p.queue.Len(),
		Operators:       p.registry.Len(),
		Fees:            p.st.fees,
	}, nil
}

// Operators returns every registered operator with its derived status and
// current stake.
func (p *Pool) Operators() ([]OperatorInfo, error) {
	if err := p.viewLock("operators"); err != nil {
		return nil, err
	}
	defer p.mu.RUnlock()

	ops := p.registry.Withdrawable()
	stakes, _, err := p.delegatedStakes(ops)
	if err != nil {
		return nil, err
	}
	out := make([]OperatorInfo, len(ops))
	for i, op := range ops {
		status, err := p.registry.StatusOf(op.ID)
		if err != nil {
			return nil, err
		}
		out[i] = OperatorInfo{
			ID:            op.ID,
			Contract:      op.Contract,
			RewardAddress: op.RewardAddress,
			Status:        status.String(),
			Stake:         stakes[i],
		}
	}
	return out, nil
}

// Request returns the pending request behind ticket.
func (p *Pool) Request(ticket protocol.TicketID) (*RequestInfo, error) {
	if err := p.viewLock("request"); err != nil {
		return nil, err
	}
	defer p.mu.RUnlock()

	req, err := p.queue.Get(ticket)
	if err != nil {
		return nil, err
	}
	epoch, err := p.staking.CurrentEpoch()
	if err != nil {
		return nil, err
	}
	return &RequestInfo{
		Ticket:    req.Ticket,
		Epoch:     req.Epoch,
		Claimable: req.Claimable(epoch),
		PoolOwned: req.PoolOwned,
		Legs:      len(req.Legs),
	}, nil
}

// Requests returns every pending withdrawal request, ordered by ticket.
func (p *Pool) Requests() ([]RequestInfo, error) {
	if err := p.viewLock("requests"); err != nil {
		return nil, err
	}
	defer p.mu.RUnlock()

	epoch, err := p.staking.CurrentEpoch()
	if err != nil {
		return nil, errors.Wrapf(protocol.ErrExternalCall, "current epoch: %v", err)
	}
	tickets := p.queue.Tickets()
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })

	out := make([]RequestInfo, 0, len(tickets))
	for _, ticket := range tickets {
		req, err := p.queue.Get(ticket)
		if err != nil {
			return nil, err
		}
		out = append(out, RequestInfo{
			Ticket:    req.Ticket,
			Epoch:     req.Epoch,
			Claimable: req.Claimable(epoch),
			PoolOwned: req.PoolOwned,
			Legs:      len(req.Legs),
		})
	}
	return out, nil
}

// SharesOf returns owner's claim-token balance. Unlike the other views it
// stays usable from within an in-flight operation, whose goroutine already
// holds the write lock.
func (p *Pool) SharesOf(owner common.Address) *big.Int {
	if p.owner.Load() != goroutineID() {
		p.mu.RLock()
		defer p.mu.RUnlock()
	}
	if bal, ok := p.st.balances[owner]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// TotalShares returns the claim-token supply.
func (p *Pool) TotalShares() *big.Int {
	if p.owner.Load() != goroutineID() {
		p.mu.RLock()
		defer p.mu.RUnlock()
	}
	return new(big.Int).Set(p.st.totalShares)
}
