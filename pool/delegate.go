// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/allocation"
	"github.com/meridianlabs/liquidstake/protocol"
	"github.com/meridianlabs/liquidstake/queue"
	"github.com/meridianlabs/liquidstake/registry"
)

// DelegateBuffered splits the unreserved buffered balance across the
// delegable operators proportionally to the registry's ratio vector and
// delegates each allocation. The floor-division remainder stays buffered.
// Any single failing leg aborts the whole pass.
func (p *Pool) DelegateBuffered() error {
	return p.run("delegate buffered", func() error {
		amount := new(big.Int).Sub(p.st.totalBuffered, p.st.reservedFunds)
		if amount.Cmp(p.st.delegationLowerBound) <= 0 {
			return errors.Wrapf(protocol.ErrBelowThreshold,
				"delegable %s under lower bound %s", amount, p.st.delegationLowerBound)
		}

		ops, err := p.registry.Delegable()
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			return errors.Wrap(protocol.ErrNotFound, "no delegable operator")
		}
		stakes, _, err := p.delegatedStakes(ops)
		if err != nil {
			return err
		}

		ratios, totalRatio := registry.DelegationRatios(stakes, amount)
		allocations, remainder, err := allocation.Split(amount, ratios, totalRatio)
		if err != nil {
			return err
		}

		delegated := new(big.Int)
		for i, alloc := range allocations {
			if alloc.Sign() == 0 {
				continue
			}
			if err := p.delegateTo(ops[i], alloc); err != nil {
				return err
			}
			delegated.Add(delegated, alloc)
		}

		// remainder plus reservations is exactly what stays buffered
		p.st.totalBuffered.Add(remainder, p.st.reservedFunds)

		metricDelegationPasses.Inc()
		logger.Info("delegated buffered funds", "amount", delegated, "remainder", remainder, "operators", len(ops))
		return nil
	})
}

// Rebalance pulls excess stake back from over-delegated operators by
// creating pool-owned withdrawal requests against them. The unbonded funds
// return to the buffer when the requests are settled, ready for
// re-delegation.
func (p *Pool) Rebalance() error {
	return p.run("rebalance", func() error {
		ops := p.registry.Withdrawable()
		if len(ops) == 0 {
			return errors.Wrap(protocol.ErrNotFound, "no registered operator")
		}
		stakes, _, err := p.delegatedStakes(ops)
		if err != nil {
			return err
		}

		// funds already on their way back count toward the target
		target := new(big.Int).Sub(p.st.totalBuffered, p.st.reservedFunds)
		target.Add(target, p.queue.PendingPoolAmount())

		ratios, totalRatio, totalToWithdraw := registry.RebalanceRatios(stakes, target)
		if totalToWithdraw.Sign() == 0 {
			return errors.Wrap(protocol.ErrBelowThreshold, "operators are balanced")
		}

		allocations, _, err := allocation.Split(totalToWithdraw, ratios, totalRatio)
		if err != nil {
			return err
		}

		_, horizon, err := p.epochHorizon()
		if err != nil {
			return err
		}
		requested := new(big.Int)
		for i, alloc := range allocations {
			if alloc.Sign() == 0 {
				continue
			}
			if _, err := p.createPoolUnbond(ops[i], alloc, horizon); err != nil {
				return err
			}
			requested.Add(requested, alloc)
		}

		logger.Info("rebalance started", "withdrawing", requested, "operators", len(ops))
		return nil
	})
}

// forceUndelegate unbonds an operator's entire remaining stake into a
// pool-owned withdrawal request. A zero stake produces no request.
func (p *Pool) forceUndelegate(op *registry.Operator) error {
	contract, err := p.bind(op.Contract)
	if err != nil {
		return err
	}
	stake, _, err := contract.CurrentStake(p.addr)
	if err != nil {
		return errors.Wrapf(protocol.ErrExternalCall, "stake at %d: %v", op.ID, err)
	}
	if stake.Sign() == 0 {
		return nil
	}
	_, horizon, err := p.epochHorizon()
	if err != nil {
		return err
	}
	ticket, err := p.createPoolUnbond(op, stake, horizon)
	if err != nil {
		return err
	}
	logger.Info("forced undelegation", "operator", op.ID, "stake", stake, "ticket", ticket)
	return nil
}

// createPoolUnbond starts unbonding amount from op and records a pool-owned
// request for it.
func (p *Pool) createPoolUnbond(op *registry.Operator, amount *big.Int, horizon uint64) (protocol.TicketID, error) {
	leg, err := p.startUnbond(queue.Unbond{Operator: op.ID, Contract: op.Contract, Amount: amount})
	if err != nil {
		return 0, err
	}
	ticket, err := p.mintTicket(p.addr)
	if err != nil {
		return 0, err
	}
	if err := p.queue.Add(&queue.Request{
		Ticket:    ticket,
		Epoch:     horizon,
		PoolOwned: true,
		Legs:      []queue.Leg{leg},
	}); err != nil {
		return 0, err
	}
	return ticket, nil
}

// delegateTo approves and delegates one allocation to an operator.
func (p *Pool) delegateTo(op *registry.Operator, amount *big.Int) error {
	contract, err := p.bind(op.Contract)
	if err != nil {
		return err
	}
	if err := p.token.Approve(op.Contract, amount); err != nil {
		return errors.Wrapf(protocol.ErrExternalCall, "approve %d: %v", op.ID, err)
	}
	if _, err := contract.Delegate(amount, amount); err != nil {
		return errors.Wrapf(protocol.ErrExternalCall, "delegate to %d: %v", op.ID, err)
	}
	return nil
}
