// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/pricing"
	"github.com/meridianlabs/liquidstake/protocol"
	"github.com/meridianlabs/liquidstake/queue"
	"github.com/meridianlabs/liquidstake/registry"
)

// RequestWithdraw burns caller's claim tokens and queues a withdrawal for
// the priced amount. When buffered funds cover the amount it is reserved
// directly; otherwise unbonding is started against operators selected
// round-robin. The returned claim ticket settles the request after the
// staking system's withdrawal delay.
func (p *Pool) RequestWithdraw(caller common.Address, shares *big.Int) (protocol.TicketID, error) {
	var ticket protocol.TicketID
	err := p.run("request withdraw", func() error {
		if err := pricing.CheckAmount(shares); err != nil {
			return err
		}

		ops := p.registry.Withdrawable()
		stakes, totalDelegated, err := p.delegatedStakes(ops)
		if err != nil {
			return err
		}
		pooled := new(big.Int).Add(totalDelegated, p.st.totalBuffered)
		pooled.Sub(pooled, p.st.reservedFunds)

		amount := pricing.SharesToAsset(shares, p.st.totalShares, pooled)
		if amount.Sign() == 0 {
			return errors.Wrap(protocol.ErrInvalidInput, "withdrawal prices to zero")
		}

		// burn first; the ticket is the only remaining claim on the funds
		if err := p.st.burn(caller, shares); err != nil {
			return err
		}

		_, horizon, err := p.epochHorizon()
		if err != nil {
			return err
		}

		free := new(big.Int).Sub(p.st.totalBuffered, p.st.reservedFunds)
		if free.Cmp(amount) >= 0 {
			ticket, err = p.mintTicket(caller)
			if err != nil {
				return err
			}
			p.st.reservedFunds.Add(p.st.reservedFunds, amount)
			if err := p.queue.Add(&queue.Request{
				Ticket: ticket,
				Epoch:  horizon,
				Legs:   []queue.Leg{queue.BufferLeg(amount)},
			}); err != nil {
				return err
			}
		} else {
			plan, cursor, err := queue.PlanUnbonds(
				unbondStops(ops, stakes),
				p.st.lastWithdrawnValidatorIndex,
				amount,
				p.st.totalBuffered,
			)
			if err != nil {
				return err
			}
			ticket, err = p.mintTicket(caller)
			if err != nil {
				return err
			}
			legs := make([]queue.Leg, 0, len(plan))
			for _, unbond := range plan {
				leg, err := p.startUnbond(unbond)
				if err != nil {
					return err
				}
				legs = append(legs, leg)
			}
			p.st.lastWithdrawnValidatorIndex = cursor
			if err := p.queue.Add(&queue.Request{Ticket: ticket, Epoch: horizon, Legs: legs}); err != nil {
				return err
			}
		}

		p.publish()
		metricWithdrawRequests.Inc()
		logger.Info("withdrawal requested", "from", caller, "shares", shares, "amount", amount, "ticket", ticket)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return ticket, nil
}

// Claim settles a claimable withdrawal request and pays the caller. The
// ticket is burned and the record deleted before any payout, so a second
// claim fails with ErrNotFound.
func (p *Pool) Claim(caller common.Address, ticket protocol.TicketID) (*big.Int, error) {
	paid := new(big.Int)
	err := p.run("claim", func() error {
		req, err := p.claimableRequest(caller, ticket)
		if err != nil {
			return err
		}
		if err := p.consumeTicket(ticket); err != nil {
			return err
		}

		for _, leg := range req.Legs {
			if leg.AmountFromBuffer != nil {
				p.st.totalBuffered.Sub(p.st.totalBuffered, leg.AmountFromBuffer)
				p.st.reservedFunds.Sub(p.st.reservedFunds, leg.AmountFromBuffer)
				if err := p.token.Transfer(caller, leg.AmountFromBuffer); err != nil {
					return errors.Wrapf(protocol.ErrExternalCall, "payout transfer: %v", err)
				}
				paid.Add(paid, leg.AmountFromBuffer)
				continue
			}
			released, err := p.finalizeUnbond(leg)
			if err != nil {
				return err
			}
			if err := p.token.Transfer(caller, released); err != nil {
				return errors.Wrapf(protocol.ErrExternalCall, "payout transfer: %v", err)
			}
			paid.Add(paid, released)
		}

		p.publish()
		metricClaims.Inc()
		logger.Info("claim settled", "to", caller, "ticket", ticket, "paid", paid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// ClaimPoolRequest settles a claimable pool-owned request (created by
// rebalancing or forced undelegation); released funds return to the
// buffered balance instead of leaving the pool. Anyone may trigger it.
func (p *Pool) ClaimPoolRequest(ticket protocol.TicketID) (*big.Int, error) {
	credited := new(big.Int)
	err := p.run("claim pool request", func() error {
		req, err := p.claimableRequest(p.addr, ticket)
		if err != nil {
			return err
		}
		if !req.PoolOwned {
			return errors.Wrapf(protocol.ErrUnauthorized, "ticket %d is not pool-owned", ticket)
		}
		if err := p.consumeTicket(ticket); err != nil {
			return err
		}

		for _, leg := range req.Legs {
			if leg.AmountFromBuffer != nil {
				// funds never left the buffer; just release the reservation
				p.st.reservedFunds.Sub(p.st.reservedFunds, leg.AmountFromBuffer)
				credited.Add(credited, leg.AmountFromBuffer)
				continue
			}
			released, err := p.finalizeUnbond(leg)
			if err != nil {
				return err
			}
			p.st.totalBuffered.Add(p.st.totalBuffered, released)
			credited.Add(credited, released)
		}

		p.publish()
		logger.Info("pool request settled", "ticket", ticket, "credited", credited)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return credited, nil
}

// claimableRequest checks ownership and epoch gating of a pending request.
func (p *Pool) claimableRequest(owner common.Address, ticket protocol.TicketID) (*queue.Request, error) {
	actual, err := p.tickets.OwnerOf(ticket)
	if err != nil {
		return nil, errors.Wrapf(protocol.ErrNotFound, "ticket %d: %v", ticket, err)
	}
	if actual != owner {
		return nil, errors.Wrapf(protocol.ErrUnauthorized, "ticket %d is not held by %s", ticket, owner)
	}
	req, err := p.queue.Get(ticket)
	if err != nil {
		return nil, err
	}
	epoch, err := p.staking.CurrentEpoch()
	if err != nil {
		return nil, errors.Wrapf(protocol.ErrExternalCall, "current epoch: %v", err)
	}
	if !req.Claimable(epoch) {
		return nil, errors.Wrapf(protocol.ErrNotYetClaimable, "epoch %d of %d", epoch, req.Epoch)
	}
	return req, nil
}

// consumeTicket burns the ticket and deletes the request record. This
// happens strictly before any payout.
func (p *Pool) consumeTicket(ticket protocol.TicketID) error {
	if err := p.tickets.Burn(ticket); err != nil {
		return errors.Wrapf(protocol.ErrExternalCall, "burn ticket %d: %v", ticket, err)
	}
	p.queue.Remove(ticket)
	return nil
}

func (p *Pool) mintTicket(owner common.Address) (protocol.TicketID, error) {
	ticket, err := p.tickets.Mint(owner)
	if err != nil {
		return 0, errors.Wrapf(protocol.ErrExternalCall, "mint ticket: %v", err)
	}
	return ticket, nil
}

// startUnbond executes one planned unbonding leg against its operator.
func (p *Pool) startUnbond(unbond queue.Unbond) (queue.Leg, error) {
	contract, err := p.bind(unbond.Contract)
	if err != nil {
		return queue.Leg{}, err
	}
	if err := contract.Undelegate(unbond.Amount, unbond.Amount); err != nil {
		return queue.Leg{}, errors.Wrapf(protocol.ErrExternalCall, "undelegate from %d: %v", unbond.Operator, err)
	}
	nonce, err := contract.UnbondNonce(p.addr)
	if err != nil {
		return queue.Leg{}, errors.Wrapf(protocol.ErrExternalCall, "unbond nonce of %d: %v", unbond.Operator, err)
	}
	return queue.UnbondLeg(unbond.Operator, unbond.Contract, nonce, unbond.Amount), nil
}

// finalizeUnbond completes a validator-path leg, returning the amount the
// contract actually released (exchange-rate drift may exceed the request).
func (p *Pool) finalizeUnbond(leg queue.Leg) (*big.Int, error) {
	contract, err := p.bind(leg.Contract)
	if err != nil {
		return nil, err
	}
	released, err := contract.FinalizeUnbond(leg.UnbondNonce)
	if err != nil {
		return nil, errors.Wrapf(protocol.ErrExternalCall, "finalize unbond %d at %d: %v", leg.UnbondNonce, leg.Operator, err)
	}
	return released, nil
}

func unbondStops(ops []*registry.Operator, stakes []*big.Int) []queue.Stop {
	stops := make([]queue.Stop, len(ops))
	for i, op := range ops {
		stops[i] = queue.Stop{Operator: op.ID, Contract: op.Contract, Stake: stakes[i]}
	}
	return stops
}
