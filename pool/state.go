// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

// state is the pool's owned mutable state. It is only touched from inside
// an operation; a snapshot taken at operation start is restored on failure
// so every operation is all-or-nothing.
type state struct {
	totalBuffered *big.Int // held base asset not yet delegated; >= reservedFunds
	reservedFunds *big.Int // buffered portion earmarked for buffer-path requests

	totalShares *big.Int // claim-token supply
	balances    map[common.Address]*big.Int

	delegationLowerBound         *big.Int
	rewardDistributionLowerBound *big.Int
	submitThreshold              *big.Int
	submitHandlerOn              bool
	fees                         protocol.FeeSchedule

	lastWithdrawnValidatorIndex int // round-robin cursor for unbonding sources
}

func newState(fees protocol.FeeSchedule, delegationLowerBound, rewardDistributionLowerBound *big.Int) *state {
	if delegationLowerBound == nil {
		delegationLowerBound = new(big.Int)
	}
	if rewardDistributionLowerBound == nil {
		rewardDistributionLowerBound = new(big.Int)
	}
	return &state{
		totalBuffered:                new(big.Int),
		reservedFunds:                new(big.Int),
		totalShares:                  new(big.Int),
		balances:                     make(map[common.Address]*big.Int),
		delegationLowerBound:         new(big.Int).Set(delegationLowerBound),
		rewardDistributionLowerBound: new(big.Int).Set(rewardDistributionLowerBound),
		submitThreshold:              new(big.Int),
		fees:                         fees,
	}
}

// snapshot returns a closure restoring the state as it is now.
func (s *state) snapshot() func() {
	saved := state{
		totalBuffered:                new(big.Int).Set(s.totalBuffered),
		reservedFunds:                new(big.Int).Set(s.reservedFunds),
		totalShares:                  new(big.Int).Set(s.totalShares),
		balances:                     make(map[common.Address]*big.Int, len(s.balances)),
		delegationLowerBound:         new(big.Int).Set(s.delegationLowerBound),
		rewardDistributionLowerBound: new(big.Int).Set(s.rewardDistributionLowerBound),
		submitThreshold:              new(big.Int).Set(s.submitThreshold),
		submitHandlerOn:              s.submitHandlerOn,
		fees:                         s.fees,
		lastWithdrawnValidatorIndex:  s.lastWithdrawnValidatorIndex,
	}
	for addr, bal := range s.balances {
		saved.balances[addr] = new(big.Int).Set(bal)
	}
	return func() {
		*s = saved
	}
}

// mint credits freshly priced claim tokens.
func (s *state) mint(owner common.Address, shares *big.Int) {
	bal, ok := s.balances[owner]
	if !ok {
		bal = new(big.Int)
		s.balances[owner] = bal
	}
	bal.Add(bal, shares)
	s.totalShares.Add(s.totalShares, shares)
}

// burn destroys claim tokens held by owner.
func (s *state) burn(owner common.Address, shares *big.Int) error {
	bal := s.balances[owner]
	if bal == nil || bal.Cmp(shares) < 0 {
		return errors.Wrap(protocol.ErrInsufficient, "claim-token balance too low")
	}
	bal.Sub(bal, shares)
	s.totalShares.Sub(s.totalShares, shares)
	if bal.Sign() == 0 {
		delete(s.balances, owner)
	}
	return nil
}
