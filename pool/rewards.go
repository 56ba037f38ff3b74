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
	"github.com/meridianlabs/liquidstake/rewards"
)

// DistributeRewards harvests liquid rewards from every delegable operator,
// skims a tenth of the net yield and splits it by the fee schedule between
// the DAO, the insurance beneficiary and the delegated operators' reward
// addresses. The unskimmed yield and all rounding dust fold back into the
// buffered balance, compounding for claim-token holders.
func (p *Pool) DistributeRewards() (*big.Int, error) {
	distributed := new(big.Int)
	err := p.run("distribute rewards", func() error {
		ops := p.registry.Withdrawable()

		sources := make([]rewards.Source, 0, len(ops))
		for _, op := range ops {
			status, err := p.registry.StatusOf(op.ID)
			if err != nil {
				return err
			}
			contract, err := p.bind(op.Contract)
			if err != nil {
				return err
			}
			sources = append(sources, rewards.Source{Operator: op.ID, Status: status, Contract: contract})
		}
		if err := p.distributor.Harvest(sources); err != nil {
			return err
		}

		held, err := p.token.BalanceOf(p.addr)
		if err != nil {
			return errors.Wrapf(protocol.ErrExternalCall, "held balance: %v", err)
		}
		yield := new(big.Int).Sub(held, p.st.totalBuffered)
		if yield.Sign() < 0 {
			yield.SetInt64(0)
		}
		totalRewards := yield.Div(yield, rewardSkimDivisor)
		if totalRewards.Cmp(p.st.rewardDistributionLowerBound) <= 0 {
			return errors.Wrapf(protocol.ErrBelowThreshold,
				"rewards %s under lower bound %s", totalRewards, p.st.rewardDistributionLowerBound)
		}

		stakes, _, err := p.delegatedStakes(ops)
		if err != nil {
			return err
		}
		var rewardAddrs []common.Address
		for i, op := range ops {
			if stakes[i].Sign() > 0 {
				rewardAddrs = append(rewardAddrs, op.RewardAddress)
			}
		}

		distributed, err = p.distributor.Distribute(totalRewards, p.st.fees, rewardAddrs)
		if err != nil {
			return err
		}

		// whatever was not paid out is buffered and compounds
		held, err = p.token.BalanceOf(p.addr)
		if err != nil {
			return errors.Wrapf(protocol.ErrExternalCall, "held balance: %v", err)
		}
		p.st.totalBuffered.Set(held)

		p.publish()
		metricRewardDistributions.Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return distributed, nil
}
