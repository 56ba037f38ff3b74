// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import "math/big"

// DelegationRatios computes the per-operator ratio vector for allocating a
// buffered amount. Each operator's ratio is its shortfall below the average
// stake after the amount has been absorbed, so delegation pulls the set
// toward equal stakes. Operators at or above the target get ratio zero.
func DelegationRatios(stakes []*big.Int, amount *big.Int) (ratios []*big.Int, totalRatio *big.Int) {
	ratios = make([]*big.Int, len(stakes))
	totalRatio = new(big.Int)
	if len(stakes) == 0 {
		return ratios, totalRatio
	}

	target := new(big.Int).Set(amount)
	for _, s := range stakes {
		target.Add(target, s)
	}
	target.Div(target, big.NewInt(int64(len(stakes))))

	for i, s := range stakes {
		shortfall := new(big.Int).Sub(target, s)
		if shortfall.Sign() < 0 {
			shortfall.SetInt64(0)
		}
		ratios[i] = shortfall
		totalRatio.Add(totalRatio, shortfall)
	}
	return ratios, totalRatio
}

// RebalanceRatios computes the per-operator ratio vector for unbonding
// stake back toward equal distribution, together with the total amount to
// withdraw. Each operator's ratio is its excess above the average stake;
// the total to withdraw is that excess capped by the requested target.
func RebalanceRatios(stakes []*big.Int, target *big.Int) (ratios []*big.Int, totalRatio, totalToWithdraw *big.Int) {
	ratios = make([]*big.Int, len(stakes))
	totalRatio = new(big.Int)
	totalToWithdraw = new(big.Int)
	if len(stakes) == 0 {
		return ratios, totalRatio, totalToWithdraw
	}

	avg := new(big.Int)
	for _, s := range stakes {
		avg.Add(avg, s)
	}
	avg.Div(avg, big.NewInt(int64(len(stakes))))

	for i, s := range stakes {
		excess := new(big.Int).Sub(s, avg)
		if excess.Sign() < 0 {
			excess.SetInt64(0)
		}
		ratios[i] = excess
		totalRatio.Add(totalRatio, excess)
	}

	totalToWithdraw.Set(totalRatio)
	if target != nil && totalToWithdraw.Cmp(target) > 0 {
		totalToWithdraw.Set(target)
	}
	return ratios, totalRatio, totalToWithdraw
}
