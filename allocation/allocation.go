// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package allocation implements the proportional split used by the
// delegation allocator. It is pure planning: callers execute the legs.
package allocation

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

// Split allocates amount across len(ratios) slots, each receiving
// ratio[i] * amount / totalRatio floored. A zero totalRatio falls back to an
// equal-weight split. Slots with ratio zero receive nothing. The remainder
// (amount minus the sum of all allocations) is returned alongside; the
// invariant sum(allocations) + remainder == amount always holds.
func Split(amount *big.Int, ratios []*big.Int, totalRatio *big.Int) (allocations []*big.Int, remainder *big.Int, err error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, nil, errors.Wrap(protocol.ErrInvalidInput, "split amount must be non-negative")
	}
	if len(ratios) == 0 {
		return nil, new(big.Int).Set(amount), nil
	}

	equalWeight := totalRatio == nil || totalRatio.Sign() == 0
	if equalWeight {
		totalRatio = big.NewInt(int64(len(ratios)))
	}

	allocations = make([]*big.Int, len(ratios))
	allocated := new(big.Int)
	for i, ratio := range ratios {
		if equalWeight {
			ratio = one
		}
		if ratio == nil || ratio.Sign() == 0 {
			allocations[i] = new(big.Int)
			continue
		}
		share := new(big.Int).Mul(amount, ratio)
		share.Div(share, totalRatio)
		allocations[i] = share
		allocated.Add(allocated, share)
	}

	return allocations, new(big.Int).Sub(amount, allocated), nil
}

var one = big.NewInt(1)
