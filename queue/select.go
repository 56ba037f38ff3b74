// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package queue

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

var ten = big.NewInt(10)

// Stop is one unbonding source candidate: an operator and its current
// delegated stake.
type Stop struct {
	Operator protocol.ValidatorID
	Contract common.Address
	Stake    *big.Int
}

// Unbond is one planned unbonding leg.
type Unbond struct {
	Operator protocol.ValidatorID
	Contract common.Address
	Amount   *big.Int
}

// PlanUnbonds selects unbonding sources for amount, walking the stops
// round-robin from cursor. Every stop keeps at least 10% of its current
// stake; stops that cannot preserve that floor are skipped. Before any
// split, the availability of the whole pool is checked:
//
//	totalDelegated + totalBuffered >= amount + minStopBalance*len(stops)
//
// where minStopBalance is the smallest non-zero per-stop floor. Returns the
// planned legs and the advanced cursor.
func PlanUnbonds(stops []Stop, cursor int, amount, totalBuffered *big.Int) ([]Unbond, int, error) {
	if len(stops) == 0 {
		return nil, cursor, errors.Wrap(protocol.ErrInsufficient, "no unbonding sources")
	}

	totalDelegated := new(big.Int)
	var minFloor *big.Int
	for _, stop := range stops {
		totalDelegated.Add(totalDelegated, stop.Stake)
		if stop.Stake.Sign() > 0 {
			floor := new(big.Int).Div(stop.Stake, ten)
			if minFloor == nil || floor.Cmp(minFloor) < 0 {
				minFloor = floor
			}
		}
	}
	if minFloor == nil {
		minFloor = new(big.Int)
	}

	required := new(big.Int).Mul(minFloor, big.NewInt(int64(len(stops))))
	required.Add(required, amount)
	available := new(big.Int).Add(totalDelegated, totalBuffered)
	if available.Cmp(required) < 0 {
		return nil, cursor, errors.Wrapf(protocol.ErrInsufficient,
			"requested %s exceeds available %s minus safety floor", amount, available)
	}

	need := new(big.Int).Set(amount)
	var legs []Unbond
	newCursor := cursor
	for i := range stops {
		if need.Sign() == 0 {
			break
		}
		idx := (cursor + i) % len(stops)
		stop := stops[idx]

		// the stop keeps 10% of its current stake
		floor := new(big.Int).Div(stop.Stake, ten)
		takeable := new(big.Int).Sub(stop.Stake, floor)
		if takeable.Sign() <= 0 {
			continue
		}
		take := takeable
		if need.Cmp(takeable) < 0 {
			take = need
		}

		legs = append(legs, Unbond{
			Operator: stop.Operator,
			Contract: stop.Contract,
			Amount:   new(big.Int).Set(take),
		})
		need.Sub(need, take)
		newCursor = idx + 1
	}

	if need.Sign() > 0 {
		return nil, cursor, errors.Wrapf(protocol.ErrInsufficient,
			"operators can release only %s of %s", new(big.Int).Sub(amount, need), amount)
	}
	return legs, newCursor % len(stops), nil
}
