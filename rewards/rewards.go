// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rewards harvests liquid rewards from delegation contracts and
// splits the skimmed portion between the DAO, the insurance beneficiary and
// the operators according to the fee schedule.
package rewards

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

var logger = log.New("pkg", "rewards")

// Source is one reward origin: an operator's delegation contract and its
// derived status at harvest time.
type Source struct {
	Operator protocol.ValidatorID
	Status   protocol.Status
	Contract protocol.DelegationContract
}

// Distributor pays reward cuts out of the pool's held balance.
type Distributor struct {
	token     protocol.Token
	pool      common.Address
	dao       common.Address
	insurance common.Address
}

func NewDistributor(token protocol.Token, pool, dao, insurance common.Address) *Distributor {
	return &Distributor{token: token, pool: pool, dao: dao, insurance: insurance}
}

// Harvest claims liquid rewards from every source whose status allows
// delegation and whose pending rewards exceed the contract's minimum claim
// amount. Claimed rewards land in the pool's held balance.
func (d *Distributor) Harvest(sources []Source) error {
	for _, src := range sources {
		if src.Status != protocol.StatusActive {
			continue
		}
		pending, err := src.Contract.LiquidRewards(d.pool)
		if err != nil {
			return errors.Wrapf(protocol.ErrExternalCall, "liquid rewards of %d: %v", src.Operator, err)
		}
		min, err := src.Contract.MinClaimAmount()
		if err != nil {
			return errors.Wrapf(protocol.ErrExternalCall, "min claim amount of %d: %v", src.Operator, err)
		}
		if pending.Cmp(min) <= 0 {
			continue
		}
		if err := src.Contract.ClaimRewards(); err != nil {
			return errors.Wrapf(protocol.ErrExternalCall, "claim rewards of %d: %v", src.Operator, err)
		}
		logger.Debug("harvested rewards", "operator", src.Operator, "amount", pending)
	}
	return nil
}

// Distribute splits total by the fee schedule: the DAO cut, the insurance
// cut, and the operators cut divided evenly across operatorAddrs. Floor
// division residue is NOT paid out; it remains in the pool's held balance.
// Returns the amount actually transferred.
func (d *Distributor) Distribute(
	total *big.Int,
	fees protocol.FeeSchedule,
	operatorAddrs []common.Address,
) (*big.Int, error) {
	if err := fees.Validate(); err != nil {
		return nil, err
	}

	distributed := new(big.Int)

	daoCut := protocol.Cut(total, fees.DAO)
	if err := d.pay(d.dao, daoCut, distributed); err != nil {
		return nil, err
	}
	insuranceCut := protocol.Cut(total, fees.Insurance)
	if err := d.pay(d.insurance, insuranceCut, distributed); err != nil {
		return nil, err
	}

	if len(operatorAddrs) > 0 {
		operatorsCut := protocol.Cut(total, fees.Operators)
		perOperator := new(big.Int).Div(operatorsCut, big.NewInt(int64(len(operatorAddrs))))
		for _, addr := range operatorAddrs {
			if err := d.pay(addr, perOperator, distributed); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("distributed rewards", "total", total, "paid", distributed, "operators", len(operatorAddrs))
	return distributed, nil
}

func (d *Distributor) pay(to common.Address, amount *big.Int, distributed *big.Int) error {
	if amount.Sign() <= 0 {
		return nil
	}
	if err := d.token.Transfer(to, amount); err != nil {
		return errors.Wrapf(protocol.ErrExternalCall, "reward transfer to %s: %v", to, err)
	}
	distributed.Add(distributed, amount)
	return nil
}
