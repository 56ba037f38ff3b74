// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/meridianlabs/liquidstake/pricing"
	"github.com/meridianlabs/liquidstake/protocol"
)

// RegisterOperator adds a validator operator to the registry. DAO only.
func (p *Pool) RegisterOperator(caller common.Address, id protocol.ValidatorID, rewardAddr common.Address) error {
	return p.run("register operator", func() error {
		if err := p.requireDAO(caller); err != nil {
			return err
		}
		if err := p.registry.Register(id, rewardAddr); err != nil {
			return err
		}
		metricOperators.Set(float64(p.registry.Len()))
		return nil
	})
}

// DeregisterOperator removes a validator operator and force-undelegates its
// entire remaining stake into a pool-owned withdrawal request. DAO only.
func (p *Pool) DeregisterOperator(caller common.Address, id protocol.ValidatorID) error {
	return p.run("deregister operator", func() error {
		if err := p.requireDAO(caller); err != nil {
			return err
		}
		removed, err := p.registry.Deregister(id)
		if err != nil {
			return err
		}
		if err := p.forceUndelegate(removed); err != nil {
			return err
		}
		metricOperators.Set(float64(p.registry.Len()))
		return nil
	})
}

// ForceUndelegate unbonds an operator's full stake into a pool-owned
// withdrawal request without removing it from the registry. DAO only.
func (p *Pool) ForceUndelegate(caller common.Address, id protocol.ValidatorID) error {
	return p.run("force undelegate", func() error {
		if err := p.requireDAO(caller); err != nil {
			return err
		}
		op, err := p.registry.Get(id)
		if err != nil {
			return err
		}
		return p.forceUndelegate(op)
	})
}

// SetFees replaces the fee schedule. The components must sum to 100.
func (p *Pool) SetFees(caller common.Address, fees protocol.FeeSchedule) error {
	return p.run("set fees", func() error {
		if err := p.requireDAO(caller); err != nil {
			return err
		}
		if err := fees.Validate(); err != nil {
			return err
		}
		p.st.fees = fees
		logger.Info("fee schedule updated", "dao", fees.DAO, "operators", fees.Operators, "insurance", fees.Insurance)
		return nil
	})
}

// SetDelegationLowerBound sets the minimum unreserved buffer worth
// delegating.
func (p *Pool) SetDelegationLowerBound(caller common.Address, bound *big.Int) error {
	return p.setBound(caller, "delegation lower bound", p.st.delegationLowerBound, bound)
}

// SetRewardDistributionLowerBound sets the minimum skimmed reward worth
// distributing.
func (p *Pool) SetRewardDistributionLowerBound(caller common.Address, bound *big.Int) error {
	return p.setBound(caller, "reward distribution lower bound", p.st.rewardDistributionLowerBound, bound)
}

// SetSubmitThreshold sets the per-deposit cap enforced while the submit
// handler is on.
func (p *Pool) SetSubmitThreshold(caller common.Address, threshold *big.Int) error {
	return p.run("set submit threshold", func() error {
		if err := p.requireDAO(caller); err != nil {
			return err
		}
		if err := pricing.CheckAmount(threshold); err != nil {
			return err
		}
		p.st.submitThreshold.Set(threshold)
		logger.Info("submit threshold updated", "threshold", threshold)
		return nil
	})
}

// SetSubmitHandler toggles deposit cap enforcement.
func (p *Pool) SetSubmitHandler(caller common.Address, on bool) error {
	return p.run("set submit handler", func() error {
		if err := p.requireDAO(caller); err != nil {
			return err
		}
		p.st.submitHandlerOn = on
		logger.Info("submit handler toggled", "on", on)
		return nil
	})
}

func (p *Pool) setBound(caller common.Address, name string, dst, value *big.Int) error {
	return p.run("set "+name, func() error {
		if err := p.requireDAO(caller); err != nil {
			return err
		}
		if value == nil || value.Sign() < 0 {
			return protocol.ErrInvalidInput
		}
		dst.Set(value)
		logger.Info(name+" updated", "value", value)
		return nil
	})
}
