// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry maintains the set of validator operators the pool
// delegates to. Operator status is never stored; it is derived from the
// staking system's validator record on every read.
package registry

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

var logger = log.New("pkg", "registry")

// Operator is one registered validator operator.
type Operator struct {
	ID            protocol.ValidatorID
	Contract      common.Address // the validator's delegation contract
	RewardAddress common.Address
}

// Registry owns the operator set. Mutations are atomic; reads fail only on
// unknown ids.
type Registry struct {
	staking protocol.StakingSystem
	binder  protocol.DelegationBinder

	operators []*Operator // registration order
	index     map[protocol.ValidatorID]int
}

// New creates an empty registry.
func New(staking protocol.StakingSystem, binder protocol.DelegationBinder) *Registry {
	return &Registry{
		staking: staking,
		binder:  binder,
		index:   make(map[protocol.ValidatorID]int),
	}
}

// Register adds a validator operator. The validator must exist, be ACTIVE
// at this instant and have a delegation contract bound.
func (r *Registry) Register(id protocol.ValidatorID, rewardAddr common.Address) error {
	if id == 0 {
		return errors.Wrap(protocol.ErrInvalidInput, "zero validator id")
	}
	if _, ok := r.index[id]; ok {
		return errors.Wrapf(protocol.ErrInvalidInput, "validator %d already registered", id)
	}

	rec, err := r.staking.ValidatorRecord(id)
	if err != nil {
		return errors.Wrapf(protocol.ErrExternalCall, "validator record for %d: %v", id, err)
	}
	if protocol.DeriveStatus(rec) != protocol.StatusActive {
		return errors.Wrapf(protocol.ErrInvalidInput, "validator %d is not active", id)
	}
	if rec.ContractAddress == (common.Address{}) {
		return errors.Wrapf(protocol.ErrInvalidInput, "validator %d has no delegation contract", id)
	}

	r.index[id] = len(r.operators)
	r.operators = append(r.operators, &Operator{
		ID:            id,
		Contract:      rec.ContractAddress,
		RewardAddress: rewardAddr,
	})

	logger.Info("registered operator", "id", id, "contract", rec.ContractAddress)
	return nil
}

// Deregister removes a validator operator with an unordered swap-and-pop
// and returns the removed record. The caller is responsible for forcing
// undelegation of the operator's remaining stake.
func (r *Registry) Deregister(id protocol.ValidatorID) (*Operator, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, errors.Wrapf(protocol.ErrNotFound, "validator %d", id)
	}

	removed := r.operators[i]
	last := len(r.operators) - 1
	if i != last {
		r.operators[i] = r.operators[last]
		r.index[r.operators[i].ID] = i
	}
	r.operators = r.operators[:last]
	delete(r.index, id)

	logger.Info("deregistered operator", "id", id)
	return removed, nil
}

// Get returns the operator record for id.
func (r *Registry) Get(id protocol.ValidatorID) (*Operator, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, errors.Wrapf(protocol.ErrNotFound, "validator %d", id)
	}
	return r.operators[i], nil
}

// StatusOf recomputes the operator's status from the staking system.
func (r *Registry) StatusOf(id protocol.ValidatorID) (protocol.Status, error) {
	if _, ok := r.index[id]; !ok {
		return protocol.StatusUnknown, errors.Wrapf(protocol.ErrNotFound, "validator %d", id)
	}
	rec, err := r.staking.ValidatorRecord(id)
	if err != nil {
		return protocol.StatusUnknown, errors.Wrapf(protocol.ErrExternalCall, "validator record for %d: %v", id, err)
	}
	return protocol.DeriveStatus(rec), nil
}

// Delegable returns the ACTIVE operators whose delegation contract accepts
// new delegation, in registration order.
func (r *Registry) Delegable() ([]*Operator, error) {
	var out []*Operator
	for _, op := range r.operators {
		rec, err := r.staking.ValidatorRecord(op.ID)
		if err != nil {
			return nil, errors.Wrapf(protocol.ErrExternalCall, "validator record for %d: %v", op.ID, err)
		}
		if protocol.DeriveStatus(rec) != protocol.StatusActive {
			continue
		}
		contract, err := r.binder.Bind(op.Contract)
		if err != nil {
			return nil, errors.Wrapf(protocol.ErrExternalCall, "bind %s: %v", op.Contract, err)
		}
		accepts, err := contract.AcceptsNewDelegation()
		if err != nil {
			return nil, errors.Wrapf(protocol.ErrExternalCall, "delegation capability of %d: %v", op.ID, err)
		}
		if accepts {
			out = append(out, op)
		}
	}
	return out, nil
}

// Withdrawable returns every registered operator regardless of status, in
// registration order. Used when selecting unbonding sources.
func (r *Registry) Withdrawable() []*Operator {
	out := make([]*Operator, len(r.operators))
	copy(out, r.operators)
	return out
}

// Len returns the number of registered operators.
func (r *Registry) Len() int {
	return len(r.operators)
}

// Snapshot captures the operator set so a failed enclosing operation can
// roll the registry back.
func (r *Registry) Snapshot() func() {
	operators := make([]*Operator, len(r.operators))
	copy(operators, r.operators)
	index := make(map[protocol.ValidatorID]int, len(r.index))
	for k, v := range r.index {
		index[k] = v
	}
	return func() {
		r.operators = operators
		r.index = index
	}
}
