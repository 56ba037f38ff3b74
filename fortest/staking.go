// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fortest

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

// Staking is an in-memory staking system with a manually advanced epoch
// clock.
type Staking struct {
	mu      sync.Mutex
	records map[protocol.ValidatorID]protocol.ValidatorRecord
	epoch   uint64
	delay   uint64
}

func NewStaking(withdrawalDelay uint64) *Staking {
	return &Staking{
		records: make(map[protocol.ValidatorID]protocol.ValidatorRecord),
		delay:   withdrawalDelay,
	}
}

func (s *Staking) SetRecord(id protocol.ValidatorID, rec protocol.ValidatorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
}

// AdvanceEpoch moves the epoch clock forward by n.
func (s *Staking) AdvanceEpoch(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch += n
}

func (s *Staking) ValidatorRecord(id protocol.ValidatorID) (protocol.ValidatorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return protocol.ValidatorRecord{}, errors.Errorf("unknown validator %d", id)
	}
	return rec, nil
}

func (s *Staking) CurrentEpoch() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch, nil
}

func (s *Staking) WithdrawalDelay() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay, nil
}

// Binder resolves contract addresses to registered fakes.
type Binder struct {
	mu        sync.Mutex
	contracts map[common.Address]protocol.DelegationContract
}

func NewBinder() *Binder {
	return &Binder{contracts: make(map[common.Address]protocol.DelegationContract)}
}

func (b *Binder) Add(addr common.Address, contract protocol.DelegationContract) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contracts[addr] = contract
}

func (b *Binder) Bind(addr common.Address) (protocol.DelegationContract, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	contract, ok := b.contracts[addr]
	if !ok {
		return nil, errors.Errorf("no delegation contract at %s", addr)
	}
	return contract, nil
}
