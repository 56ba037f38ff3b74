// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fortest

import (
	"encoding/binary"
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"

	"github.com/meridianlabs/liquidstake/protocol"
)

// RandAddress returns a random address.
func RandAddress() common.Address {
	var addr common.Address
	rand.Read(addr[:]) // #nosec G404
	return addr
}

// Tokens returns n whole tokens in 18-decimal base units.
func Tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// Env wires a full set of collaborator fakes around a pool under test.
type Env struct {
	Staking *Staking
	Binder  *Binder
	Tickets *Tickets
	Ledger  *Ledger
	Mirror  *Mirror

	Contracts map[protocol.ValidatorID]*Delegation
}

// NewEnv creates an environment with the given withdrawal delay and
// validators 1..n, all active with a bound delegation contract.
func NewEnv(withdrawalDelay uint64, validators int) *Env {
	env := &Env{
		Staking:   NewStaking(withdrawalDelay),
		Binder:    NewBinder(),
		Tickets:   NewTickets(),
		Ledger:    NewLedger(),
		Mirror:    &Mirror{},
		Contracts: make(map[protocol.ValidatorID]*Delegation),
	}
	for i := 1; i <= validators; i++ {
		env.AddValidator(protocol.ValidatorID(i))
	}
	return env
}

// AddValidator registers an active validator with a fresh delegation
// contract in the staking fake.
func (e *Env) AddValidator(id protocol.ValidatorID) *Delegation {
	var addr common.Address
	addr[0] = 0xd1
	binary.BigEndian.PutUint64(addr[12:], uint64(id))

	contract := NewDelegation(addr, e.Ledger)
	e.Contracts[id] = contract
	e.Binder.Add(addr, contract)
	e.Staking.SetRecord(id, protocol.ValidatorRecord{
		State:           protocol.ValidatorStateActive,
		ContractAddress: addr,
	})
	return contract
}

// BindPool points every delegation contract at the pool address.
func (e *Env) BindPool(pool common.Address) {
	for _, contract := range e.Contracts {
		contract.BindHolder(pool)
	}
}
