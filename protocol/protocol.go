// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package protocol defines the types shared by every component of the
// liquid-staking engine and the interfaces of the external systems it
// collaborates with: the staking system, per-validator delegation
// contracts, the claim-ticket authority, the base asset and the state
// mirror channel. None of these collaborators are implemented here.
package protocol

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ValidatorID identifies a validator in the staking system. Zero is never
// a valid id.
type ValidatorID uint64

// TicketID identifies a claim ticket minted by the ticket authority for a
// pending withdrawal request.
type TicketID uint64

// UnbondNonce is a handle into a delegation contract's unbonding ledger.
type UnbondNonce uint64

// ValidatorState is the raw lifecycle state tracked by the staking system.
// It is a fact about the validator, not about this pool.
type ValidatorState uint8

const (
	ValidatorStateInactive ValidatorState = iota
	ValidatorStateActive
	ValidatorStateLocked
	ValidatorStateUnstaked
)

// ValidatorRecord is the staking system's view of a validator.
type ValidatorRecord struct {
	State             ValidatorState
	ContractAddress   common.Address // delegation contract bound to the validator
	DeactivationEpoch uint64         // non-zero once the validator is scheduled out
}

// StakingSystem exposes the read-only facts this engine consumes from the
// underlying staking layer. Facts may be stale; they are never mutated here.
type StakingSystem interface {
	ValidatorRecord(id ValidatorID) (ValidatorRecord, error)
	CurrentEpoch() (uint64, error)
	WithdrawalDelay() (uint64, error)
}

// DelegationContract buys and sells stake on behalf of the pool for a
// single validator and accrues its rewards.
type DelegationContract interface {
	// Delegate moves amount into the validator's stake. minAccepted guards
	// against exchange-rate movement; the amount actually used is returned.
	Delegate(amount, minAccepted *big.Int) (*big.Int, error)

	// Undelegate starts unbonding amount of stake. maxSharesToBurn guards
	// against exchange-rate movement.
	Undelegate(amount, maxSharesToBurn *big.Int) error

	// FinalizeUnbond completes an unbonding operation once the staking
	// system's delay has elapsed, returning the amount actually released.
	FinalizeUnbond(nonce UnbondNonce) (*big.Int, error)

	// CurrentStake returns the holder's stake and the contract's current
	// share exchange rate.
	CurrentStake(holder common.Address) (amount, rate *big.Int, err error)

	LiquidRewards(holder common.Address) (*big.Int, error)
	ClaimRewards() error
	MinClaimAmount() (*big.Int, error)
	AcceptsNewDelegation() (bool, error)

	// UnbondNonce returns the holder's latest unbonding nonce.
	UnbondNonce(holder common.Address) (UnbondNonce, error)
}

// DelegationBinder resolves a delegation contract address into a callable
// client. The registry stores addresses; callers bind on use.
type DelegationBinder interface {
	Bind(addr common.Address) (DelegationContract, error)
}

// TicketAuthority mints and burns the unique claim tickets that represent
// pending withdrawal requests.
type TicketAuthority interface {
	Mint(owner common.Address) (TicketID, error)
	Burn(id TicketID) error
	OwnerOf(id TicketID) (common.Address, error)
	TicketsOf(owner common.Address) ([]TicketID, error)
}

// Token is the base asset. Transfers fail atomically; there are no partial
// transfers.
type Token interface {
	Transfer(to common.Address, amount *big.Int) error
	TransferFrom(from, to common.Address, amount *big.Int) error
	Approve(spender common.Address, amount *big.Int) error
	BalanceOf(owner common.Address) (*big.Int, error)
}

// StateMirror receives best-effort notifications of the pool's headline
// figures. It is not required for correctness.
type StateMirror interface {
	Publish(totalShares, totalPooled *big.Int) error
}
