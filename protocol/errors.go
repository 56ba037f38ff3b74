// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package protocol

import "github.com/pkg/errors"

// Failure taxonomy. Every operation aborts with one of these kinds, usually
// wrapped with call-site context; match with errors.Is.
var (
	// ErrInvalidInput marks zero or out-of-range amounts, malformed
	// addresses and invalid validator ids.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized marks role or ownership check failures.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBelowThreshold marks operation amounts below a configured minimum.
	ErrBelowThreshold = errors.New("below threshold")

	// ErrNotYetClaimable marks a claim attempted before the request epoch.
	ErrNotYetClaimable = errors.New("not yet claimable")

	// ErrNotFound marks unknown ids and tickets.
	ErrNotFound = errors.New("not found")

	// ErrInsufficient marks withdrawal requests exceeding the pooled and
	// buffered capacity minus the per-operator safety floor.
	ErrInsufficient = errors.New("insufficient pooled funds")

	// ErrExternalCall marks an operator or staking-system call that did not
	// complete as expected.
	ErrExternalCall = errors.New("external call failed")

	// ErrReentrancy marks a call back into the engine from an external
	// collaborator while an operation is in flight.
	ErrReentrancy = errors.New("reentrant call")
)
