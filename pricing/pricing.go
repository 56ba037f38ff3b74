// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pricing holds the pure conversion arithmetic between the base
// asset and the pool's claim token. All math is unsigned integer with floor
// division; truncation favors the pool on mint and pays the withdrawer the
// floor of their entitlement on redemption.
package pricing

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

var one = big.NewInt(1)

// AssetToShares prices amount of the base asset in claim tokens given the
// current token supply and total pooled value. An empty pool prices 1:1.
func AssetToShares(amount, totalShares, totalPooled *big.Int) *big.Int {
	shares := new(big.Int).Mul(amount, orOne(totalShares))
	return shares.Div(shares, orOne(totalPooled))
}

// SharesToAsset is the inverse of AssetToShares under the same supply and
// pooled value, modulo floor-division dust.
func SharesToAsset(shares, totalShares, totalPooled *big.Int) *big.Int {
	amount := new(big.Int).Mul(shares, orOne(totalPooled))
	return amount.Div(amount, orOne(totalShares))
}

// CheckAmount rejects amounts that cannot exist in the asset domain: nil,
// non-positive, or wider than an unsigned 256-bit integer.
func CheckAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.Wrap(protocol.ErrInvalidInput, "amount must be positive")
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return errors.Wrap(protocol.ErrInvalidInput, "amount exceeds 256 bits")
	}
	return nil
}

func orOne(x *big.Int) *big.Int {
	if x == nil || x.Sign() == 0 {
		return one
	}
	return x
}
