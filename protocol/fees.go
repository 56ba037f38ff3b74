// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package protocol

import (
	"math/big"

	"github.com/pkg/errors"
)

// FeeSchedule splits distributed rewards between the DAO, the operators and
// the insurance beneficiary. Components are whole percentages and must sum
// to exactly 100.
type FeeSchedule struct {
	DAO       uint8
	Operators uint8
	Insurance uint8
}

// Validate returns ErrInvalidInput unless the components sum to 100.
func (f FeeSchedule) Validate() error {
	if int(f.DAO)+int(f.Operators)+int(f.Insurance) != 100 {
		return errors.Wrap(ErrInvalidInput, "fee schedule must sum to 100")
	}
	return nil
}

// Cut returns amount * pct / 100, floored.
func Cut(amount *big.Int, pct uint8) *big.Int {
	cut := new(big.Int).Mul(amount, big.NewInt(int64(pct)))
	return cut.Div(cut, big.NewInt(100))
}
