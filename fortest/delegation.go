// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fortest

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

// Delegation is an in-memory delegation contract for a single validator.
// Unbonds can be configured to release more than requested (ReleaseBonusBps)
// to model exchange-rate drift during the unbonding period.
type Delegation struct {
	mu sync.Mutex

	addr   common.Address
	ledger *Ledger
	holder common.Address // the pool, set by BindHolder

	stakes   map[common.Address]*big.Int
	rate     *big.Int
	rewards  map[common.Address]*big.Int
	minClaim *big.Int
	accepts  bool

	nonces    map[common.Address]protocol.UnbondNonce
	unbonding map[protocol.UnbondNonce]*big.Int

	// ReleaseBonusBps inflates released unbonds by amount*bps/10000.
	ReleaseBonusBps int64
	// FailNext makes the next mutating call fail, once.
	FailNext error
}

func NewDelegation(addr common.Address, ledger *Ledger) *Delegation {
	return &Delegation{
		addr:      addr,
		ledger:    ledger,
		stakes:    make(map[common.Address]*big.Int),
		rate:      big.NewInt(1),
		rewards:   make(map[common.Address]*big.Int),
		minClaim:  big.NewInt(1),
		accepts:   true,
		nonces:    make(map[common.Address]protocol.UnbondNonce),
		unbonding: make(map[protocol.UnbondNonce]*big.Int),
	}
}

// Addr returns the contract's address.
func (d *Delegation) Addr() common.Address { return d.addr }

// BindHolder sets the pool address whose calls this fake serves.
func (d *Delegation) BindHolder(holder common.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.holder = holder
}

// SetAccepts toggles whether new delegation is accepted.
func (d *Delegation) SetAccepts(accepts bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accepts = accepts
}

// SetMinClaim sets the minimum reward amount worth claiming.
func (d *Delegation) SetMinClaim(min *big.Int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.minClaim = new(big.Int).Set(min)
}

// AccrueRewards adds pending liquid rewards for the bound holder.
func (d *Delegation) AccrueRewards(amount *big.Int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addReward(d.holder, amount)
}

func (d *Delegation) addReward(holder common.Address, amount *big.Int) {
	r, ok := d.rewards[holder]
	if !ok {
		r = new(big.Int)
		d.rewards[holder] = r
	}
	r.Add(r, amount)
}

func (d *Delegation) takeFailure() error {
	err := d.FailNext
	d.FailNext = nil
	return err
}

func (d *Delegation) stakeOf(holder common.Address) *big.Int {
	s, ok := d.stakes[holder]
	if !ok {
		s = new(big.Int)
		d.stakes[holder] = s
	}
	return s
}

func (d *Delegation) Delegate(amount, minAccepted *big.Int) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	if amount.Cmp(minAccepted) < 0 {
		return nil, errors.New("below min accepted")
	}
	// pull the approved funds from the holder
	if err := d.ledger.View(d.addr).TransferFrom(d.holder, d.addr, amount); err != nil {
		return nil, err
	}
	d.stakeOf(d.holder).Add(d.stakeOf(d.holder), amount)
	return new(big.Int).Set(amount), nil
}

func (d *Delegation) Undelegate(amount, maxSharesToBurn *big.Int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return err
	}
	stake := d.stakeOf(d.holder)
	if stake.Cmp(amount) < 0 {
		return errors.New("undelegate exceeds stake")
	}
	stake.Sub(stake, amount)

	nonce := d.nonces[d.holder] + 1
	d.nonces[d.holder] = nonce
	d.unbonding[nonce] = new(big.Int).Set(amount)
	return nil
}

func (d *Delegation) FinalizeUnbond(nonce protocol.UnbondNonce) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return nil, err
	}
	amount, ok := d.unbonding[nonce]
	if !ok {
		return nil, errors.Errorf("unknown unbond nonce %d", nonce)
	}
	delete(d.unbonding, nonce)

	released := new(big.Int).Set(amount)
	if d.ReleaseBonusBps != 0 {
		bonus := new(big.Int).Mul(amount, big.NewInt(d.ReleaseBonusBps))
		bonus.Div(bonus, big.NewInt(10000))
		released.Add(released, bonus)
		d.ledger.Mint(d.addr, bonus) // drift is paid by the staking system
	}
	if err := d.ledger.View(d.addr).Transfer(d.holder, released); err != nil {
		return nil, err
	}
	return released, nil
}

func (d *Delegation) CurrentStake(holder common.Address) (*big.Int, *big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return new(big.Int).Set(d.stakeOf(holder)), new(big.Int).Set(d.rate), nil
}

func (d *Delegation) LiquidRewards(holder common.Address) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.rewards[holder]; ok {
		return new(big.Int).Set(r), nil
	}
	return new(big.Int), nil
}

func (d *Delegation) ClaimRewards() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(); err != nil {
		return err
	}
	r, ok := d.rewards[d.holder]
	if !ok || r.Sign() == 0 {
		return nil
	}
	d.ledger.Mint(d.holder, r)
	d.rewards[d.holder] = new(big.Int)
	return nil
}

func (d *Delegation) MinClaimAmount() (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return new(big.Int).Set(d.minClaim), nil
}

func (d *Delegation) AcceptsNewDelegation() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepts, nil
}

func (d *Delegation) UnbondNonce(holder common.Address) (protocol.UnbondNonce, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nonces[holder], nil
}
