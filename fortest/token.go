// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fortest provides deterministic in-memory implementations of the
// engine's external collaborators, for tests and the simulator CLI.
package fortest

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

// Ledger is an in-memory base-asset ledger with ERC20-like allowances.
type Ledger struct {
	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits amount to addr out of thin air. Test setup only.
func (l *Ledger) Mint(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(addr, amount)
}

func (l *Ledger) credit(addr common.Address, amount *big.Int) {
	bal, ok := l.balances[addr]
	if !ok {
		bal = new(big.Int)
		l.balances[addr] = bal
	}
	bal.Add(bal, amount)
}

func (l *Ledger) debit(addr common.Address, amount *big.Int) error {
	bal := l.balances[addr]
	if bal == nil || bal.Cmp(amount) < 0 {
		return errors.Errorf("balance of %s too low", addr)
	}
	bal.Sub(bal, amount)
	return nil
}

func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bal, ok := l.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// View returns a protocol.Token bound to holder as the caller identity.
func (l *Ledger) View(holder common.Address) protocol.Token {
	return &boundToken{ledger: l, caller: holder}
}

type boundToken struct {
	ledger *Ledger
	caller common.Address
}

func (t *boundToken) Transfer(to common.Address, amount *big.Int) error {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	if err := t.ledger.debit(t.caller, amount); err != nil {
		return err
	}
	t.ledger.credit(to, amount)
	return nil
}

func (t *boundToken) TransferFrom(from, to common.Address, amount *big.Int) error {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()

	if from != t.caller {
		allowed := t.ledger.allowances[from][t.caller]
		if allowed == nil || allowed.Cmp(amount) < 0 {
			return errors.Errorf("allowance of %s for %s too low", from, t.caller)
		}
		allowed.Sub(allowed, amount)
	}
	if err := t.ledger.debit(from, amount); err != nil {
		return err
	}
	t.ledger.credit(to, amount)
	return nil
}

func (t *boundToken) Approve(spender common.Address, amount *big.Int) error {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()

	owner := t.ledger.allowances[t.caller]
	if owner == nil {
		owner = make(map[common.Address]*big.Int)
		t.ledger.allowances[t.caller] = owner
	}
	owner[spender] = new(big.Int).Set(amount)
	return nil
}

func (t *boundToken) BalanceOf(owner common.Address) (*big.Int, error) {
	return t.ledger.BalanceOf(owner), nil
}
