// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/liquidstake/fortest"
	"github.com/meridianlabs/liquidstake/protocol"
)

const testWithdrawalDelay = 80

var errBoom = errors.New("boom")

var (
	daoAddr       = common.HexToAddress("0x00000000000000000000000000000000000000da")
	insuranceAddr = common.HexToAddress("0x0000000000000000000000000000000000000150")
	testFees      = protocol.FeeSchedule{DAO: 25, Operators: 50, Insurance: 25}
)

// newTestPool builds a pool wired to a fresh fake environment with the
// given validators pre-activated (none registered as operators yet).
func newTestPool(t *testing.T, validators int) (*Pool, *fortest.Env) {
	t.Helper()

	env := fortest.NewEnv(testWithdrawalDelay, validators)
	addr := fortest.RandAddress()

	p, err := New(Config{
		Address:              addr,
		DAO:                  daoAddr,
		InsuranceBeneficiary: insuranceAddr,
		Staking:              env.Staking,
		Binder:               env.Binder,
		Tickets:              env.Tickets,
		Token:                env.Ledger.View(addr),
		Mirror:               env.Mirror,
		Fees:                 testFees,
	})
	require.NoError(t, err)

	env.BindPool(addr)
	return p, env
}

// registerOperators registers validators 1..n as operators, each with a
// distinct reward address.
func registerOperators(t *testing.T, p *Pool, n int) []common.Address {
	t.Helper()

	rewardAddrs := make([]common.Address, n)
	for i := 1; i <= n; i++ {
		rewardAddrs[i-1] = fortest.RandAddress()
		require.NoError(t, p.RegisterOperator(daoAddr, protocol.ValidatorID(i), rewardAddrs[i-1]))
	}
	return rewardAddrs
}

// deposit funds user, approves the pool and deposits amount.
func deposit(t *testing.T, p *Pool, env *fortest.Env, user common.Address, amount *big.Int) *big.Int {
	t.Helper()

	env.Ledger.Mint(user, amount)
	require.NoError(t, env.Ledger.View(user).Approve(p.Address(), amount))
	shares, err := p.Deposit(user, amount)
	require.NoError(t, err)
	return shares
}

// operatorStake reads the pool's current stake at validator id.
func operatorStake(t *testing.T, p *Pool, env *fortest.Env, id protocol.ValidatorID) *big.Int {
	t.Helper()

	stake, _, err := env.Contracts[id].CurrentStake(p.Address())
	require.NoError(t, err)
	return stake
}

// poolTicket returns the single pool-owned pending ticket.
func poolTicket(t *testing.T, p *Pool, env *fortest.Env) protocol.TicketID {
	t.Helper()

	tickets, err := env.Tickets.TicketsOf(p.Address())
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	return tickets[0]
}
