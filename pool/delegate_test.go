// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/liquidstake/fortest"
	"github.com/meridianlabs/liquidstake/protocol"
)

func TestDelegateBufferedSplitsEvenly(t *testing.T) {
	p, env := newTestPool(t, 3)
	registerOperators(t, p, 3)
	user := fortest.RandAddress()
	deposit(t, p, env, user, big.NewInt(100))

	require.NoError(t, p.DelegateBuffered())

	for id := protocol.ValidatorID(1); id <= 3; id++ {
		assert.Equal(t, big.NewInt(33), operatorStake(t, p, env, id))
	}
	// the floor-division remainder stays buffered
	stats, err := p.Stats()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), stats.TotalBuffered)
	assert.Equal(t, big.NewInt(100), stats.TotalPooled)
}

func TestDelegateBufferedFillsShortfallFirst(t *testing.T) {
	p, env := newTestPool(t, 2)
	user := fortest.RandAddress()

	// only the first operator exists for the first pass
	rewardAddr := fortest.RandAddress()
	require.NoError(t, p.RegisterOperator(daoAddr, 1, rewardAddr))
	deposit(t, p, env, user, big.NewInt(100))
	require.NoError(t, p.DelegateBuffered())
	require.Equal(t, big.NewInt(100), operatorStake(t, p, env, 1))

	// the second pass routes everything to the empty operator
	require.NoError(t, p.RegisterOperator(daoAddr, 2, fortest.RandAddress()))
	deposit(t, p, env, user, big.NewInt(100))
	require.NoError(t, p.DelegateBuffered())

	assert.Equal(t, big.NewInt(100), operatorStake(t, p, env, 1))
	assert.Equal(t, big.NewInt(100), operatorStake(t, p, env, 2))
}

func TestDelegateBufferedSkipsClosedOperators(t *testing.T) {
	p, env := newTestPool(t, 2)
	registerOperators(t, p, 2)
	user := fortest.RandAddress()
	deposit(t, p, env, user, big.NewInt(100))

	env.Contracts[2].SetAccepts(false)
	require.NoError(t, p.DelegateBuffered())

	assert.Equal(t, big.NewInt(100), operatorStake(t, p, env, 1))
	assert.Equal(t, 0, operatorStake(t, p, env, 2).Sign())
}

func TestDelegateBufferedBelowBound(t *testing.T) {
	p, env := newTestPool(t, 1)
	registerOperators(t, p, 1)
	user := fortest.RandAddress()

	require.NoError(t, p.SetDelegationLowerBound(daoAddr, big.NewInt(50)))
	deposit(t, p, env, user, big.NewInt(40))

	err := p.DelegateBuffered()
	assert.True(t, errors.Is(err, protocol.ErrBelowThreshold))
	assert.Equal(t, 0, operatorStake(t, p, env, 1).Sign())
}

func TestDelegateBufferedNoOperators(t *testing.T) {
	p, env := newTestPool(t, 0)
	user := fortest.RandAddress()
	deposit(t, p, env, user, big.NewInt(100))

	err := p.DelegateBuffered()
	assert.True(t, errors.Is(err, protocol.ErrNotFound))
}

func TestDelegateBufferedRollsBackAccountingOnFailure(t *testing.T) {
	p, env := newTestPool(t, 2)
	registerOperators(t, p, 2)
	user := fortest.RandAddress()
	deposit(t, p, env, user, big.NewInt(100))

	env.Contracts[2].FailNext = errBoom
	err := p.DelegateBuffered()
	assert.True(t, errors.Is(err, protocol.ErrExternalCall))

	stats, err := p.Stats()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), stats.TotalBuffered)
}

func TestRebalanceCycle(t *testing.T) {
	p, env := newTestPool(t, 2)
	user := fortest.RandAddress()

	// over-delegate the first operator, then add a second
	require.NoError(t, p.RegisterOperator(daoAddr, 1, fortest.RandAddress()))
	deposit(t, p, env, user, big.NewInt(100))
	require.NoError(t, p.DelegateBuffered())
	require.NoError(t, p.RegisterOperator(daoAddr, 2, fortest.RandAddress()))

	deposit(t, p, env, user, big.NewInt(60))

	// average stake is 50, so 50 of the first operator's excess is
	// pulled back into a pool-owned request
	require.NoError(t, p.Rebalance())
	assert.Equal(t, big.NewInt(50), operatorStake(t, p, env, 1))

	ticket := poolTicket(t, p, env)
	env.Staking.AdvanceEpoch(testWithdrawalDelay)
	credited, err := p.ClaimPoolRequest(ticket)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(50), credited)

	// re-delegating levels both operators
	require.NoError(t, p.DelegateBuffered())
	assert.Equal(t, big.NewInt(80), operatorStake(t, p, env, 1))
	assert.Equal(t, big.NewInt(80), operatorStake(t, p, env, 2))

	stats, err := p.Stats()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(160), stats.TotalPooled)
}

func TestRebalanceWhenBalanced(t *testing.T) {
	p, env := newTestPool(t, 2)
	registerOperators(t, p, 2)
	user := fortest.RandAddress()
	deposit(t, p, env, user, big.NewInt(200))
	require.NoError(t, p.DelegateBuffered())

	err := p.Rebalance()
	assert.True(t, errors.Is(err, protocol.ErrBelowThreshold))
}
