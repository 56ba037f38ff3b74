// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/liquidstake/fortest"
	"github.com/meridianlabs/liquidstake/protocol"
)

func TestNewValidatesConfig(t *testing.T) {
	env := fortest.NewEnv(testWithdrawalDelay, 0)
	addr := fortest.RandAddress()

	base := Config{
		Address:              addr,
		DAO:                  daoAddr,
		InsuranceBeneficiary: insuranceAddr,
		Staking:              env.Staking,
		Binder:               env.Binder,
		Tickets:              env.Tickets,
		Token:                env.Ledger.View(addr),
		Fees:                 testFees,
	}

	_, err := New(base)
	assert.NoError(t, err)

	cfg := base
	cfg.DAO = common.Address{}
	_, err = New(cfg)
	assert.True(t, errors.Is(err, protocol.ErrInvalidInput))

	cfg = base
	cfg.Token = nil
	_, err = New(cfg)
	assert.True(t, errors.Is(err, protocol.ErrInvalidInput))

	cfg = base
	cfg.Fees = protocol.FeeSchedule{DAO: 50, Operators: 50, Insurance: 50}
	_, err = New(cfg)
	assert.True(t, errors.Is(err, protocol.ErrInvalidInput))
}

func TestDepositBootstrapsOneToOne(t *testing.T) {
	p, env := newTestPool(t, 0)
	user := fortest.RandAddress()

	shares := deposit(t, p, env, user, big.NewInt(100))
	assert.Equal(t, big.NewInt(100), shares)
	assert.Equal(t, big.NewInt(100), p.SharesOf(user))
	assert.Equal(t, big.NewInt(100), p.TotalShares())

	stats, err := p.Stats()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), stats.TotalBuffered)
	assert.Equal(t, big.NewInt(100), stats.TotalPooled)
	assert.Equal(t, 0, stats.PendingRequests)

	// the mirror saw the post-deposit figures
	last := env.Mirror.Last()
	require.NotNil(t, last)
	assert.Equal(t, big.NewInt(100), last[0])
	assert.Equal(t, big.NewInt(100), last[1])
}

func TestDepositPricesAgainstPoolValue(t *testing.T) {
	p, env := newTestPool(t, 1)
	registerOperators(t, p, 1)
	user := fortest.RandAddress()

	deposit(t, p, env, user, big.NewInt(100))
	require.NoError(t, p.DelegateBuffered())

	// accrue and distribute rewards so the pool is worth more than its
	// share supply: of 100 accrued, 10 is skimmed, 9 paid out in fees,
	// 91 compounds on top of the delegated 100.
	env.Contracts[1].AccrueRewards(big.NewInt(100))
	_, err := p.DistributeRewards()
	require.NoError(t, err)

	stats, err := p.Stats()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(191), stats.TotalPooled)

	second := fortest.RandAddress()
	shares := deposit(t, p, env, second, big.NewInt(191))
	assert.Equal(t, big.NewInt(100), shares)
	assert.Equal(t, big.NewInt(200), p.TotalShares())
}

func TestDepositRejectsBadAmounts(t *testing.T) {
	p, _ := newTestPool(t, 0)
	user := fortest.RandAddress()

	_, err := p.Deposit(user, nil)
	assert.True(t, errors.Is(err, protocol.ErrInvalidInput))

	_, err = p.Deposit(user, big.NewInt(0))
	assert.True(t, errors.Is(err, protocol.ErrInvalidInput))

	_, err = p.Deposit(user, big.NewInt(-5))
	assert.True(t, errors.Is(err, protocol.ErrInvalidInput))
}

func TestDepositEnforcesSubmitThreshold(t *testing.T) {
	p, env := newTestPool(t, 0)
	user := fortest.RandAddress()

	require.NoError(t, p.SetSubmitThreshold(daoAddr, big.NewInt(50)))
	require.NoError(t, p.SetSubmitHandler(daoAddr, true))

	env.Ledger.Mint(user, big.NewInt(100))
	require.NoError(t, env.Ledger.View(user).Approve(p.Address(), big.NewInt(100)))

	_, err := p.Deposit(user, big.NewInt(51))
	assert.True(t, errors.Is(err, protocol.ErrInvalidInput))

	_, err = p.Deposit(user, big.NewInt(50))
	assert.NoError(t, err)

	// toggled off, the cap no longer applies
	require.NoError(t, p.SetSubmitHandler(daoAddr, false))
	_, err = p.Deposit(user, big.NewInt(50))
	assert.NoError(t, err)
}

func TestDepositRollsBackOnTransferFailure(t *testing.T) {
	p, env := newTestPool(t, 0)
	user := fortest.RandAddress()
	env.Ledger.Mint(user, big.NewInt(100))
	// no allowance granted to the pool

	_, err := p.Deposit(user, big.NewInt(100))
	assert.True(t, errors.Is(err, protocol.ErrExternalCall))

	assert.Equal(t, 0, p.TotalShares().Sign())
	stats, err := p.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalBuffered.Sign())
}

// reentrantMirror calls back into the pool from inside an operation.
type reentrantMirror struct {
	pool *Pool
	err  error
}

func (m *reentrantMirror) Publish(totalShares, totalPooled *big.Int) error {
	_, m.err = m.pool.Deposit(fortest.RandAddress(), big.NewInt(1))
	return nil
}

func TestReentrantCallIsRejected(t *testing.T) {
	env := fortest.NewEnv(testWithdrawalDelay, 0)
	addr := fortest.RandAddress()
	mirror := &reentrantMirror{}

	p, err := New(Config{
		Address:              addr,
		DAO:                  daoAddr,
		InsuranceBeneficiary: insuranceAddr,
		Staking:              env.Staking,
		Binder:               env.Binder,
		Tickets:              env.Tickets,
		Token:                env.Ledger.View(addr),
		Mirror:               mirror,
		Fees:                 testFees,
	})
	require.NoError(t, err)
	mirror.pool = p

	user := fortest.RandAddress()
	env.Ledger.Mint(user, big.NewInt(100))
	require.NoError(t, env.Ledger.View(user).Approve(addr, big.NewInt(100)))

	_, err = p.Deposit(user, big.NewInt(100))
	require.NoError(t, err)
	assert.True(t, errors.Is(mirror.err, protocol.ErrReentrancy))

	// the outer deposit committed untouched by the rejected inner call
	assert.Equal(t, big.NewInt(100), p.TotalShares())
}

// slowMirror stalls publishes until released so another caller can arrive
// while an operation is still in flight.
type slowMirror struct {
	entered chan struct{}
	release chan struct{}
}

func newSlowMirror() *slowMirror {
	return &slowMirror{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (m *slowMirror) Publish(totalShares, totalPooled *big.Int) error {
	m.entered <- struct{}{}
	<-m.release
	return nil
}

func TestConcurrentCallersSerialize(t *testing.T) {
	env := fortest.NewEnv(testWithdrawalDelay, 0)
	addr := fortest.RandAddress()
	mirror := newSlowMirror()

	p, err := New(Config{
		Address:              addr,
		DAO:                  daoAddr,
		InsuranceBeneficiary: insuranceAddr,
		Staking:              env.Staking,
		Binder:               env.Binder,
		Tickets:              env.Tickets,
		Token:                env.Ledger.View(addr),
		Mirror:               mirror,
		Fees:                 testFees,
	})
	require.NoError(t, err)

	alice, bob := fortest.RandAddress(), fortest.RandAddress()
	for _, user := range []common.Address{alice, bob} {
		env.Ledger.Mint(user, big.NewInt(100))
		require.NoError(t, env.Ledger.View(user).Approve(addr, big.NewInt(100)))
	}

	errs := make(chan error, 2)
	go func() {
		_, err := p.Deposit(alice, big.NewInt(100))
		errs <- err
	}()
	// the first deposit now holds the lock inside the stalled publish
	<-mirror.entered

	go func() {
		_, err := p.Deposit(bob, big.NewInt(100))
		errs <- err
	}()
	// give the second caller time to reach the lock before releasing
	time.Sleep(20 * time.Millisecond)
	close(mirror.release)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, big.NewInt(100), p.SharesOf(alice))
	assert.Equal(t, big.NewInt(100), p.SharesOf(bob))
	assert.Equal(t, big.NewInt(200), p.TotalShares())
}

// viewingMirror reads the pool's views from inside an operation.
type viewingMirror struct {
	pool     *Pool
	statsErr error
	shares   *big.Int
}

func (m *viewingMirror) Publish(totalShares, totalPooled *big.Int) error {
	_, m.statsErr = m.pool.Stats()
	m.shares = m.pool.TotalShares()
	return nil
}

func TestViewsInsideOperation(t *testing.T) {
	env := fortest.NewEnv(testWithdrawalDelay, 0)
	addr := fortest.RandAddress()
	mirror := &viewingMirror{}

	p, err := New(Config{
		Address:              addr,
		DAO:                  daoAddr,
		InsuranceBeneficiary: insuranceAddr,
		Staking:              env.Staking,
		Binder:               env.Binder,
		Tickets:              env.Tickets,
		Token:                env.Ledger.View(addr),
		Mirror:               mirror,
		Fees:                 testFees,
	})
	require.NoError(t, err)
	mirror.pool = p

	user := fortest.RandAddress()
	env.Ledger.Mint(user, big.NewInt(100))
	require.NoError(t, env.Ledger.View(user).Approve(addr, big.NewInt(100)))

	_, err = p.Deposit(user, big.NewInt(100))
	require.NoError(t, err)

	// locking views are rejected instead of deadlocking on the write lock
	assert.True(t, errors.Is(mirror.statsErr, protocol.ErrReentrancy))
	// lock-free reads see the in-flight state
	assert.Equal(t, big.NewInt(100), mirror.shares)
}

// checkConservation verifies the pool's accounting against the raw ledger
// and contract balances: buffered funds are physically held by the pool and
// the pool's total value recomputed from raw balances matches the reported
// figure.
func checkConservation(t *testing.T, p *Pool, env *fortest.Env) {
	t.Helper()

	stats, err := p.Stats()
	require.NoError(t, err)

	held := env.Ledger.BalanceOf(p.Address())
	assert.Equal(t, held, stats.TotalBuffered)

	pooled := new(big.Int).Sub(held, stats.ReservedFunds)
	for id := range env.Contracts {
		stake, _, err := env.Contracts[id].CurrentStake(p.Address())
		require.NoError(t, err)
		pooled.Add(pooled, stake)
	}
	assert.Equal(t, pooled, stats.TotalPooled)
}

func TestConservationAcrossSequence(t *testing.T) {
	p, env := newTestPool(t, 2)
	registerOperators(t, p, 2)
	alice := fortest.RandAddress()
	bob := fortest.RandAddress()

	deposit(t, p, env, alice, big.NewInt(1000))
	require.NoError(t, p.DelegateBuffered())
	deposit(t, p, env, bob, big.NewInt(600))
	checkConservation(t, p, env)

	env.Contracts[1].AccrueRewards(big.NewInt(40))
	env.Contracts[2].AccrueRewards(big.NewInt(40))
	_, err := p.DistributeRewards()
	require.NoError(t, err)
	checkConservation(t, p, env)

	ticket, err := p.RequestWithdraw(alice, big.NewInt(500))
	require.NoError(t, err)
	checkConservation(t, p, env)

	env.Staking.AdvanceEpoch(testWithdrawalDelay)
	paid, err := p.Claim(alice, ticket)
	require.NoError(t, err)
	// 500 of 1600 shares against a pool worth 1672
	assert.Equal(t, big.NewInt(522), paid)
	checkConservation(t, p, env)

	require.NoError(t, p.DelegateBuffered())
	checkConservation(t, p, env)
}

func TestMirrorFailureDoesNotAbortOperation(t *testing.T) {
	p, env := newTestPool(t, 0)
	env.Mirror.Err = errBoom

	user := fortest.RandAddress()
	shares := deposit(t, p, env, user, big.NewInt(100))
	assert.Equal(t, big.NewInt(100), shares)
}
