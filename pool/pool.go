// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pool implements the pooled liquid-staking engine: deposits are
// priced into claim tokens, buffered funds are delegated across validator
// operators, rewards are harvested and redistributed, and withdrawals pass
// through a delayed unbonding queue gated by the staking system's epoch
// clock.
//
// Every exposed operation executes as a single atomic unit: internal state
// is snapshotted on entry and restored on any failure, and state mutation
// strictly precedes outbound transfers. Concurrent callers serialize on the
// pool's lock; a callback into the engine from within an in-flight
// operation is rejected.
package pool

import (
	"bytes"
	"math/big"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/pricing"
	"github.com/meridianlabs/liquidstake/protocol"
	"github.com/meridianlabs/liquidstake/queue"
	"github.com/meridianlabs/liquidstake/registry"
	"github.com/meridianlabs/liquidstake/rewards"
)

var logger = log.New("pkg", "pool")

// rewardSkimDivisor skims 1/10 of the harvested yield for distribution;
// the remaining 9/10 compounds into the pool's total value.
var rewardSkimDivisor = big.NewInt(10)

// Config assembles a pool around its external collaborators.
type Config struct {
	// Address is the pool's own identity towards the token, the ticket
	// authority and the delegation contracts.
	Address              common.Address
	DAO                  common.Address // privileged role; receives the DAO reward cut
	InsuranceBeneficiary common.Address

	Staking protocol.StakingSystem
	Binder  protocol.DelegationBinder
	Tickets protocol.TicketAuthority
	Token   protocol.Token
	Mirror  protocol.StateMirror // optional, best effort

	Fees                         protocol.FeeSchedule
	DelegationLowerBound         *big.Int
	RewardDistributionLowerBound *big.Int
}

// Pool is the engine facade. All exposed operations are serialized.
type Pool struct {
	addr      common.Address
	dao       common.Address
	insurance common.Address

	staking protocol.StakingSystem
	binder  protocol.DelegationBinder
	tickets protocol.TicketAuthority
	token   protocol.Token
	mirror  protocol.StateMirror

	registry    *registry.Registry
	queue       *queue.Manager
	distributor *rewards.Distributor

	mu    sync.RWMutex
	owner atomic.Int64 // goroutine id of the in-flight operation, 0 when idle
	st    *state
}

// New creates a pool. The share ledger starts empty; the first deposit is
// priced 1:1.
func New(cfg Config) (*Pool, error) {
	if cfg.Address == (common.Address{}) || cfg.DAO == (common.Address{}) {
		return nil, errors.Wrap(protocol.ErrInvalidInput, "pool and DAO addresses are required")
	}
	if cfg.Staking == nil || cfg.Binder == nil || cfg.Tickets == nil || cfg.Token == nil {
		return nil, errors.Wrap(protocol.ErrInvalidInput, "missing collaborator")
	}
	if err := cfg.Fees.Validate(); err != nil {
		return nil, err
	}

	return &Pool{
		addr:        cfg.Address,
		dao:         cfg.DAO,
		insurance:   cfg.InsuranceBeneficiary,
		staking:     cfg.Staking,
		binder:      cfg.Binder,
		tickets:     cfg.Tickets,
		token:       cfg.Token,
		mirror:      cfg.Mirror,
		registry:    registry.New(cfg.Staking, cfg.Binder),
		queue:       queue.NewManager(),
		distributor: rewards.NewDistributor(cfg.Token, cfg.Address, cfg.DAO, cfg.InsuranceBeneficiary),
		st:          newState(cfg.Fees, cfg.DelegationLowerBound, cfg.RewardDistributionLowerBound),
	}, nil
}

// Address returns the pool's own address.
func (p *Pool) Address() common.Address { return p.addr }

// goroutineID parses the current goroutine's id from the stack trace
// header, "goroutine N [running]:".
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	id, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		panic(errors.Wrap(err, "parse goroutine id"))
	}
	return id
}

// run executes one exposed operation as an atomic unit of work. Callers on
// other goroutines serialize on the pool's lock; only a call back into the
// engine from within the in-flight operation itself is rejected, since it
// would observe half-applied state.
func (p *Pool) run(op string, fn func() error) error {
	gid := goroutineID()
	if p.owner.Load() == gid {
		return errors.Wrap(protocol.ErrReentrancy, op)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owner.Store(gid)
	defer p.owner.Store(0)

	restoreState := p.st.snapshot()
	restoreRegistry := p.registry.Snapshot()
	restoreQueue := p.queue.Snapshot()

	if err := fn(); err != nil {
		restoreState()
		restoreRegistry()
		restoreQueue()
		logger.Info(op+" failed", "error", err)
		return err
	}
	return nil
}

// Deposit converts amount of the base asset into freshly minted claim
// tokens for caller and adds the asset to the buffered balance.
func (p *Pool) Deposit(caller common.Address, amount *big.Int) (*big.Int, error) {
	var shares *big.Int
	err := p.run("deposit", func() error {
		if err := pricing.CheckAmount(amount); err != nil {
			return err
		}
		if p.st.submitHandlerOn && amount.Cmp(p.st.submitThreshold) > 0 {
			return errors.Wrap(protocol.ErrInvalidInput, "deposit exceeds submit threshold")
		}

		pooled, err := p.totalPooled()
		if err != nil {
			return err
		}
		shares = pricing.AssetToShares(amount, p.st.totalShares, pooled)

		if err := p.token.TransferFrom(caller, p.addr, amount); err != nil {
			return errors.Wrapf(protocol.ErrExternalCall, "deposit transfer: %v", err)
		}
		p.st.mint(caller, shares)
		p.st.totalBuffered.Add(p.st.totalBuffered, amount)

		p.publish()
		metricDeposits.Inc()
		logger.Info("deposit", "from", caller, "amount", amount, "shares", shares)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shares, nil
}

//
// internal helpers
//

func (p *Pool) bind(addr common.Address) (protocol.DelegationContract, error) {
	contract, err := p.binder.Bind(addr)
	if err != nil {
		return nil, errors.Wrapf(protocol.ErrExternalCall, "bind %s: %v", addr, err)
	}
	return contract, nil
}

// delegatedStakes reads the pool's stake at each operator.
func (p *Pool) delegatedStakes(ops []*registry.Operator) ([]*big.Int, *big.Int, error) {
	stakes := make([]*big.Int, len(ops))
	total := new(big.Int)
	for i, op := range ops {
		contract, err := p.bind(op.Contract)
		if err != nil {
			return nil, nil, err
		}
		stake, _, err := contract.CurrentStake(p.addr)
		if err != nil {
			return nil, nil, errors.Wrapf(protocol.ErrExternalCall, "stake at %d: %v", op.ID, err)
		}
		stakes[i] = stake
		total.Add(total, stake)
	}
	return stakes, total, nil
}

// totalPooled is the pool's total value: all delegated stake plus buffered
// funds net of reservations.
func (p *Pool) totalPooled() (*big.Int, error) {
	_, totalDelegated, err := p.delegatedStakes(p.registry.Withdrawable())
	if err != nil {
		return nil, err
	}
	pooled := new(big.Int).Add(totalDelegated, p.st.totalBuffered)
	return pooled.Sub(pooled, p.st.reservedFunds), nil
}

// epochHorizon returns the current epoch and the epoch at which a request
// created now becomes claimable.
func (p *Pool) epochHorizon() (current, horizon uint64, err error) {
	current, err = p.staking.CurrentEpoch()
	if err != nil {
		return 0, 0, errors.Wrapf(protocol.ErrExternalCall, "current epoch: %v", err)
	}
	delay, err := p.staking.WithdrawalDelay()
	if err != nil {
		return 0, 0, errors.Wrapf(protocol.ErrExternalCall, "withdrawal delay: %v", err)
	}
	return current, current + delay, nil
}

// publish mirrors the pool's headline figures; failures are logged only.
func (p *Pool) publish() {
	if p.mirror == nil {
		return
	}
	pooled, err := p.totalPooled()
	if err != nil {
		logger.Warn("mirror publish skipped", "error", err)
		return
	}
	if err := p.mirror.Publish(new(big.Int).Set(p.st.totalShares), pooled); err != nil {
		logger.Warn("mirror publish failed", "error", err)
	}
}

func (p *Pool) requireDAO(caller common.Address) error {
	if caller != p.dao {
		return errors.Wrapf(protocol.ErrUnauthorized, "caller %s is not the DAO", caller)
	}
	return nil
}
