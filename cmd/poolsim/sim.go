// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/meridianlabs/liquidstake/api"
	"github.com/meridianlabs/liquidstake/fortest"
	"github.com/meridianlabs/liquidstake/health"
	"github.com/meridianlabs/liquidstake/pool"
	"github.com/meridianlabs/liquidstake/protocol"
)

// simulation owns the engine under simulation and its fake collaborators.
type simulation struct {
	cfg  config
	env  *fortest.Env
	pool *pool.Pool
	dao  common.Address

	users   []common.Address
	tickets map[protocol.TicketID]common.Address // pending user claims
	rng     *rand.Rand
	health  *health.Health
}

func newSimulation(cfg config) (*simulation, error) {
	env := fortest.NewEnv(cfg.WithdrawalDelay, cfg.Validators)
	poolAddr := fortest.RandAddress()
	dao := fortest.RandAddress()

	p, err := pool.New(pool.Config{
		Address:              poolAddr,
		DAO:                  dao,
		InsuranceBeneficiary: fortest.RandAddress(),
		Staking:              env.Staking,
		Binder:               env.Binder,
		Tickets:              env.Tickets,
		Token:                env.Ledger.View(poolAddr),
		Mirror:               env.Mirror,
		Fees: protocol.FeeSchedule{
			DAO:       cfg.Fees.DAO,
			Operators: cfg.Fees.Operators,
			Insurance: cfg.Fees.Insurance,
		},
		DelegationLowerBound:         fortest.Tokens(cfg.DelegationLowerBound),
		RewardDistributionLowerBound: fortest.Tokens(cfg.RewardDistributionLowerBound),
	})
	if err != nil {
		return nil, err
	}
	env.BindPool(poolAddr)

	for i := 1; i <= cfg.Validators; i++ {
		if err := p.RegisterOperator(dao, protocol.ValidatorID(i), fortest.RandAddress()); err != nil {
			return nil, err
		}
	}

	users := make([]common.Address, cfg.Users)
	for i := range users {
		users[i] = fortest.RandAddress()
	}

	return &simulation{
		cfg:     cfg,
		env:     env,
		pool:    p,
		dao:     dao,
		users:   users,
		tickets: make(map[protocol.TicketID]common.Address),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404
		health:  health.New(10 * cfg.EpochInterval),
	}, nil
}

// Run drives the simulation until interrupted, serving the API meanwhile.
func (s *simulation) Run(apiAddr, apiCors string, reqLogger bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              apiAddr,
		Handler: api.New(s.pool, api.Options{
			AllowedOrigins:  apiCors,
			EnableMetrics:   true,
			EnableReqLogger: reqLogger,
			Health:          s.health,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("API server started", "addr", apiAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("stopping API server...")
		return srv.Shutdown(context.Background())
	})
	group.Go(func() error { return s.epochLoop(gctx) })
	group.Go(func() error { return s.activityLoop(gctx) })

	return group.Wait()
}

// epochLoop advances the staking epoch, accrues synthetic rewards on every
// operator's stake and periodically distributes them.
func (s *simulation) epochLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.EpochInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s.env.Staking.AdvanceEpoch(1)
		if epoch, err := s.env.Staking.CurrentEpoch(); err == nil {
			s.health.ObserveEpoch(epoch)
		}
		for _, contract := range s.env.Contracts {
			stake, _, err := contract.CurrentStake(s.pool.Address())
			if err != nil {
				return err
			}
			reward := new(big.Int).Mul(stake, big.NewInt(s.cfg.RewardRateBps))
			reward.Div(reward, big.NewInt(10000))
			if reward.Sign() > 0 {
				contract.AccrueRewards(reward)
			}
		}

		if distributed, err := s.pool.DistributeRewards(); err != nil {
			if !errors.Is(err, protocol.ErrBelowThreshold) {
				return err
			}
		} else {
			logger.Info("rewards distributed", "amount", distributed)
		}
	}
}

// activityLoop simulates user traffic: deposits, withdrawal requests,
// claims and the periodic delegation pass.
func (s *simulation) activityLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ActivityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		var err error
		switch s.rng.Intn(5) {
		case 0, 1:
			err = s.randomDeposit()
		case 2:
			err = s.randomWithdraw()
		case 3:
			err = s.claimDue()
		case 4:
			err = s.delegate()
		}
		if err != nil {
			return err
		}
	}
}

func (s *simulation) randomDeposit() error {
	user := s.users[s.rng.Intn(len(s.users))]
	amount := fortest.Tokens(int64(1 + s.rng.Intn(100)))

	s.env.Ledger.Mint(user, amount)
	if err := s.env.Ledger.View(user).Approve(s.pool.Address(), amount); err != nil {
		return err
	}
	_, err := s.pool.Deposit(user, amount)
	return err
}

func (s *simulation) randomWithdraw() error {
	user := s.users[s.rng.Intn(len(s.users))]
	shares := s.pool.SharesOf(user)
	if shares.Sign() == 0 {
		return nil
	}
	// withdraw up to half of the user's shares
	shares.Div(shares, big.NewInt(int64(2+s.rng.Intn(4))))
	if shares.Sign() == 0 {
		return nil
	}

	ticket, err := s.pool.RequestWithdraw(user, shares)
	if err != nil {
		// the operators' safety floor can legitimately refuse
		if errors.Is(err, protocol.ErrInsufficient) {
			return nil
		}
		return err
	}
	s.tickets[ticket] = user
	return nil
}

// claimDue tries every pending ticket, settling the claimable ones.
func (s *simulation) claimDue() error {
	for ticket, user := range s.tickets {
		if _, err := s.pool.Claim(user, ticket); err != nil {
			if errors.Is(err, protocol.ErrNotYetClaimable) {
				continue
			}
			return err
		}
		delete(s.tickets, ticket)
	}

	// settle pool-owned requests from rebalancing as well
	poolTickets, err := s.env.Tickets.TicketsOf(s.pool.Address())
	if err != nil {
		return err
	}
	for _, ticket := range poolTickets {
		if _, err := s.pool.ClaimPoolRequest(ticket); err != nil {
			if errors.Is(err, protocol.ErrNotYetClaimable) {
				continue
			}
			return err
		}
	}
	return nil
}

func (s *simulation) delegate() error {
	if err := s.pool.DelegateBuffered(); err != nil && !errors.Is(err, protocol.ErrBelowThreshold) {
		return err
	}
	return nil
}
