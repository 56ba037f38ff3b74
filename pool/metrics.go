// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDeposits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liquidstake",
		Name:      "deposits_total",
		Help:      "Number of successful deposits.",
	})
	metricWithdrawRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liquidstake",
		Name:      "withdraw_requests_total",
		Help:      "Number of withdrawal requests created.",
	})
	metricClaims = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liquidstake",
		Name:      "claims_total",
		Help:      "Number of withdrawal claims settled.",
	})
	metricDelegationPasses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liquidstake",
		Name:      "delegation_passes_total",
		Help:      "Number of buffered-delegation passes executed.",
	})
	metricRewardDistributions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liquidstake",
		Name:      "reward_distributions_total",
		Help:      "Number of reward distributions executed.",
	})
	metricOperators = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "liquidstake",
		Name:      "operators",
		Help:      "Number of registered validator operators.",
	})
)
