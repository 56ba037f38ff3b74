// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// config drives one simulation. Zero fields take the documented defaults.
type config struct {
	Validators      int    `yaml:"validators"`
	Users           int    `yaml:"users"`
	WithdrawalDelay uint64 `yaml:"withdrawalDelay"`

	Fees struct {
		DAO       uint8 `yaml:"dao"`
		Operators uint8 `yaml:"operators"`
		Insurance uint8 `yaml:"insurance"`
	} `yaml:"fees"`

	// DelegationLowerBound and RewardDistributionLowerBound are in whole
	// tokens.
	DelegationLowerBound         int64 `yaml:"delegationLowerBound"`
	RewardDistributionLowerBound int64 `yaml:"rewardDistributionLowerBound"`

	// RewardRateBps is the per-epoch reward accrual in basis points of
	// each operator's stake.
	RewardRateBps int64 `yaml:"rewardRateBps"`

	EpochInterval    time.Duration `yaml:"epochInterval"`
	ActivityInterval time.Duration `yaml:"activityInterval"`
}

func defaultConfig() config {
	var cfg config
	cfg.Validators = 5
	cfg.Users = 20
	cfg.WithdrawalDelay = 10
	cfg.Fees.DAO = 25
	cfg.Fees.Operators = 50
	cfg.Fees.Insurance = 25
	cfg.DelegationLowerBound = 10
	cfg.RewardDistributionLowerBound = 1
	cfg.RewardRateBps = 10
	cfg.EpochInterval = time.Second
	cfg.ActivityInterval = 200 * time.Millisecond
	return cfg
}

// loadConfig reads a YAML config from path, or returns the defaults when
// path is empty. Missing fields fall back to their defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	if cfg.Validators <= 0 || cfg.Users <= 0 {
		return cfg, errors.New("config: validators and users must be positive")
	}
	return cfg, nil
}
