// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package health tracks the liveness of the engine's view of the staking
// system's epoch clock.
package health

import (
	"sync"
	"time"
)

// DefaultMaxEpochAge is how stale the last epoch observation may be before
// the engine is reported unhealthy.
const DefaultMaxEpochAge = 5 * time.Minute

type Status struct {
	Healthy         bool       `json:"healthy"`
	CurrentEpoch    uint64     `json:"currentEpoch"`
	EpochObservedAt *time.Time `json:"epochObservedAt"`
}

type Health struct {
	lock        sync.RWMutex
	epoch       uint64
	observedAt  time.Time
	maxEpochAge time.Duration
}

func New(maxEpochAge time.Duration) *Health {
	if maxEpochAge <= 0 {
		maxEpochAge = DefaultMaxEpochAge
	}
	return &Health{maxEpochAge: maxEpochAge}
}

// ObserveEpoch records a fresh read of the staking system's epoch clock.
func (h *Health) ObserveEpoch(epoch uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.epoch = epoch
	h.observedAt = time.Now()
}

func (h *Health) Status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	var observedAt *time.Time
	if !h.observedAt.IsZero() {
		at := h.observedAt
		observedAt = &at
	}
	return &Status{
		Healthy:         observedAt != nil && time.Since(h.observedAt) <= h.maxEpochAge,
		CurrentEpoch:    h.epoch,
		EpochObservedAt: observedAt,
	}
}
