// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package protocol

// Status is an operator's standing as derived from the staking system's
// validator record. It is recomputed on every read and never stored.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusActive         // validator is live and delegable
	StatusJailed         // validator is locked by the staking system
	StatusEjected        // validator is scheduled for deactivation
	StatusUnstaked       // validator has left the staking system
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusJailed:
		return "jailed"
	case StatusEjected:
		return "ejected"
	case StatusUnstaked:
		return "unstaked"
	default:
		return "unknown"
	}
}

// DeriveStatus maps a validator record to an operator status.
func DeriveStatus(rec ValidatorRecord) Status {
	if rec.State == ValidatorStateUnstaked {
		return StatusUnstaked
	}
	if rec.DeactivationEpoch != 0 {
		if rec.State == ValidatorStateActive || rec.State == ValidatorStateLocked {
			return StatusEjected
		}
		return StatusUnknown
	}
	switch rec.State {
	case ValidatorStateActive:
		return StatusActive
	case ValidatorStateLocked:
		return StatusJailed
	default:
		return StatusUnknown
	}
}
