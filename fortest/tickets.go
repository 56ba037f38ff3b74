// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fortest

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/meridianlabs/liquidstake/protocol"
)

// Tickets is an in-memory claim-ticket authority.
type Tickets struct {
	mu     sync.Mutex
	next   protocol.TicketID
	owners map[protocol.TicketID]common.Address
}

func NewTickets() *Tickets {
	return &Tickets{owners: make(map[protocol.TicketID]common.Address)}
}

func (t *Tickets) Mint(owner common.Address) (protocol.TicketID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.owners[t.next] = owner
	return t.next, nil
}

func (t *Tickets) Burn(id protocol.TicketID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.owners[id]; !ok {
		return errors.Errorf("unknown ticket %d", id)
	}
	delete(t.owners, id)
	return nil
}

func (t *Tickets) OwnerOf(id protocol.TicketID) (common.Address, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	owner, ok := t.owners[id]
	if !ok {
		return common.Address{}, errors.Errorf("unknown ticket %d", id)
	}
	return owner, nil
}

func (t *Tickets) TicketsOf(owner common.Address) ([]protocol.TicketID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []protocol.TicketID
	for id, o := range t.owners {
		if o == owner {
			out = append(out, id)
		}
	}
	return out, nil
}

// Mirror records published pool figures.
type Mirror struct {
	mu        sync.Mutex
	Published [][2]*big.Int
	Err       error // returned on every publish when set
}

func (m *Mirror) Publish(totalShares, totalPooled *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Published = append(m.Published, [2]*big.Int{
		new(big.Int).Set(totalShares),
		new(big.Int).Set(totalPooled),
	})
	return nil
}

// Last returns the most recently published pair, or nil.
func (m *Mirror) Last() *[2]*big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Published) == 0 {
		return nil
	}
	return &m.Published[len(m.Published)-1]
}
