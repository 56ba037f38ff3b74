// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package allocation

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/liquidstake/protocol"
)

func bigs(values ...int64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestSplitProportional(t *testing.T) {
	allocations, remainder, err := Split(big.NewInt(100), bigs(1, 2, 3), big.NewInt(6))
	require.NoError(t, err)

	assert.Equal(t, bigs(16, 33, 50), allocations)
	assert.Equal(t, big.NewInt(1), remainder)
}

func TestSplitSkipsZeroRatios(t *testing.T) {
	allocations, remainder, err := Split(big.NewInt(90), bigs(2, 0, 1), big.NewInt(3))
	require.NoError(t, err)

	assert.Equal(t, bigs(60, 0, 30), allocations)
	assert.Equal(t, big.NewInt(0), remainder)
}

func TestSplitEqualWeightFallback(t *testing.T) {
	allocations, remainder, err := Split(big.NewInt(100), bigs(0, 0, 0), big.NewInt(0))
	require.NoError(t, err)

	assert.Equal(t, bigs(33, 33, 33), allocations)
	assert.Equal(t, big.NewInt(1), remainder)
}

func TestSplitNoSlots(t *testing.T) {
	allocations, remainder, err := Split(big.NewInt(77), nil, nil)
	require.NoError(t, err)

	assert.Empty(t, allocations)
	assert.Equal(t, big.NewInt(77), remainder)
}

func TestSplitRejectsNegative(t *testing.T) {
	_, _, err := Split(big.NewInt(-1), bigs(1), big.NewInt(1))
	assert.ErrorIs(t, err, protocol.ErrInvalidInput)
}

func TestSplitConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		amount := big.NewInt(rng.Int63n(1e15))
		n := rng.Intn(12) + 1
		ratios := make([]*big.Int, n)
		total := new(big.Int)
		for i := range ratios {
			ratios[i] = big.NewInt(rng.Int63n(1000))
			total.Add(total, ratios[i])
		}

		allocations, remainder, err := Split(amount, ratios, total)
		require.NoError(t, err)

		sum := new(big.Int).Set(remainder)
		for _, a := range allocations {
			require.GreaterOrEqual(t, a.Sign(), 0)
			sum.Add(sum, a)
		}
		require.Equal(t, amount, sum)
		require.GreaterOrEqual(t, remainder.Sign(), 0)
	}
}
