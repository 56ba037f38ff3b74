// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"encoding/json"
	"net/http"

	"github.com/meridianlabs/liquidstake/api/restutil"
	"github.com/meridianlabs/liquidstake/health"
)

// healthHandler reports the engine's liveness; an unhealthy status responds
// 503 so load balancers can act on it.
func healthHandler(h *health.Health) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := h.Status()
		w.Header().Set("Content-Type", restutil.JSONContentType)
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Warn("health response failed", "error", err)
		}
	}
}
