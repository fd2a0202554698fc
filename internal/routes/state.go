// Package routes serves the local HTTP state surface.
package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"melcloud_bridge/internal/poller"
	"melcloud_bridge/internal/types"
)

// EnergyTotals yields cumulative kWh per unit.
type EnergyTotals interface {
	Totals() map[string]float64
}

type stateResponse struct {
	Available   bool        `json:"available"`
	State       string      `json:"state"`
	LastSuccess *time.Time  `json:"last_success,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
	Units       []unitBrief `json:"units"`
}

type unitBrief struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Building  string   `json:"building"`
	Kind      string   `json:"kind"`
	Online    bool     `json:"online"`
	Power     bool     `json:"power"`
	EnergyKWh *float64 `json:"energy_kwh,omitempty"`
}

// State returns a handler summarizing the coordinator's view. energy may be
// nil when the energy subsystem is disabled.
func State(coordinator *poller.Coordinator, energy EnergyTotals, logger *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		resp := stateResponse{
			Available: coordinator.Available(),
			State:     coordinator.State().String(),
			Units:     []unitBrief{},
		}
		if last := coordinator.LastSuccess(); !last.IsZero() {
			resp.LastSuccess = &last
		}
		if err := coordinator.LastError(); err != nil {
			resp.LastError = err.Error()
		}

		var totals map[string]float64
		if energy != nil {
			totals = energy.Totals()
		}

		// Unavailable means unavailable: unit state is withheld when degraded
		// rather than served stale.
		if resp.Available {
			if snap := coordinator.Snapshot(); snap != nil {
				resp.Units = unitBriefs(snap, totals)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn("Failed to encode state response", "error", err)
		}
	}
}

func unitBriefs(snap *types.AccountSnapshot, totals map[string]float64) []unitBrief {
	briefs := make([]unitBrief, 0, snap.UnitCount())
	for i := range snap.Buildings {
		b := &snap.Buildings[i]
		for j := range b.Units {
			u := &b.Units[j]
			brief := unitBrief{
				ID:       u.ID,
				Name:     u.Name,
				Building: b.Name,
				Kind:     u.Kind.String(),
				Online:   !u.Offline,
			}
			switch u.Kind {
			case types.KindAirToAir:
				brief.Power = u.Ata.Power
			case types.KindAirToWater:
				brief.Power = u.Atw.Power
			}
			if kwh, ok := totals[u.ID]; ok {
				brief.EnergyKWh = &kwh
			}
			briefs = append(briefs, brief)
		}
	}
	return briefs
}

// Health returns a liveness handler.
func Health() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK\n"))
	}
}
