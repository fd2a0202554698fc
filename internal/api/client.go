// Package api is the typed gateway to the MELCloud REST surface. It issues
// reads and writes through the session manager and translates HTTP/JSON
// failures into the small internal error taxonomy.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"melcloud_bridge/internal/types"
)

const (
	accountContextPath = "/api/context/account"
	unitPathFmt        = "/api/units/%s"
	energyPathFmt      = "/api/units/%s/telemetry"
	schedulePathFmt    = "/api/units/%s/schedule"
)

// Measure names a telemetry series on the energy endpoint.
type Measure string

const (
	MeasureEnergyConsumed Measure = "energy-consumed"
	MeasureEnergyProduced Measure = "energy-produced"
)

// Requester issues one authenticated HTTP call. Satisfied by
// auth.SessionManager; tests substitute a fake.
type Requester interface {
	Request(ctx context.Context, method, path string, payload []byte) (int, []byte, error)
}

// Gateway wraps the vendor REST surface. One instance per account.
type Gateway struct {
	session Requester
	logger  *slog.Logger
}

// NewGateway creates a gateway on top of an authenticated session.
func NewGateway(session Requester, logger *slog.Logger) *Gateway {
	return &Gateway{session: session, logger: logger}
}

// FetchAccountSnapshot retrieves the raw account-context payload. One call
// returns every building and both unit kinds; the design deliberately avoids
// per-unit fetches.
func (g *Gateway) FetchAccountSnapshot(ctx context.Context) ([]byte, error) {
	status, body, err := g.session.Request(ctx, "GET", accountContextPath, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		g.logger.Warn("Account context returned non-200", "status", status)
		return nil, &types.APIError{Status: status, Body: truncate(body)}
	}
	return body, nil
}

// EnergyPoint is one hourly interval-energy sample in watt-hours.
type EnergyPoint struct {
	Time    time.Time
	ValueWh float64
}

// FetchEnergyInterval retrieves the sparse hourly samples for one unit and
// measure over [from, to]. The series is irregular: missing hours are normal,
// and an empty response is not an error. A sample whose value or timestamp
// does not parse is logged and dropped rather than failing the whole fetch.
func (g *Gateway) FetchEnergyInterval(ctx context.Context, unitID string, from, to time.Time, measure Measure) ([]EnergyPoint, error) {
	q := url.Values{}
	q.Set("measure", string(measure))
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))
	path := fmt.Sprintf(energyPathFmt, url.PathEscape(unitID)) + "?" + q.Encode()

	status, body, err := g.session.Request(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotModified || status == http.StatusNoContent:
		return nil, nil
	case status != http.StatusOK:
		return nil, &types.APIError{Status: status, Body: truncate(body)}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var raw struct {
		Points []struct {
			Time  string          `json:"time"`
			Value json.RawMessage `json:"value"`
		} `json:"points"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &types.APIError{Status: status, Body: "unparseable telemetry body"}
	}

	points := make([]EnergyPoint, 0, len(raw.Points))
	for _, p := range raw.Points {
		ts, err := time.Parse(time.RFC3339, p.Time)
		if err != nil {
			g.logger.Warn("Skipping telemetry sample with bad timestamp", "unit", unitID, "time", p.Time)
			continue
		}
		wh, ok := decodeWattHours(p.Value)
		if !ok {
			g.logger.Warn("Skipping telemetry sample with bad value", "unit", unitID, "time", p.Time, "value", string(p.Value))
			continue
		}
		points = append(points, EnergyPoint{Time: ts, ValueWh: wh})
	}

	return points, nil
}

// decodeWattHours accepts the value either bare or quoted, matching the
// vendor's mixed number encodings elsewhere in the API.
func decodeWattHours(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func truncate(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
