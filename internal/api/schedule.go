package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"melcloud_bridge/internal/types"
)

// The schedule sub-API speaks integer enums where the control API speaks
// strings for the same concepts. The two mappings are separate on purpose;
// callers must not assume one applies to the other.

// Schedule-API operation mode values.
const (
	SchedModeHeat = 1
	SchedModeDry  = 2
	SchedModeCool = 3
	SchedModeFan  = 7
	SchedModeAuto = 8
)

// Schedule-API fan speed values: 0 is auto, 1..5 are the fixed speeds.
const SchedFanAuto = 0

// Schedule-API vane values. Only Auto and Swing have been verified against
// the vendor; the integer codes for the intermediate stops are unknown and
// deliberately not guessed.
const (
	SchedVaneAuto  = 0
	SchedVaneSwing = 7
)

// ScheduleEntry is one timer rule on a unit, in the sub-API's wire encoding.
type ScheduleEntry struct {
	ID             int64   `json:"id,omitempty"`
	Days           []int   `json:"days"`
	Time           string  `json:"time"`
	Power          bool    `json:"power"`
	Mode           int     `json:"mode"`
	FanSpeed       int     `json:"fanSpeed"`
	Vane           int     `json:"vane"`
	SetTemperature float64 `json:"setTemperature"`
}

// ScheduleMode converts a control-API mode to the schedule-API integer.
func ScheduleMode(m types.OperationMode) (int, error) {
	switch m {
	case types.ModeHeat:
		return SchedModeHeat, nil
	case types.ModeDry:
		return SchedModeDry, nil
	case types.ModeCool:
		return SchedModeCool, nil
	case types.ModeFan:
		return SchedModeFan, nil
	case types.ModeAuto:
		return SchedModeAuto, nil
	}
	return 0, fmt.Errorf("no schedule mode for %q", m)
}

// ScheduleFanSpeed converts a control-API fan speed to the schedule-API integer.
func ScheduleFanSpeed(f types.FanSpeed) int {
	return fanSpeedOrdinal(f)
}

// ScheduleVane converts a vane position to the schedule-API integer. Positions
// other than Auto and Swing are rejected: their codes were never verified.
func ScheduleVane(v types.VanePosition) (int, error) {
	switch v {
	case types.VaneAuto:
		return SchedVaneAuto, nil
	case types.VaneSwing:
		return SchedVaneSwing, nil
	}
	return 0, fmt.Errorf("schedule vane code for %q is not verified", v)
}

// ListSchedules fetches every timer rule on a unit.
func (g *Gateway) ListSchedules(ctx context.Context, unitID string) ([]ScheduleEntry, error) {
	path := fmt.Sprintf(schedulePathFmt, url.PathEscape(unitID))
	status, body, err := g.session.Request(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &types.APIError{Status: status, Body: truncate(body)}
	}

	var entries []ScheduleEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &types.APIError{Status: status, Body: "unparseable schedule body"}
	}
	return entries, nil
}

// CreateSchedule adds a timer rule to a unit.
func (g *Gateway) CreateSchedule(ctx context.Context, unitID string, entry ScheduleEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	path := fmt.Sprintf(schedulePathFmt, url.PathEscape(unitID))
	return g.scheduleWrite(ctx, "POST", path, payload)
}

// UpdateSchedule replaces an existing timer rule.
func (g *Gateway) UpdateSchedule(ctx context.Context, unitID string, entry ScheduleEntry) error {
	if entry.ID == 0 {
		return &types.ValidationError{Field: "schedule", Reason: "missing entry id"}
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	path := fmt.Sprintf(schedulePathFmt+"/%d", url.PathEscape(unitID), entry.ID)
	return g.scheduleWrite(ctx, "PUT", path, payload)
}

// DeleteSchedule removes a timer rule.
func (g *Gateway) DeleteSchedule(ctx context.Context, unitID string, entryID int64) error {
	path := fmt.Sprintf(schedulePathFmt+"/%d", url.PathEscape(unitID), entryID)
	return g.scheduleWrite(ctx, "DELETE", path, nil)
}

func (g *Gateway) scheduleWrite(ctx context.Context, method, path string, payload []byte) error {
	status, body, err := g.session.Request(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return &types.APIError{Status: status, Body: truncate(body)}
	}
	return nil
}
