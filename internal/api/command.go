package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"melcloud_bridge/internal/types"
)

// Tank and zone setpoint limits for air-to-water units. These are not reported
// per unit the way air-to-air ranges are.
const (
	minTankTemp = 30.0
	maxTankTemp = 60.0
	minZoneTemp = 10.0
	maxZoneTemp = 30.0
)

// UnitCommand is a partial update: only non-nil fields are sent and the vendor
// leaves omitted fields untouched. The bridge never predicts the post-command
// state; callers confirm effects via a coordinator refresh.
type UnitCommand struct {
	Power *bool

	// Air-to-air controls.
	Mode           *types.OperationMode
	SetTemperature *float64
	FanSpeed       *types.FanSpeed
	VaneVertical   *types.VanePosition
	VaneHorizontal *types.VanePosition

	// Air-to-water controls.
	TankTarget     *float64
	ForcedHotWater *bool
	Zone1Target    *float64
	Zone2Target    *float64
	Zone1Preset    *types.ZonePreset
	Zone2Preset    *types.ZonePreset
}

// SendUnitCommand validates cmd against the unit's capabilities and current
// mode, then PUTs the partial update. Validation failures never reach the
// network. A 200 with an empty body is the vendor's normal success response.
func (g *Gateway) SendUnitCommand(ctx context.Context, unit *types.Unit, cmd UnitCommand) error {
	if err := validateCommand(unit, cmd); err != nil {
		return err
	}

	payload, err := json.Marshal(commandPayload(cmd))
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	path := fmt.Sprintf(unitPathFmt, url.PathEscape(unit.ID))
	status, body, err := g.session.Request(ctx, "PUT", path, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		g.logger.Warn("Unit command rejected", "unit", unit.ID, "status", status)
		return &types.APIError{Status: status, Body: truncate(body)}
	}

	g.logger.Debug("Unit command accepted", "unit", unit.ID)
	return nil
}

// commandPayload builds the wire body with only the fields present in cmd.
func commandPayload(cmd UnitCommand) map[string]any {
	body := make(map[string]any)
	if cmd.Power != nil {
		body["power"] = *cmd.Power
	}
	if cmd.Mode != nil {
		body["operationMode"] = string(*cmd.Mode)
	}
	if cmd.SetTemperature != nil {
		body["setTemperature"] = *cmd.SetTemperature
	}
	if cmd.FanSpeed != nil {
		body["fanSpeed"] = string(*cmd.FanSpeed)
	}
	if cmd.VaneVertical != nil {
		body["vaneVertical"] = string(*cmd.VaneVertical)
	}
	if cmd.VaneHorizontal != nil {
		body["vaneHorizontal"] = string(*cmd.VaneHorizontal)
	}
	if cmd.TankTarget != nil {
		body["setTankTemperature"] = *cmd.TankTarget
	}
	if cmd.ForcedHotWater != nil {
		body["forcedHotWater"] = *cmd.ForcedHotWater
	}
	if cmd.Zone1Target != nil {
		body["setTemperatureZone1"] = *cmd.Zone1Target
	}
	if cmd.Zone2Target != nil {
		body["setTemperatureZone2"] = *cmd.Zone2Target
	}
	if cmd.Zone1Preset != nil {
		body["operationModeZone1"] = string(*cmd.Zone1Preset)
	}
	if cmd.Zone2Preset != nil {
		body["operationModeZone2"] = string(*cmd.Zone2Preset)
	}
	return body
}

func validateCommand(unit *types.Unit, cmd UnitCommand) error {
	switch unit.Kind {
	case types.KindAirToAir:
		return validateAtaCommand(unit.Ata, cmd)
	case types.KindAirToWater:
		return validateAtwCommand(unit.Atw, cmd)
	}
	return &types.ValidationError{Field: "unit", Reason: "unknown unit kind"}
}

func validateAtaCommand(ata *types.AtaUnit, cmd UnitCommand) error {
	if cmd.TankTarget != nil || cmd.ForcedHotWater != nil || cmd.Zone1Target != nil ||
		cmd.Zone2Target != nil || cmd.Zone1Preset != nil || cmd.Zone2Preset != nil {
		return &types.ValidationError{Field: "command", Reason: "water controls on an air-to-air unit"}
	}

	caps := ata.Capabilities

	if cmd.Mode != nil {
		switch *cmd.Mode {
		case types.ModeAuto:
			if !caps.HasAutoMode {
				return &types.ValidationError{Field: "operationMode", Reason: "unit has no auto mode"}
			}
		case types.ModeDry:
			if !caps.HasDryMode {
				return &types.ValidationError{Field: "operationMode", Reason: "unit has no dry mode"}
			}
		}
	}

	if cmd.SetTemperature != nil {
		// Bounds follow the mode the command establishes, not necessarily the
		// one currently reported.
		mode := ata.Mode
		if cmd.Mode != nil {
			mode = *cmd.Mode
		}

		var lo, hi float64
		switch mode {
		case types.ModeHeat:
			lo, hi = caps.MinTempHeat, caps.MaxTempHeat
		case types.ModeCool, types.ModeDry:
			lo, hi = caps.MinTempCoolDry, caps.MaxTempCoolDry
		case types.ModeAuto:
			lo, hi = caps.MinTempAuto, caps.MaxTempAuto
		case types.ModeFan:
			return &types.ValidationError{Field: "setTemperature", Reason: "no setpoint in fan mode"}
		}

		t := *cmd.SetTemperature
		if t < lo || t > hi {
			return &types.ValidationError{
				Field:  "setTemperature",
				Reason: fmt.Sprintf("%.1f outside [%.1f, %.1f] for mode %s", t, lo, hi, mode),
			}
		}
		if !onIncrement(t, caps.TemperatureIncrement) {
			return &types.ValidationError{
				Field:  "setTemperature",
				Reason: fmt.Sprintf("%.2f not a multiple of %.1f", t, caps.TemperatureIncrement),
			}
		}
	}

	if cmd.FanSpeed != nil {
		if n := fanSpeedOrdinal(*cmd.FanSpeed); n > caps.FanSpeedCount {
			return &types.ValidationError{
				Field:  "fanSpeed",
				Reason: fmt.Sprintf("unit has %d speeds", caps.FanSpeedCount),
			}
		}
	}
	if cmd.VaneVertical != nil && !caps.SupportsVaneVertical {
		return &types.ValidationError{Field: "vaneVertical", Reason: "unit has no vertical vane control"}
	}
	if cmd.VaneHorizontal != nil && !caps.SupportsVaneHorizontal {
		return &types.ValidationError{Field: "vaneHorizontal", Reason: "unit has no horizontal vane control"}
	}

	return nil
}

func validateAtwCommand(atw *types.AtwUnit, cmd UnitCommand) error {
	if cmd.Mode != nil || cmd.SetTemperature != nil || cmd.FanSpeed != nil ||
		cmd.VaneVertical != nil || cmd.VaneHorizontal != nil {
		return &types.ValidationError{Field: "command", Reason: "air controls on an air-to-water unit"}
	}

	if cmd.TankTarget != nil {
		if t := *cmd.TankTarget; t < minTankTemp || t > maxTankTemp {
			return &types.ValidationError{
				Field:  "setTankTemperature",
				Reason: fmt.Sprintf("%.1f outside [%.1f, %.1f]", t, minTankTemp, maxTankTemp),
			}
		}
	}
	if cmd.Zone1Target != nil {
		if err := validateZoneTarget(*cmd.Zone1Target, "setTemperatureZone1"); err != nil {
			return err
		}
	}
	if cmd.Zone2Target != nil {
		if len(atw.Zones) < 2 {
			return &types.ValidationError{Field: "setTemperatureZone2", Reason: "unit has no zone 2"}
		}
		if err := validateZoneTarget(*cmd.Zone2Target, "setTemperatureZone2"); err != nil {
			return err
		}
	}
	if cmd.Zone2Preset != nil && len(atw.Zones) < 2 {
		return &types.ValidationError{Field: "operationModeZone2", Reason: "unit has no zone 2"}
	}

	return nil
}

func validateZoneTarget(t float64, field string) error {
	if t < minZoneTemp || t > maxZoneTemp {
		return &types.ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("%.1f outside [%.1f, %.1f]", t, minZoneTemp, maxZoneTemp),
		}
	}
	return nil
}

func onIncrement(t, inc float64) bool {
	if inc <= 0 {
		return true
	}
	steps := t / inc
	return math.Abs(steps-math.Round(steps)) < 1e-6
}

func fanSpeedOrdinal(f types.FanSpeed) int {
	switch f {
	case types.FanOne:
		return 1
	case types.FanTwo:
		return 2
	case types.FanThree:
		return 3
	case types.FanFour:
		return 4
	case types.FanFive:
		return 5
	default:
		return 0 // Auto
	}
}
