package mapper

import (
	"fmt"

	"melcloud_bridge/internal/types"
)

// ParseOperationMode maps a control-API mode string to the typed enum.
func ParseOperationMode(s string) (types.OperationMode, error) {
	switch types.OperationMode(s) {
	case types.ModeHeat, types.ModeCool, types.ModeAuto, types.ModeDry, types.ModeFan:
		return types.OperationMode(s), nil
	}
	return "", fmt.Errorf("unknown operation mode %q", s)
}

// ParseFanSpeed maps a control-API fan speed string to the typed enum.
func ParseFanSpeed(s string) (types.FanSpeed, error) {
	switch types.FanSpeed(s) {
	case types.FanAuto, types.FanOne, types.FanTwo, types.FanThree, types.FanFour, types.FanFive:
		return types.FanSpeed(s), nil
	}
	return "", fmt.Errorf("unknown fan speed %q", s)
}

// ParseVanePosition maps a control-API vane string to the typed enum.
func ParseVanePosition(s string) (types.VanePosition, error) {
	switch types.VanePosition(s) {
	case types.VaneAuto, types.VaneSwing, types.VaneOne, types.VaneTwo, types.VaneThree, types.VaneFour, types.VaneFive:
		return types.VanePosition(s), nil
	}
	return "", fmt.Errorf("unknown vane position %q", s)
}

// ParseZonePreset maps a zone regulation mode string to the typed enum.
func ParseZonePreset(s string) (types.ZonePreset, error) {
	switch types.ZonePreset(s) {
	case types.PresetRoom, types.PresetFlow, types.PresetCurve:
		return types.ZonePreset(s), nil
	}
	return "", fmt.Errorf("unknown zone preset %q", s)
}

// ParseValveStatus maps the 3-way valve status string to the typed enum.
func ParseValveStatus(s string) (types.ValveStatus, error) {
	switch types.ValveStatus(s) {
	case types.ValveIdle, types.ValveHeatingZones, types.ValveHeatingWater:
		return types.ValveStatus(s), nil
	}
	return "", fmt.Errorf("unknown valve status %q", s)
}
