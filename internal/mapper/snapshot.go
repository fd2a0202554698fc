package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"melcloud_bridge/internal/types"
)

// ParseSnapshot decodes one account-context payload into the typed snapshot.
// Parsing is total: every known setting is decoded through an exhaustive match
// and a value that fits no known encoding fails the whole snapshot, so a
// malformed payload surfaces as a failed poll instead of half-parsed state.
// Unit IDs must be unique across the snapshot.
func ParseSnapshot(payload []byte, fetchedAt time.Time) (*types.AccountSnapshot, error) {
	var raw RawSnapshot
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode account context: %w", err)
	}

	snap := &types.AccountSnapshot{
		Buildings: make([]types.Building, 0, len(raw.Buildings)),
		FetchedAt: fetchedAt,
	}

	seen := make(map[string]struct{})
	for _, rb := range raw.Buildings {
		b := types.Building{
			ID:    rb.ID,
			Name:  rb.Name,
			Units: make([]types.Unit, 0, len(rb.AirToAir)+len(rb.AirToWater)),
		}

		for _, ru := range rb.AirToAir {
			u, err := flattenAta(ru)
			if err != nil {
				return nil, fmt.Errorf("unit %s: %w", ru.ID, err)
			}
			if err := noteID(seen, u.ID); err != nil {
				return nil, err
			}
			b.Units = append(b.Units, u)
		}
		for _, ru := range rb.AirToWater {
			u, err := flattenAtw(ru)
			if err != nil {
				return nil, fmt.Errorf("unit %s: %w", ru.ID, err)
			}
			if err := noteID(seen, u.ID); err != nil {
				return nil, err
			}
			b.Units = append(b.Units, u)
		}

		snap.Buildings = append(snap.Buildings, b)
	}

	return snap, nil
}

func noteID(seen map[string]struct{}, id string) error {
	if id == "" {
		return fmt.Errorf("unit with empty id")
	}
	if _, dup := seen[id]; dup {
		return fmt.Errorf("duplicate unit id %s", id)
	}
	seen[id] = struct{}{}
	return nil
}

func flattenAta(ru RawUnit) (types.Unit, error) {
	bag := bagOf(ru.Settings)
	ata := &types.AtaUnit{}
	var err error

	if ata.Power, err = bag.boolSetting(SetPower, false); err != nil {
		return types.Unit{}, err
	}
	if ata.SetTemperature, err = bag.floatSetting(SetSetTemperature, 0); err != nil {
		return types.Unit{}, err
	}
	if ata.RoomTemperature, err = bag.floatSetting(SetRoomTemperature, 0); err != nil {
		return types.Unit{}, err
	}

	mode, err := bag.stringSetting(SetOperationMode, string(types.ModeHeat))
	if err != nil {
		return types.Unit{}, err
	}
	if ata.Mode, err = ParseOperationMode(mode); err != nil {
		return types.Unit{}, err
	}

	fan, err := bag.stringSetting(SetFanSpeed, string(types.FanAuto))
	if err != nil {
		return types.Unit{}, err
	}
	if ata.FanSpeed, err = ParseFanSpeed(fan); err != nil {
		return types.Unit{}, err
	}

	vv, err := bag.stringSetting(SetVaneVertical, string(types.VaneAuto))
	if err != nil {
		return types.Unit{}, err
	}
	if ata.VaneVertical, err = ParseVanePosition(vv); err != nil {
		return types.Unit{}, err
	}
	vh, err := bag.stringSetting(SetVaneHorizontal, string(types.VaneAuto))
	if err != nil {
		return types.Unit{}, err
	}
	if ata.VaneHorizontal, err = ParseVanePosition(vh); err != nil {
		return types.Unit{}, err
	}

	caps, err := flattenAtaCapabilities(bag)
	if err != nil {
		return types.Unit{}, err
	}
	ata.Capabilities = caps

	return types.Unit{
		ID:             ru.ID,
		Name:           ru.Name,
		Offline:        ru.Offline,
		HasError:       ru.HasError,
		SignalStrength: ru.SignalStrength,
		Kind:           types.KindAirToAir,
		Ata:            ata,
	}, nil
}

func flattenAtaCapabilities(bag settingBag) (types.AtaCapabilities, error) {
	var caps types.AtaCapabilities
	var err error

	if caps.HasAutoMode, err = bag.boolSetting(SetHasAutoMode, false); err != nil {
		return caps, err
	}
	if caps.HasDryMode, err = bag.boolSetting(SetHasDryMode, false); err != nil {
		return caps, err
	}
	if caps.SupportsVaneVertical, err = bag.boolSetting(SetSupportsVaneVertical, false); err != nil {
		return caps, err
	}
	if caps.SupportsVaneHorizontal, err = bag.boolSetting(SetSupportsVaneHorizontal, false); err != nil {
		return caps, err
	}
	if caps.FanSpeedCount, err = bag.intSetting(SetNumberOfFanSpeeds, 5); err != nil {
		return caps, err
	}
	if caps.HasEnergyMeter, err = bag.boolSetting(SetHasEnergyMeter, false); err != nil {
		return caps, err
	}
	if caps.MinTempHeat, err = bag.floatSetting(SetMinTempHeat, DefaultMinTempHeat); err != nil {
		return caps, err
	}
	if caps.MaxTempHeat, err = bag.floatSetting(SetMaxTempHeat, DefaultMaxTempHeat); err != nil {
		return caps, err
	}
	if caps.MinTempCoolDry, err = bag.floatSetting(SetMinTempCoolDry, DefaultMinTempCoolDry); err != nil {
		return caps, err
	}
	if caps.MaxTempCoolDry, err = bag.floatSetting(SetMaxTempCoolDry, DefaultMaxTempCoolDry); err != nil {
		return caps, err
	}
	if caps.MinTempAuto, err = bag.floatSetting(SetMinTempAutomatic, DefaultMinTempAuto); err != nil {
		return caps, err
	}
	if caps.MaxTempAuto, err = bag.floatSetting(SetMaxTempAutomatic, DefaultMaxTempAuto); err != nil {
		return caps, err
	}
	if caps.TemperatureIncrement, err = bag.floatSetting(SetTemperatureIncrement, DefaultTemperatureIncrement); err != nil {
		return caps, err
	}

	return caps, nil
}

func flattenAtw(ru RawUnit) (types.Unit, error) {
	bag := bagOf(ru.Settings)
	atw := &types.AtwUnit{}
	var err error

	if atw.Power, err = bag.boolSetting(SetPower, false); err != nil {
		return types.Unit{}, err
	}
	if atw.ForcedHotWater, err = bag.boolSetting(SetForcedHotWater, false); err != nil {
		return types.Unit{}, err
	}
	if atw.HasEnergyMeter, err = bag.boolSetting(SetHasEnergyMeter, false); err != nil {
		return types.Unit{}, err
	}

	status, err := bag.stringSetting(SetOperationStatus, string(types.ValveIdle))
	if err != nil {
		return types.Unit{}, err
	}
	if atw.ValveStatus, err = ParseValveStatus(status); err != nil {
		return types.Unit{}, err
	}

	if atw.TankTarget, err = bag.floatSetting(SetSetTankTemperature, 0); err != nil {
		return types.Unit{}, err
	}
	if atw.TankActual, err = bag.floatSetting(SetTankTemperature, 0); err != nil {
		return types.Unit{}, err
	}

	zone1, err := flattenZone(bag, 1, SetSetTemperatureZone1, SetRoomTemperatureZone1, SetOperationModeZone1)
	if err != nil {
		return types.Unit{}, err
	}
	atw.Zones = append(atw.Zones, zone1)

	hasZone2, err := bag.boolSetting(SetHasZone2, false)
	if err != nil {
		return types.Unit{}, err
	}
	if hasZone2 {
		zone2, err := flattenZone(bag, 2, SetSetTemperatureZone2, SetRoomTemperatureZone2, SetOperationModeZone2)
		if err != nil {
			return types.Unit{}, err
		}
		atw.Zones = append(atw.Zones, zone2)
	}

	if atw.Flow.Flow, err = bag.floatSetting(SetFlowTemperature, 0); err != nil {
		return types.Unit{}, err
	}
	if atw.Flow.Return, err = bag.floatSetting(SetReturnTemperature, 0); err != nil {
		return types.Unit{}, err
	}
	if atw.Flow.FlowZone, err = bag.floatSetting(SetFlowTemperatureZone1, 0); err != nil {
		return types.Unit{}, err
	}
	if atw.Flow.ReturnZone, err = bag.floatSetting(SetReturnTemperatureZone1, 0); err != nil {
		return types.Unit{}, err
	}
	if atw.Flow.FlowBoiler, err = bag.floatSetting(SetFlowTemperatureBoiler, 0); err != nil {
		return types.Unit{}, err
	}
	if atw.Flow.ReturnBoiler, err = bag.floatSetting(SetReturnTemperatureBoiler, 0); err != nil {
		return types.Unit{}, err
	}

	return types.Unit{
		ID:             ru.ID,
		Name:           ru.Name,
		Offline:        ru.Offline,
		HasError:       ru.HasError,
		SignalStrength: ru.SignalStrength,
		Kind:           types.KindAirToWater,
		Atw:            atw,
	}, nil
}

func flattenZone(bag settingBag, index int, targetName, actualName, presetName string) (types.Zone, error) {
	z := types.Zone{Index: index}
	var err error

	if z.Target, err = bag.floatSetting(targetName, 0); err != nil {
		return z, err
	}
	if z.Actual, err = bag.floatSetting(actualName, 0); err != nil {
		return z, err
	}

	preset, err := bag.stringSetting(presetName, string(types.PresetRoom))
	if err != nil {
		return z, err
	}
	if z.Preset, err = ParseZonePreset(preset); err != nil {
		return z, err
	}

	return z, nil
}
