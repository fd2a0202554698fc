// Package types contains the shared device model and error taxonomy used across
// the melcloud_bridge packages.
package types

import "time"

// UnitKind discriminates the two device variants MELCloud exposes.
type UnitKind int

const (
	KindAirToAir UnitKind = iota
	KindAirToWater
)

func (k UnitKind) String() string {
	switch k {
	case KindAirToAir:
		return "air_to_air"
	case KindAirToWater:
		return "air_to_water"
	default:
		return "unknown"
	}
}

// OperationMode is an air-to-air operation mode as used by the control API.
// The schedule sub-API encodes the same concept as integers; see the api package.
type OperationMode string

const (
	ModeHeat OperationMode = "Heat"
	ModeCool OperationMode = "Cool"
	ModeAuto OperationMode = "Auto"
	ModeDry  OperationMode = "Dry"
	ModeFan  OperationMode = "Fan"
)

// FanSpeed is an air-to-air fan speed setting.
type FanSpeed string

const (
	FanAuto  FanSpeed = "Auto"
	FanOne   FanSpeed = "One"
	FanTwo   FanSpeed = "Two"
	FanThree FanSpeed = "Three"
	FanFour  FanSpeed = "Four"
	FanFive  FanSpeed = "Five"
)

// VanePosition is a vertical or horizontal vane direction.
type VanePosition string

const (
	VaneAuto  VanePosition = "Auto"
	VaneSwing VanePosition = "Swing"
	VaneOne   VanePosition = "One"
	VaneTwo   VanePosition = "Two"
	VaneThree VanePosition = "Three"
	VaneFour  VanePosition = "Four"
	VaneFive  VanePosition = "Five"
)

// ZonePreset selects how an air-to-water heating zone is regulated.
type ZonePreset string

const (
	PresetRoom  ZonePreset = "Room"
	PresetFlow  ZonePreset = "Flow"
	PresetCurve ZonePreset = "Curve"
)

// ValveStatus reports what the 3-way valve of an air-to-water unit is currently
// servicing. Zone heating and DHW heating are mutually exclusive by hardware.
type ValveStatus string

const (
	ValveIdle         ValveStatus = "Idle"
	ValveHeatingZones ValveStatus = "HeatingZones"
	ValveHeatingWater ValveStatus = "HeatingWater"
)

// AtaCapabilities are the feature flags and limits of one physical air-to-air
// unit. Controls must be consulted against these before being exposed.
type AtaCapabilities struct {
	HasAutoMode            bool
	HasDryMode             bool
	SupportsVaneVertical   bool
	SupportsVaneHorizontal bool
	FanSpeedCount          int
	HasEnergyMeter         bool

	MinTempHeat    float64
	MaxTempHeat    float64
	MinTempCoolDry float64
	MaxTempCoolDry float64
	MinTempAuto    float64
	MaxTempAuto    float64

	// TemperatureIncrement is the setpoint granularity, 0.5 for every unit
	// observed so far.
	TemperatureIncrement float64
}

// AtaUnit is the state of an air-to-air split unit.
type AtaUnit struct {
	Power           bool
	Mode            OperationMode
	SetTemperature  float64
	RoomTemperature float64
	FanSpeed        FanSpeed
	VaneVertical    VanePosition
	VaneHorizontal  VanePosition
	Capabilities    AtaCapabilities
}

// Zone is one heating zone of an air-to-water unit.
type Zone struct {
	Index  int
	Target float64
	Actual float64
	Preset ZonePreset
}

// FlowTemperatures are the six flow/return telemetry readings of an
// air-to-water unit: system circuit, zone circuit and boiler circuit.
type FlowTemperatures struct {
	Flow         float64
	Return       float64
	FlowZone     float64
	ReturnZone   float64
	FlowBoiler   float64
	ReturnBoiler float64
}

// AtwUnit is the state of an air-to-water heat pump.
type AtwUnit struct {
	Power          bool
	ValveStatus    ValveStatus
	Zones          []Zone
	TankTarget     float64
	TankActual     float64
	ForcedHotWater bool
	Flow           FlowTemperatures
	HasEnergyMeter bool
}

// Unit is one physical HVAC device. Exactly one of Ata/Atw is set, selected by
// Kind. Units are immutable once published; a poll replaces the whole value.
type Unit struct {
	ID             string
	Name           string
	Offline        bool
	HasError       bool
	SignalStrength int

	Kind UnitKind
	Ata  *AtaUnit
	Atw  *AtwUnit
}

// EnergyCapable reports whether the unit carries an energy meter the telemetry
// endpoint can be queried for.
func (u *Unit) EnergyCapable() bool {
	switch u.Kind {
	case KindAirToAir:
		return u.Ata != nil && u.Ata.Capabilities.HasEnergyMeter
	case KindAirToWater:
		return u.Atw != nil && u.Atw.HasEnergyMeter
	}
	return false
}

// Building groups the units installed at one address. Building names are not
// assumed unique; unit IDs are.
type Building struct {
	ID    int64
	Name  string
	Units []Unit
}

// AccountSnapshot is one complete point-in-time fetch of everything under the
// account. It is never mutated after construction; the poller publishes a new
// snapshot wholesale on every successful cycle.
type AccountSnapshot struct {
	Buildings []Building
	FetchedAt time.Time
}

// UnitCount returns the total number of units across all buildings.
func (s *AccountSnapshot) UnitCount() int {
	n := 0
	for i := range s.Buildings {
		n += len(s.Buildings[i].Units)
	}
	return n
}
