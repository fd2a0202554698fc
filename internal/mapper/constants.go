// Package mapper flattens the vendor's settings-array wire format into the
// typed unit model. The raw name/value pairs never travel past this boundary.
package mapper

// Wire setting names shared by both unit kinds.
const (
	SetPower          = "Power"
	SetHasEnergyMeter = "HasEnergyMeter"
)

// Air-to-air setting names.
const (
	SetOperationMode   = "OperationMode"
	SetSetTemperature  = "SetTemperature"
	SetRoomTemperature = "RoomTemperature"
	SetFanSpeed        = "FanSpeed"
	SetVaneVertical    = "VaneVertical"
	SetVaneHorizontal  = "VaneHorizontal"

	SetHasAutoMode            = "HasAutoMode"
	SetHasDryMode             = "HasDryMode"
	SetSupportsVaneVertical   = "SupportsVaneVertical"
	SetSupportsVaneHorizontal = "SupportsVaneHorizontal"
	SetNumberOfFanSpeeds      = "NumberOfFanSpeeds"
	SetMinTempHeat            = "MinTempHeat"
	SetMaxTempHeat            = "MaxTempHeat"
	SetMinTempCoolDry         = "MinTempCoolDry"
	SetMaxTempCoolDry         = "MaxTempCoolDry"
	SetMinTempAutomatic       = "MinTempAutomatic"
	SetMaxTempAutomatic       = "MaxTempAutomatic"
	SetTemperatureIncrement   = "TemperatureIncrement"
)

// Air-to-water setting names.
const (
	SetForcedHotWater          = "ForcedHotWater"
	SetOperationStatus         = "OperationStatus"
	SetSetTankTemperature      = "SetTankTemperature"
	SetTankTemperature         = "TankTemperature"
	SetSetTemperatureZone1     = "SetTemperatureZone1"
	SetRoomTemperatureZone1    = "RoomTemperatureZone1"
	SetOperationModeZone1      = "OperationModeZone1"
	SetSetTemperatureZone2     = "SetTemperatureZone2"
	SetRoomTemperatureZone2    = "RoomTemperatureZone2"
	SetOperationModeZone2      = "OperationModeZone2"
	SetHasZone2                = "HasZone2"
	SetFlowTemperature         = "FlowTemperature"
	SetReturnTemperature       = "ReturnTemperature"
	SetFlowTemperatureZone1    = "FlowTemperatureZone1"
	SetReturnTemperatureZone1  = "ReturnTemperatureZone1"
	SetFlowTemperatureBoiler   = "FlowTemperatureBoiler"
	SetReturnTemperatureBoiler = "ReturnTemperatureBoiler"
)

// Default setpoint limits used when a unit does not report its own. Heat mode
// has a lower floor than Cool/Dry/Auto on every observed unit.
const (
	DefaultMinTempHeat    = 10.0
	DefaultMaxTempHeat    = 31.0
	DefaultMinTempCoolDry = 16.0
	DefaultMaxTempCoolDry = 31.0
	DefaultMinTempAuto    = 16.0
	DefaultMaxTempAuto    = 31.0

	DefaultTemperatureIncrement = 0.5
)
