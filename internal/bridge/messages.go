package bridge

// stateMessage is the JSON document published per unit. Fields that do not
// apply to the unit kind are omitted.
type stateMessage struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Building string `json:"building"`
	Online   bool   `json:"online"`
	Error    bool   `json:"error"`
	Power    bool   `json:"power"`

	// Air-to-air
	Mode            string   `json:"mode,omitempty"`
	SetTemperature  *float64 `json:"set_temperature,omitempty"`
	RoomTemperature *float64 `json:"room_temperature,omitempty"`
	FanSpeed        string   `json:"fan_speed,omitempty"`
	VaneVertical    string   `json:"vane_vertical,omitempty"`
	VaneHorizontal  string   `json:"vane_horizontal,omitempty"`

	// Air-to-water
	ValveStatus    string      `json:"valve_status,omitempty"`
	TankTarget     *float64    `json:"tank_target,omitempty"`
	TankActual     *float64    `json:"tank_actual,omitempty"`
	ForcedHotWater *bool       `json:"forced_hot_water,omitempty"`
	Zones          []zoneState `json:"zones,omitempty"`
}

type zoneState struct {
	Zone   int     `json:"zone"`
	Target float64 `json:"target"`
	Actual float64 `json:"actual"`
	Preset string  `json:"preset"`
}

// commandMessage is the JSON document accepted on a unit's set topic. Every
// field is optional; it maps onto the gateway's partial-update command.
type commandMessage struct {
	Power          *bool    `json:"power,omitempty"`
	Mode           *string  `json:"mode,omitempty"`
	SetTemperature *float64 `json:"set_temperature,omitempty"`
	FanSpeed       *string  `json:"fan_speed,omitempty"`
	VaneVertical   *string  `json:"vane_vertical,omitempty"`
	VaneHorizontal *string  `json:"vane_horizontal,omitempty"`

	TankTarget     *float64 `json:"tank_target,omitempty"`
	ForcedHotWater *bool    `json:"forced_hot_water,omitempty"`
	Zone1Target    *float64 `json:"zone1_target,omitempty"`
	Zone2Target    *float64 `json:"zone2_target,omitempty"`
	Zone1Preset    *string  `json:"zone1_preset,omitempty"`
	Zone2Preset    *string  `json:"zone2_preset,omitempty"`
}
