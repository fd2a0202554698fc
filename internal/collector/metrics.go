package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric label names.
const (
	LabelUnitID   = "unit_id"
	LabelUnitName = "unit_name"
	LabelBuilding = "building"
	LabelMode     = "mode"
	LabelZone     = "zone"
	LabelCircuit  = "circuit"
	LabelStatus   = "status"
	LabelResult   = "result"
)

// MetricSet holds all Prometheus metric descriptors for the bridge.
type MetricSet struct {
	// Bridge health
	available   *prometheus.Desc
	lastSuccess *prometheus.Desc
	pollTotal   *prometheus.Desc

	// Per-unit state
	unitOnline   *prometheus.Desc
	unitError    *prometheus.Desc
	unitSignal   *prometheus.Desc
	unitPower    *prometheus.Desc
	unitRoomTemp *prometheus.Desc
	unitSetTemp  *prometheus.Desc
	unitMode     *prometheus.Desc

	// Air-to-water state
	tankTargetTemp *prometheus.Desc
	tankActualTemp *prometheus.Desc
	zoneTargetTemp *prometheus.Desc
	zoneActualTemp *prometheus.Desc
	circuitTemp    *prometheus.Desc
	forcedHotWater *prometheus.Desc
	valveStatus    *prometheus.Desc

	// Energy
	energyConsumed *prometheus.Desc
}

// newMetricSet creates all metric descriptors.
func newMetricSet() *MetricSet {
	unitLabels := []string{LabelUnitID, LabelUnitName, LabelBuilding}

	return &MetricSet{
		available: prometheus.NewDesc(
			"melcloud_bridge_available",
			"1 when the last poll cycle succeeded, 0 when degraded",
			nil, nil,
		),
		lastSuccess: prometheus.NewDesc(
			"melcloud_bridge_last_success_timestamp_seconds",
			"Unix time of the last successful poll cycle",
			nil, nil,
		),
		pollTotal: prometheus.NewDesc(
			"melcloud_bridge_poll_cycles_total",
			"Poll cycles by outcome",
			[]string{LabelResult}, nil,
		),

		unitOnline: prometheus.NewDesc(
			"melcloud_unit_online",
			"1 when the unit reports as reachable by the vendor cloud",
			unitLabels, nil,
		),
		unitError: prometheus.NewDesc(
			"melcloud_unit_error",
			"1 when the unit reports an error condition",
			unitLabels, nil,
		),
		unitSignal: prometheus.NewDesc(
			"melcloud_unit_wifi_signal_dbm",
			"WiFi adapter signal strength (dBm)",
			unitLabels, nil,
		),
		unitPower: prometheus.NewDesc(
			"melcloud_unit_power",
			"1 when the unit is powered on",
			unitLabels, nil,
		),
		unitRoomTemp: prometheus.NewDesc(
			"melcloud_unit_room_temperature_celsius",
			"Room temperature reported by an air-to-air unit (°C)",
			unitLabels, nil,
		),
		unitSetTemp: prometheus.NewDesc(
			"melcloud_unit_set_temperature_celsius",
			"Setpoint of an air-to-air unit (°C)",
			unitLabels, nil,
		),
		unitMode: prometheus.NewDesc(
			"melcloud_unit_operation_mode",
			"1 for the currently selected operation mode",
			append(unitLabels, LabelMode), nil,
		),

		tankTargetTemp: prometheus.NewDesc(
			"melcloud_tank_target_temperature_celsius",
			"DHW tank target temperature (°C)",
			unitLabels, nil,
		),
		tankActualTemp: prometheus.NewDesc(
			"melcloud_tank_temperature_celsius",
			"DHW tank actual temperature (°C)",
			unitLabels, nil,
		),
		zoneTargetTemp: prometheus.NewDesc(
			"melcloud_zone_target_temperature_celsius",
			"Heating zone target temperature (°C)",
			append(unitLabels, LabelZone), nil,
		),
		zoneActualTemp: prometheus.NewDesc(
			"melcloud_zone_temperature_celsius",
			"Heating zone actual temperature (°C)",
			append(unitLabels, LabelZone), nil,
		),
		circuitTemp: prometheus.NewDesc(
			"melcloud_circuit_temperature_celsius",
			"Flow/return temperature per hydraulic circuit (°C)",
			append(unitLabels, LabelCircuit), nil,
		),
		forcedHotWater: prometheus.NewDesc(
			"melcloud_forced_hot_water",
			"1 when forced DHW mode is active",
			unitLabels, nil,
		),
		valveStatus: prometheus.NewDesc(
			"melcloud_valve_status",
			"1 for the circuit the 3-way valve currently services",
			append(unitLabels, LabelStatus), nil,
		),

		energyConsumed: prometheus.NewDesc(
			"melcloud_unit_energy_consumed_kwh_total",
			"Cumulative energy consumed since the bridge first saw the unit (kWh)",
			[]string{LabelUnitID}, nil,
		),
	}
}
