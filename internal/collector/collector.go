// Package collector implements the Prometheus collector interface over the
// bridge's published state. Scrapes read the current snapshot and counters;
// they never touch the vendor API.
package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"melcloud_bridge/internal/poller"
	"melcloud_bridge/internal/types"
)

// EnergyTotals yields the cumulative kWh per unit.
type EnergyTotals interface {
	Totals() map[string]float64
}

// BridgeCollector implements prometheus.Collector over the coordinator's
// snapshot and the energy accumulator's totals.
type BridgeCollector struct {
	coordinator *poller.Coordinator
	energy      EnergyTotals
	metrics     *MetricSet
}

// NewBridgeCollector creates a collector. energy may be nil when the energy
// subsystem is disabled.
func NewBridgeCollector(coordinator *poller.Coordinator, energy EnergyTotals) *BridgeCollector {
	return &BridgeCollector{
		coordinator: coordinator,
		energy:      energy,
		metrics:     newMetricSet(),
	}
}

// Describe implements prometheus.Collector.
func (c *BridgeCollector) Describe(ch chan<- *prometheus.Desc) {
	m := c.metrics
	ch <- m.available
	ch <- m.lastSuccess
	ch <- m.pollTotal
	ch <- m.unitOnline
	ch <- m.unitError
	ch <- m.unitSignal
	ch <- m.unitPower
	ch <- m.unitRoomTemp
	ch <- m.unitSetTemp
	ch <- m.unitMode
	ch <- m.tankTargetTemp
	ch <- m.tankActualTemp
	ch <- m.zoneTargetTemp
	ch <- m.zoneActualTemp
	ch <- m.circuitTemp
	ch <- m.forcedHotWater
	ch <- m.valveStatus
	ch <- m.energyConsumed
}

// Collect implements prometheus.Collector.
func (c *BridgeCollector) Collect(ch chan<- prometheus.Metric) {
	available := c.coordinator.Available()
	ch <- prometheus.MustNewConstMetric(c.metrics.available, prometheus.GaugeValue, boolValue(available))

	if last := c.coordinator.LastSuccess(); !last.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.metrics.lastSuccess, prometheus.GaugeValue, float64(last.Unix()))
	}

	stats := c.coordinator.CollectStats()
	ch <- prometheus.MustNewConstMetric(c.metrics.pollTotal, prometheus.CounterValue, float64(stats.Successes), "success")
	ch <- prometheus.MustNewConstMetric(c.metrics.pollTotal, prometheus.CounterValue, float64(stats.AuthFailures), "auth_failure")
	ch <- prometheus.MustNewConstMetric(c.metrics.pollTotal, prometheus.CounterValue, float64(stats.ConnectivityFailures), "connectivity_failure")

	// Degraded means unavailable, not stale: per-unit state is withheld
	// entirely rather than re-served from the last good snapshot.
	if available {
		if snap := c.coordinator.Snapshot(); snap != nil {
			c.collectSnapshot(ch, snap)
		}
	}

	if c.energy != nil {
		for unitID, kwh := range c.energy.Totals() {
			ch <- prometheus.MustNewConstMetric(c.metrics.energyConsumed, prometheus.CounterValue, kwh, unitID)
		}
	}
}

func (c *BridgeCollector) collectSnapshot(ch chan<- prometheus.Metric, snap *types.AccountSnapshot) {
	for i := range snap.Buildings {
		b := &snap.Buildings[i]
		for j := range b.Units {
			u := &b.Units[j]
			labels := []string{u.ID, u.Name, b.Name}

			ch <- prometheus.MustNewConstMetric(c.metrics.unitOnline, prometheus.GaugeValue, boolValue(!u.Offline), labels...)
			ch <- prometheus.MustNewConstMetric(c.metrics.unitError, prometheus.GaugeValue, boolValue(u.HasError), labels...)
			ch <- prometheus.MustNewConstMetric(c.metrics.unitSignal, prometheus.GaugeValue, float64(u.SignalStrength), labels...)

			switch u.Kind {
			case types.KindAirToAir:
				c.collectAta(ch, labels, u.Ata)
			case types.KindAirToWater:
				c.collectAtw(ch, labels, u.Atw)
			}
		}
	}
}

func (c *BridgeCollector) collectAta(ch chan<- prometheus.Metric, labels []string, ata *types.AtaUnit) {
	ch <- prometheus.MustNewConstMetric(c.metrics.unitPower, prometheus.GaugeValue, boolValue(ata.Power), labels...)
	ch <- prometheus.MustNewConstMetric(c.metrics.unitRoomTemp, prometheus.GaugeValue, ata.RoomTemperature, labels...)
	ch <- prometheus.MustNewConstMetric(c.metrics.unitSetTemp, prometheus.GaugeValue, ata.SetTemperature, labels...)

	// One-hot over the closed mode set.
	modes := []types.OperationMode{types.ModeHeat, types.ModeCool, types.ModeAuto, types.ModeDry, types.ModeFan}
	for _, mode := range modes {
		v := 0.0
		if mode == ata.Mode {
			v = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.metrics.unitMode, prometheus.GaugeValue, v, append(labels, string(mode))...)
	}
}

func (c *BridgeCollector) collectAtw(ch chan<- prometheus.Metric, labels []string, atw *types.AtwUnit) {
	ch <- prometheus.MustNewConstMetric(c.metrics.unitPower, prometheus.GaugeValue, boolValue(atw.Power), labels...)
	ch <- prometheus.MustNewConstMetric(c.metrics.tankTargetTemp, prometheus.GaugeValue, atw.TankTarget, labels...)
	ch <- prometheus.MustNewConstMetric(c.metrics.tankActualTemp, prometheus.GaugeValue, atw.TankActual, labels...)
	ch <- prometheus.MustNewConstMetric(c.metrics.forcedHotWater, prometheus.GaugeValue, boolValue(atw.ForcedHotWater), labels...)

	for _, z := range atw.Zones {
		zone := zoneLabel(z.Index)
		ch <- prometheus.MustNewConstMetric(c.metrics.zoneTargetTemp, prometheus.GaugeValue, z.Target, append(labels, zone)...)
		ch <- prometheus.MustNewConstMetric(c.metrics.zoneActualTemp, prometheus.GaugeValue, z.Actual, append(labels, zone)...)
	}

	circuits := map[string]float64{
		"flow":          atw.Flow.Flow,
		"return":        atw.Flow.Return,
		"flow_zone":     atw.Flow.FlowZone,
		"return_zone":   atw.Flow.ReturnZone,
		"flow_boiler":   atw.Flow.FlowBoiler,
		"return_boiler": atw.Flow.ReturnBoiler,
	}
	for circuit, temp := range circuits {
		ch <- prometheus.MustNewConstMetric(c.metrics.circuitTemp, prometheus.GaugeValue, temp, append(labels, circuit)...)
	}

	statuses := []types.ValveStatus{types.ValveIdle, types.ValveHeatingZones, types.ValveHeatingWater}
	for _, st := range statuses {
		v := 0.0
		if st == atw.ValveStatus {
			v = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.metrics.valveStatus, prometheus.GaugeValue, v, append(labels, string(st))...)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

func zoneLabel(index int) string {
	if index == 2 {
		return "2"
	}
	return "1"
}
