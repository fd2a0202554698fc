// Package bridge exposes the polled state over MQTT and forwards inbound
// commands to the vendor, confirming each one with a coordinator refresh
// instead of predicting its effect locally.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"melcloud_bridge/internal/api"
	"melcloud_bridge/internal/cache"
	"melcloud_bridge/internal/mapper"
	"melcloud_bridge/internal/poller"
	"melcloud_bridge/internal/types"
)

const (
	topicPrefix       = "melcloud"
	availabilityTopic = topicPrefix + "/bridge/availability"

	commandTimeout = 30 * time.Second
)

// Bridge connects the coordinator's read surface and the gateway's write
// surface to an MQTT broker.
type Bridge struct {
	gateway     *api.Gateway
	coordinator *poller.Coordinator
	cache       *cache.SnapshotCache
	logger      *slog.Logger

	mu            sync.Mutex
	lastPublished map[string]string
	lastAvailable string
}

// New creates a bridge around an already-wired gateway and coordinator.
func New(gateway *api.Gateway, coordinator *poller.Coordinator, c *cache.SnapshotCache, logger *slog.Logger) *Bridge {
	return &Bridge{
		gateway:       gateway,
		coordinator:   coordinator,
		cache:         c,
		logger:        logger,
		lastPublished: make(map[string]string),
	}
}

// ClientOptions builds MQTT client options with an offline will on the
// availability topic. Subscriptions are set up in the connect handler so they
// survive a reconnect.
func (b *Bridge) ClientOptions(broker, username, password string) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("melcloud-bridge").
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetWill(availabilityTopic, "offline", 0, true).
		SetOnConnectHandler(func(client mqtt.Client) {
			b.logger.Info("MQTT connected", "broker", broker)
			b.subscribeToCommands(client)
		}).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "error", err)
		})
}

// Run publishes availability and per-unit state on the given interval until
// ctx is cancelled. Unchanged payloads are not republished.
func (b *Bridge) Run(ctx context.Context, client mqtt.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.publish(client)
	for {
		select {
		case <-ctx.Done():
			if t := client.Publish(availabilityTopic, 0, true, "offline"); t.Wait() && t.Error() != nil {
				b.logger.Warn("MQTT publish failed", "topic", availabilityTopic, "error", t.Error())
			}
			return
		case <-ticker.C:
			b.publish(client)
		}
	}
}

func (b *Bridge) publish(client mqtt.Client) {
	b.publishAvailability(client)

	if !b.coordinator.Available() {
		return
	}
	snap := b.coordinator.Snapshot()
	if snap == nil {
		return
	}

	for i := range snap.Buildings {
		bd := &snap.Buildings[i]
		for j := range bd.Units {
			b.publishUnit(client, bd, &bd.Units[j])
		}
	}
}

func (b *Bridge) publishAvailability(client mqtt.Client) {
	payload := "offline"
	if b.coordinator.Available() {
		payload = "online"
	}

	b.mu.Lock()
	unchanged := b.lastAvailable == payload
	b.lastAvailable = payload
	b.mu.Unlock()
	if unchanged {
		return
	}

	if t := client.Publish(availabilityTopic, 0, true, payload); t.Wait() && t.Error() != nil {
		b.logger.Warn("MQTT publish failed", "topic", availabilityTopic, "error", t.Error())
	}
}

func (b *Bridge) publishUnit(client mqtt.Client, building *types.Building, unit *types.Unit) {
	payload, err := json.Marshal(unitState(building, unit))
	if err != nil {
		b.logger.Error("Failed to encode unit state", "unit", unit.ID, "error", err)
		return
	}

	b.mu.Lock()
	unchanged := b.lastPublished[unit.ID] == string(payload)
	b.lastPublished[unit.ID] = string(payload)
	b.mu.Unlock()
	if unchanged {
		return
	}

	topic := fmt.Sprintf("%s/%s/state", topicPrefix, unit.ID)
	if t := client.Publish(topic, 0, true, payload); t.Wait() && t.Error() != nil {
		b.logger.Warn("MQTT publish failed", "topic", topic, "error", t.Error())
	}
}

func unitState(building *types.Building, unit *types.Unit) stateMessage {
	msg := stateMessage{
		Kind:     unit.Kind.String(),
		Name:     unit.Name,
		Building: building.Name,
		Online:   !unit.Offline,
		Error:    unit.HasError,
	}

	switch unit.Kind {
	case types.KindAirToAir:
		ata := unit.Ata
		msg.Power = ata.Power
		msg.Mode = string(ata.Mode)
		msg.SetTemperature = ptr(ata.SetTemperature)
		msg.RoomTemperature = ptr(ata.RoomTemperature)
		msg.FanSpeed = string(ata.FanSpeed)
		msg.VaneVertical = string(ata.VaneVertical)
		msg.VaneHorizontal = string(ata.VaneHorizontal)
	case types.KindAirToWater:
		atw := unit.Atw
		msg.Power = atw.Power
		msg.ValveStatus = string(atw.ValveStatus)
		msg.TankTarget = ptr(atw.TankTarget)
		msg.TankActual = ptr(atw.TankActual)
		msg.ForcedHotWater = ptr(atw.ForcedHotWater)
		for _, z := range atw.Zones {
			msg.Zones = append(msg.Zones, zoneState{
				Zone:   z.Index,
				Target: z.Target,
				Actual: z.Actual,
				Preset: string(z.Preset),
			})
		}
	}

	return msg
}

func (b *Bridge) subscribeToCommands(client mqtt.Client) {
	topic := topicPrefix + "/+/set"
	if t := client.Subscribe(topic, 0, b.handleCommand); t.Wait() && t.Error() != nil {
		b.logger.Error("MQTT subscribe failed", "topic", topic, "error", t.Error())
	}
}

// handleCommand sends an inbound command and then refreshes, so the next
// state publish reflects the command's actual effect. Failed commands are not
// retried; re-sending a toggle blindly risks double-application.
func (b *Bridge) handleCommand(client mqtt.Client, msg mqtt.Message) {
	unitID := unitIDFromTopic(msg.Topic())
	if unitID == "" {
		b.logger.Warn("Command on malformed topic", "topic", msg.Topic())
		return
	}

	unit := b.cache.Unit(unitID)
	if unit == nil {
		b.logger.Warn("Command for unknown unit", "unit", unitID)
		return
	}

	var cm commandMessage
	if err := json.Unmarshal(msg.Payload(), &cm); err != nil {
		b.logger.Warn("Unparseable command payload", "unit", unitID, "error", err)
		return
	}

	cmd, err := toUnitCommand(cm)
	if err != nil {
		b.logger.Warn("Rejected command", "unit", unitID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.gateway.SendUnitCommand(ctx, unit, cmd); err != nil {
		b.logger.Error("Command failed", "unit", unitID, "error", err)
		return
	}
	if err := b.coordinator.Refresh(ctx); err != nil {
		b.logger.Warn("Post-command refresh did not complete", "unit", unitID, "error", err)
	}
}

func toUnitCommand(cm commandMessage) (api.UnitCommand, error) {
	cmd := api.UnitCommand{
		Power:          cm.Power,
		SetTemperature: cm.SetTemperature,
		TankTarget:     cm.TankTarget,
		ForcedHotWater: cm.ForcedHotWater,
		Zone1Target:    cm.Zone1Target,
		Zone2Target:    cm.Zone2Target,
	}

	if cm.Mode != nil {
		mode, err := mapper.ParseOperationMode(*cm.Mode)
		if err != nil {
			return cmd, err
		}
		cmd.Mode = &mode
	}
	if cm.FanSpeed != nil {
		fan, err := mapper.ParseFanSpeed(*cm.FanSpeed)
		if err != nil {
			return cmd, err
		}
		cmd.FanSpeed = &fan
	}
	if cm.VaneVertical != nil {
		vane, err := mapper.ParseVanePosition(*cm.VaneVertical)
		if err != nil {
			return cmd, err
		}
		cmd.VaneVertical = &vane
	}
	if cm.VaneHorizontal != nil {
		vane, err := mapper.ParseVanePosition(*cm.VaneHorizontal)
		if err != nil {
			return cmd, err
		}
		cmd.VaneHorizontal = &vane
	}
	if cm.Zone1Preset != nil {
		preset, err := mapper.ParseZonePreset(*cm.Zone1Preset)
		if err != nil {
			return cmd, err
		}
		cmd.Zone1Preset = &preset
	}
	if cm.Zone2Preset != nil {
		preset, err := mapper.ParseZonePreset(*cm.Zone2Preset)
		if err != nil {
			return cmd, err
		}
		cmd.Zone2Preset = &preset
	}

	return cmd, nil
}

func unitIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != topicPrefix || parts[2] != "set" {
		return ""
	}
	return parts[1]
}

func ptr[T any](v T) *T {
	return &v
}
