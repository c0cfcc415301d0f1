// Package mqttbridge implements the MQTT translation layer (C8):
// topic layout, subscribe/publish, and the payload coding between the
// appliance's typed properties and the home-automation discovery
// convention. Grounded on the topic/subscribe/publish shape of
// original_source/aircon/mqtt_client.py, rebuilt against
// github.com/eclipse/paho.mqtt.golang the way ap_common/iotcore and
// ap.iotd wire that client.
package mqttbridge

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/deiger/aircon/hvac_common/device"
	"github.com/deiger/aircon/hvac_common/metrics"
	"github.com/deiger/aircon/hvac_common/schema"
)

const subscribeLogTopic = "$SYS/broker/log/M/subscribe/#"

// Bridge owns one paho client and the device set it mirrors onto MQTT.
type Bridge struct {
	log             *zap.Logger
	prefix          string
	discoveryPrefix string
	client          mqtt.Client
	devices         []*device.Device
	byMAC           map[string]*device.Device
}

// New builds a Bridge for devices, publishing under prefix (e.g. "P")
// and emitting home-automation discovery blobs under discoveryPrefix
// (e.g. "homeassistant"). broker is a paho-style URI
// ("tcp://host:1883").
func New(log *zap.Logger, broker, clientID, prefix, discoveryPrefix string, devices []*device.Device) *Bridge {
	b := &Bridge{
		log:             log,
		prefix:          prefix,
		discoveryPrefix: discoveryPrefix,
		devices:         devices,
		byMAC:           make(map[string]*device.Device, len(devices)),
	}
	for _, d := range devices {
		b.byMAC[d.MAC] = d
	}

	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID).SetCleanSession(true)
	opts.SetWill(b.lwtTopic(), "offline", 0, true)
	opts.OnConnect = b.onConnect
	opts.DefaultPublishHandler = b.onMessage
	b.client = mqtt.NewClient(opts)
	return b
}

// MQTTLogToZap redirects paho's internal logging into logger, the way
// ap_common/iotcore.MQTTLogToZap does for the IoT Core client.
func MQTTLogToZap(logger *zap.Logger) {
	std, err := zap.NewStdLogAt(logger, zap.InfoLevel)
	if err == nil {
		mqtt.WARN = std
		mqtt.CRITICAL = std
		mqtt.ERROR = std
	}
}

// Connect opens the broker connection and blocks until it completes or
// fails.
func (b *Bridge) Connect() error {
	token := b.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "mqttbridge: connecting to broker")
	}
	return nil
}

// Disconnect closes the broker connection, waiting up to waitMillis.
func (b *Bridge) Disconnect(waitMillis uint) {
	b.client.Disconnect(waitMillis)
}

// AttachListeners wires every device's change-listener fan-out (C4)
// into a retained-false status publish, and routes its availability
// changes to the per-device P/{mac}/available/status topic, the way
// mqtt_client.py's mqtt_publish_update does per-property.
func (b *Bridge) AttachListeners() {
	for _, d := range b.devices {
		d := d
		d.AddListener(func(_, name string, value schema.Value) {
			if name == "available" {
				b.publishAvailability(d, value)
				return
			}
			b.publishStatus(d, name, value)
		})
	}
}

func (b *Bridge) statusTopic(mac, field string) string {
	return fmt.Sprintf("%s/%s/%s/status", b.prefix, mac, field)
}

func (b *Bridge) commandTopic(mac, field string) string {
	return fmt.Sprintf("%s/%s/%s/command", b.prefix, mac, field)
}

func (b *Bridge) lwtTopic() string {
	return b.prefix + "/LWT"
}

func (b *Bridge) availableTopic(mac string) string {
	return fmt.Sprintf("%s/%s/available/status", b.prefix, mac)
}

func (b *Bridge) discoveryTopic(mac string) string {
	return fmt.Sprintf("%s/climate/%s/hvac/config", b.discoveryPrefix, mac)
}

// formatPayload renders value for publication on a status topic. A
// string value is published verbatim: the AC off-state override
// (hvac_common/device/ac.go) notifies t_work_mode with the literal Go
// string "off" rather than the field's declared AcWorkMode type, and
// that synthetic value must bypass FormatText's type assertion.
func formatPayload(field *schema.Field, value schema.Value) string {
	if s, ok := value.(string); ok {
		return s
	}
	if field.FormatText != nil {
		return field.FormatText(value)
	}
	return fmt.Sprintf("%v", value)
}

func (b *Bridge) publishStatus(d *device.Device, name string, value schema.Value) {
	field, ok := d.Table().Field(name)
	if !ok {
		return
	}
	payload := formatPayload(field, value)
	token := b.client.Publish(b.statusTopic(d.MAC, name), 0, false, payload)
	metrics.MQTTPublishes.Inc()
	token.Wait()
	if err := token.Error(); err != nil {
		b.log.Error("mqtt publish failed",
			zap.String("device", d.Name), zap.String("property", name), zap.Error(err))
	}
}

// publishAvailability publishes a device's online/offline transition
// to its own P/{mac}/available/status topic, independent of the
// bridge-level P/LWT birth/will topic (which reports the bridge's own
// connection liveness, not any one device's).
func (b *Bridge) publishAvailability(d *device.Device, value schema.Value) {
	online, _ := value.(bool)
	payload := "offline"
	if online {
		payload = "online"
	}
	token := b.client.Publish(b.availableTopic(d.MAC), 0, false, payload)
	metrics.MQTTPublishes.Inc()
	token.Wait()
	if err := token.Error(); err != nil {
		b.log.Error("mqtt availability publish failed",
			zap.String("device", d.Name), zap.Error(err))
	}
}

// publishAllCurrent republishes every current property for an
// available device, the way mqtt_on_connect does at startup for every
// available device (original_source/aircon/mqtt_client.py).
func (b *Bridge) publishAllCurrent(d *device.Device) {
	if !d.Available() {
		return
	}
	snapshot := d.Snapshot()
	for name, value := range snapshot {
		field, ok := d.Table().Field(name)
		if !ok || value == nil {
			continue
		}
		b.publishStatus(d, name, value)
		_ = field
	}
}

// onConnect subscribes to every device's command topics plus the
// broker subscribe-log topic, then republishes current state for
// every available device, mirroring mqtt_on_connect.
func (b *Bridge) onConnect(client mqtt.Client) {
	for _, d := range b.devices {
		filters := make(map[string]byte, len(d.Table().Names()))
		for _, name := range d.Table().Names() {
			filters[b.commandTopic(d.MAC, name)] = 0
		}
		token := client.SubscribeMultiple(filters, nil)
		token.Wait()
		if err := token.Error(); err != nil {
			b.log.Error("failed to subscribe to command topics",
				zap.String("device", d.Name), zap.Error(err))
		}
		b.publishDiscovery(d)
	}

	birth := client.Publish(b.lwtTopic(), 0, true, "online")
	metrics.MQTTPublishes.Inc()
	birth.Wait()

	token := client.Subscribe(subscribeLogTopic, 0, nil)
	token.Wait()
	if err := token.Error(); err != nil {
		b.log.Error("failed to subscribe to broker subscribe-log topic", zap.Error(err))
	}

	for _, d := range b.devices {
		b.publishAllCurrent(d)
	}
}

// onMessage is the single catch-all message handler: it routes
// subscribe-log notifications to onLateSubscribe and command-topic
// publishes into a typed device write, matching mqtt_on_message.
func (b *Bridge) onMessage(client mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	if strings.HasPrefix(topic, "$SYS/broker/log/M/subscribe") {
		b.onLateSubscribe(msg.Payload())
		return
	}

	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[len(parts)-1] != "command" {
		return
	}
	mac := parts[len(parts)-3]
	property := parts[len(parts)-2]

	d, ok := b.byMAC[mac]
	if !ok {
		b.log.Warn("mqtt command for unknown device", zap.String("mac", mac))
		return
	}

	payload := strings.ToUpper(string(msg.Payload()))
	if property == "t_work_mode" && payload == "FAN_ONLY" {
		payload = "FAN"
	}
	if err := d.SetProperty(property, payload); err != nil {
		b.log.Error("failed to queue mqtt command",
			zap.String("device", d.Name), zap.String("property", property), zap.Error(err))
	}
}

// onLateSubscribe detects a new subscriber to one of our status topics
// (via the broker's subscribe-log) and republishes current state to it
// without a blanket retained flag, matching mqtt_on_subscribe.
func (b *Bridge) onLateSubscribe(payload []byte) {
	fields := strings.Fields(string(payload))
	if len(fields) == 0 {
		return
	}
	topic := fields[len(fields)-1]
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[len(parts)-1] != "status" {
		return
	}
	mac := parts[len(parts)-3]
	property := parts[len(parts)-2]

	d, ok := b.byMAC[mac]
	if !ok {
		return
	}
	value, ok := d.Get(property)
	if !ok {
		return
	}
	b.publishStatus(d, property, value)
}

// haClimateConfig is the retained discovery blob for Home Assistant's
// MQTT climate component, derived from one device's capability set
// (its work-mode and fan-speed enum members).
type haClimateConfig struct {
	Name                    string   `json:"name"`
	UniqueID                string   `json:"unique_id"`
	ModeStateTopic          string   `json:"mode_state_topic"`
	ModeCommandTopic        string   `json:"mode_command_topic"`
	Modes                   []string `json:"modes"`
	FanModeStateTopic       string   `json:"fan_mode_state_topic"`
	FanModeCommandTopic     string   `json:"fan_mode_command_topic"`
	FanModes                []string `json:"fan_modes"`
	TemperatureStateTopic   string   `json:"temperature_state_topic"`
	TemperatureCommandTopic string   `json:"temperature_command_topic"`
	CurrentTemperatureTopic string   `json:"current_temperature_topic"`
	AvailabilityTopic       string   `json:"availability_topic"`
	PayloadAvailable        string   `json:"payload_available"`
	PayloadNotAvailable     string   `json:"payload_not_available"`
}

func (b *Bridge) publishDiscovery(d *device.Device) {
	cfg := haClimateConfig{
		Name:                    d.Name,
		UniqueID:                d.MAC,
		ModeStateTopic:          b.statusTopic(d.MAC, "t_work_mode"),
		ModeCommandTopic:        b.commandTopic(d.MAC, "t_work_mode"),
		Modes:                   workModeNames(d),
		FanModeStateTopic:       b.statusTopic(d.MAC, "t_fan_speed"),
		FanModeCommandTopic:     b.commandTopic(d.MAC, "t_fan_speed"),
		FanModes:                fanSpeedNames(d),
		TemperatureStateTopic:   b.statusTopic(d.MAC, "t_temp"),
		TemperatureCommandTopic: b.commandTopic(d.MAC, "t_temp"),
		CurrentTemperatureTopic: b.statusTopic(d.MAC, "f_temp_in"),
		AvailabilityTopic:       b.availableTopic(d.MAC),
		PayloadAvailable:        "online",
		PayloadNotAvailable:     "offline",
	}
	if _, ok := d.Table().Field("t_work_mode"); !ok {
		return
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		b.log.Error("failed to marshal discovery config", zap.Error(err))
		return
	}
	token := b.client.Publish(b.discoveryTopic(d.MAC), 0, true, data)
	metrics.MQTTPublishes.Inc()
	token.Wait()
	if err := token.Error(); err != nil {
		b.log.Error("failed to publish discovery config", zap.String("device", d.Name), zap.Error(err))
	}
}

func workModeNames(d *device.Device) []string {
	field, ok := d.Table().Field("t_work_mode")
	if !ok {
		return nil
	}
	return enumWireNames(field)
}

func fanSpeedNames(d *device.Device) []string {
	field, ok := d.Table().Field("t_fan_speed")
	if !ok {
		return nil
	}
	return enumWireNames(field)
}

// enumWireNames lists the values of field found in a fixed set of
// common enum names, each rendered through FormatText so the list
// matches the status payloads (FAN is listed as "fan_only"). The schema
// package exposes no enumerator, so enum values outside that set (e.g.
// LOWER, HIGHER) are not listed.
func enumWireNames(field *schema.Field) []string {
	candidates := []string{"AUTO", "COOL", "HEAT", "DRY", "FAN", "LOW", "MEDIUM", "HIGH", "ON", "OFF"}
	var names []string
	for _, c := range candidates {
		if v, err := field.ParseText(c); err == nil {
			names = append(names, field.FormatText(v))
		}
	}
	return names
}
