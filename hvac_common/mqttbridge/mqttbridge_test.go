package mqttbridge

import (
	"testing"

	"go.uber.org/zap"

	"github.com/deiger/aircon/hvac_common/device"
	"github.com/deiger/aircon/hvac_common/schema"
)

func newTestBridge(t *testing.T) (*Bridge, *device.Device) {
	t.Helper()
	d := device.New(device.Identity{Name: "unit", Model: schema.ModelAC, MAC: "AA:BB:CC:DD:EE:FF", IPAddress: "192.0.2.1"}, schema.AC)
	b := New(zap.NewNop(), "tcp://127.0.0.1:1883", "test-client", "P", "homeassistant", []*device.Device{d})
	return b, d
}

func TestTopicLayout(t *testing.T) {
	b, d := newTestBridge(t)

	if got, want := b.statusTopic(d.MAC, "t_power"), "P/AA:BB:CC:DD:EE:FF/t_power/status"; got != want {
		t.Errorf("statusTopic = %q, want %q", got, want)
	}
	if got, want := b.commandTopic(d.MAC, "t_power"), "P/AA:BB:CC:DD:EE:FF/t_power/command"; got != want {
		t.Errorf("commandTopic = %q, want %q", got, want)
	}
	if got, want := b.lwtTopic(), "P/LWT"; got != want {
		t.Errorf("lwtTopic = %q, want %q", got, want)
	}
	if got, want := b.availableTopic(d.MAC), "P/AA:BB:CC:DD:EE:FF/available/status"; got != want {
		t.Errorf("availableTopic = %q, want %q", got, want)
	}
	if got, want := b.discoveryTopic(d.MAC), "homeassistant/climate/AA:BB:CC:DD:EE:FF/hvac/config"; got != want {
		t.Errorf("discoveryTopic = %q, want %q", got, want)
	}
}

// Inbound t_work_mode == "fan_only" is rewritten to "FAN" before being
// parsed against the schema's FAN enum value.
func TestFanOnlyRewriteRoundTrips(t *testing.T) {
	field, ok := schema.AC.Field("t_work_mode")
	if !ok {
		t.Fatal("t_work_mode missing from AC table")
	}
	v, err := field.ParseText("FAN_ONLY")
	if err != nil {
		t.Fatalf("ParseText(FAN_ONLY): %v", err)
	}
	if got := field.FormatText(v); got != "fan_only" {
		t.Fatalf("FormatText round trip = %q, want fan_only", got)
	}
}

// The AC off-state override (hvac_common/device/ac.go) notifies
// t_work_mode with the literal string "off" rather than an AcWorkMode
// value; formatPayload must publish that verbatim instead of running it
// through the field's FormatText, which would panic on the type
// assertion.
func TestFormatPayloadPassesThroughSyntheticString(t *testing.T) {
	field, ok := schema.AC.Field("t_work_mode")
	if !ok {
		t.Fatal("t_work_mode missing from AC table")
	}
	if got, want := formatPayload(field, "off"), "off"; got != want {
		t.Fatalf("formatPayload(%q) = %q, want %q", "off", got, want)
	}
}

// publishDiscovery skips devices whose table has no t_work_mode; the
// humidifier schema is such a table.
func TestHumidifierHasNoWorkModeForDiscovery(t *testing.T) {
	humidifier := device.New(device.Identity{Name: "humid", Model: schema.ModelHumidifier, MAC: "11:22:33:44:55:66"}, schema.Humidifier)
	if _, ok := humidifier.Table().Field("t_work_mode"); ok {
		t.Fatal("expected humidifier schema to have no t_work_mode")
	}
}
