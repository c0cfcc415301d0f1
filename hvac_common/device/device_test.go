package device

import (
	"testing"

	"github.com/deiger/aircon/hvac_common/controlvalue"
	"github.com/deiger/aircon/hvac_common/schema"
)

func newAC(t *testing.T) *Device {
	t.Helper()
	return New(Identity{Name: "unit", Model: schema.ModelAC, IPAddress: "192.0.2.1"}, schema.AC)
}

func TestQueueStatusRefreshUsesBackgroundPriority(t *testing.T) {
	d := newAC(t)
	d.QueueStatusRefresh()
	if d.QueueDepth() != len(schema.AC.Names()) {
		t.Fatalf("queue depth = %d, want %d", d.QueueDepth(), len(schema.AC.Names()))
	}
	for _, c := range d.queue {
		if c.priority != PriorityStatus {
			t.Fatalf("status refresh queued at priority %d, want %d", c.priority, PriorityStatus)
		}
	}
}

// A priority-10 command enqueued after N priority-100 commands is
// emitted before any of them.
func TestPriorityOrdering(t *testing.T) {
	d := newAC(t)
	d.QueueStatusRefresh()
	if err := d.SetProperty("t_eco", "ON"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	payload, _, ok := d.PopCommand()
	if !ok {
		t.Fatalf("expected a queued command")
	}
	props, ok := payload["properties"]
	if !ok {
		t.Fatalf("expected the priority-10 t_eco set to be popped first, got %v", payload)
	}
	_ = props
}

// A write to a control-value-backed property on a device with
// t_control_value present enqueues exactly one t_control_value set,
// not the named property directly.
func TestControlValueRouting(t *testing.T) {
	d := newAC(t)
	d.update("t_control_value", 0)

	if err := d.SetProperty("t_fan_speed", "HIGH"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if d.QueueDepth() != 1 {
		t.Fatalf("queue depth = %d, want 1", d.QueueDepth())
	}
	payload, updater, _ := d.PopCommand()
	props := payload["properties"].([]interface{})
	if len(props) != 1 {
		t.Fatalf("expected exactly one queued property")
	}
	prop := props[0].(map[string]interface{})["property"].(map[string]interface{})
	if prop["name"] != "t_control_value" {
		t.Fatalf("expected t_control_value, got %v", prop["name"])
	}
	// The session layer applies the optimistic updater only after the
	// command reply is written; simulate that here.
	updater()

	v, ok := d.Get("t_fan_speed")
	if !ok || v != schema.FanSpeedHigh {
		t.Fatalf("Get(t_fan_speed) via register = %v, want HIGH", v)
	}
}

func TestDirectRoutingWithoutControlValue(t *testing.T) {
	d := newAC(t)
	if err := d.SetProperty("t_fan_speed", "HIGH"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	payload, _, _ := d.PopCommand()
	props := payload["properties"].([]interface{})
	prop := props[0].(map[string]interface{})["property"].(map[string]interface{})
	if prop["name"] != "t_fan_speed" {
		t.Fatalf("expected a direct t_fan_speed command, got %v", prop["name"])
	}
}

// Setting t_temp_heatcold := ON enqueues exactly five commands in
// order: heatcold, fan_speed=AUTO, fan_mute=OFF, sleep=STOP,
// temp_eight=OFF.
func TestFastHeatCoolCascade(t *testing.T) {
	d := newAC(t)
	if err := d.SetProperty("t_temp_heatcold", "ON"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if d.QueueDepth() != 5 {
		t.Fatalf("queue depth = %d, want 5", d.QueueDepth())
	}

	wantOrder := []string{"t_temp_heatcold", "t_fan_speed", "t_fan_mute", "t_sleep", "t_temp_eight"}
	for _, want := range wantOrder {
		payload, _, ok := d.PopCommand()
		if !ok {
			t.Fatalf("expected a command for %s", want)
		}
		props := payload["properties"].([]interface{})
		prop := props[0].(map[string]interface{})["property"].(map[string]interface{})
		if prop["name"] != want {
			t.Fatalf("cascade order: got %v, want %s", prop["name"], want)
		}
	}
}

func TestWorkModeOffRewritesToPower(t *testing.T) {
	d := newAC(t)
	if err := d.SetProperty("t_work_mode", "OFF"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if d.QueueDepth() != 1 {
		t.Fatalf("queue depth = %d, want 1 (power off only)", d.QueueDepth())
	}
	payload, _, _ := d.PopCommand()
	props := payload["properties"].([]interface{})
	prop := props[0].(map[string]interface{})["property"].(map[string]interface{})
	if prop["name"] != "t_power" || prop["value"] != 0 {
		t.Fatalf("expected t_power=0, got %v", prop)
	}
}

func TestWorkModeOtherValuePrefixesPowerOn(t *testing.T) {
	d := newAC(t)
	if err := d.SetProperty("t_work_mode", "COOL"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if d.QueueDepth() != 2 {
		t.Fatalf("queue depth = %d, want 2 (power on + mode)", d.QueueDepth())
	}
	first, _, _ := d.PopCommand()
	firstProp := first["properties"].([]interface{})[0].(map[string]interface{})["property"].(map[string]interface{})
	if firstProp["name"] != "t_power" || firstProp["value"] != 1 {
		t.Fatalf("expected t_power=1 first, got %v", firstProp)
	}
	second, _, _ := d.PopCommand()
	secondProp := second["properties"].([]interface{})[0].(map[string]interface{})["property"].(map[string]interface{})
	if secondProp["name"] != "t_work_mode" {
		t.Fatalf("expected t_work_mode second, got %v", secondProp)
	}
}

func TestOffStateModeNotification(t *testing.T) {
	d := newAC(t)
	var notifications []struct {
		name  string
		value schema.Value
	}
	d.AddListener(func(_, name string, value schema.Value) {
		notifications = append(notifications, struct {
			name  string
			value schema.Value
		}{name, value})
	})

	d.update("t_power", schema.Off)

	found := false
	for _, n := range notifications {
		if n.name == "t_work_mode" && n.value == "off" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a t_work_mode=off notification after powering off, got %+v", notifications)
	}
}

// Enqueuing a command wakes every registered enqueue listener, the
// event-driven half of the notifier's wake condition.
func TestEnqueueListenerFiresOnPush(t *testing.T) {
	d := newAC(t)
	var fired int
	d.AddEnqueueListener(func() { fired++ })

	if err := d.SetProperty("t_eco", "ON"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if fired != 1 {
		t.Fatalf("enqueue listener fired %d times, want 1", fired)
	}
}

func TestApplyUpdateControlValueDecodesSubfields(t *testing.T) {
	d := newAC(t)
	var reg controlvalue.Register
	reg = reg.SetFanSpeed(schema.FanSpeedHigh)

	if err := d.ApplyUpdate("t_control_value", float64(reg)); err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}
	v, ok := d.Get("t_fan_speed")
	if !ok || v != schema.FanSpeedHigh {
		t.Fatalf("t_fan_speed via decode = %v", v)
	}
}
