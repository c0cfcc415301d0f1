package controlvalue

import (
	"testing"

	"github.com/deiger/aircon/hvac_common/schema"
)

func TestClearChangeFlagsPreservesValues(t *testing.T) {
	var r Register
	r = r.SetFanSpeed(schema.FanSpeedHigh)
	r = r.SetPower(schema.On)
	r = r.SetTemp(42)

	before := r
	cleared := ClearChangeFlags(r)

	for _, bit := range []uint32{0, 5, 8, 12, 14, 16, 24, 26, 28, 30} {
		if cleared&Register(1<<bit) != 0 {
			t.Fatalf("change flag bit %d still set after ClearChangeFlags", bit)
		}
	}
	if cleared.FanSpeed() != before.FanSpeed() || cleared.Power() != before.Power() || cleared.Temp() != before.Temp() {
		t.Fatalf("ClearChangeFlags altered a value bit: before=%032b after=%032b", before, cleared)
	}
}

func TestSetClearsOtherChangeFlags(t *testing.T) {
	var r Register
	r = r.SetPower(schema.On)
	if r&(1<<5) == 0 {
		t.Fatalf("expected power change flag set")
	}
	r = r.SetFanSpeed(schema.FanSpeedAuto)
	if r&(1<<5) != 0 {
		t.Fatalf("expected power change flag cleared after setting a different field")
	}
	if r&(1<<0) == 0 {
		t.Fatalf("expected fan_speed change flag set")
	}
	if r.Power() != schema.On {
		t.Fatalf("expected power value preserved, got %v", r.Power())
	}
}

func TestRoundTripEveryField(t *testing.T) {
	var r Register
	r = r.SetFanSpeed(schema.FanSpeedMedium)
	r = r.SetPower(schema.On)
	r = r.SetWorkMode(schema.AcWorkModeCool)
	r = r.SetHeatCold(schema.On)
	r = r.SetEco(schema.On)
	r = r.SetTemp(25)
	r = r.SetFanPower(schema.On)
	r = r.SetFanLR(schema.On)
	r = r.SetFanMute(schema.On)
	r = r.SetTempType(schema.Fahrenheit)

	if r.FanSpeed() != schema.FanSpeedMedium {
		t.Errorf("fan speed = %v", r.FanSpeed())
	}
	if r.Power() != schema.On {
		t.Errorf("power = %v", r.Power())
	}
	if r.WorkMode() != schema.AcWorkModeCool {
		t.Errorf("work mode = %v", r.WorkMode())
	}
	if r.HeatCold() != schema.On {
		t.Errorf("heat cold = %v", r.HeatCold())
	}
	if r.Eco() != schema.On {
		t.Errorf("eco = %v", r.Eco())
	}
	if r.Temp() != 25 {
		t.Errorf("temp = %v", r.Temp())
	}
	if r.FanPower() != schema.On {
		t.Errorf("fan power = %v", r.FanPower())
	}
	if r.FanLR() != schema.On {
		t.Errorf("fan lr = %v", r.FanLR())
	}
	if r.FanMute() != schema.On {
		t.Errorf("fan mute = %v", r.FanMute())
	}
	if r.TempType() != schema.Fahrenheit {
		t.Errorf("temptype = %v", r.TempType())
	}
}

func TestDecodeMatchesSetters(t *testing.T) {
	var r Register
	r = r.SetTemp(30)
	r = r.SetPower(schema.On)

	decoded := Decode(r)
	if decoded["t_temp"] != 30 {
		t.Errorf("decoded t_temp = %d, want 30", decoded["t_temp"])
	}
	if decoded["t_power"] != int(schema.On) {
		t.Errorf("decoded t_power = %d, want %d", decoded["t_power"], schema.On)
	}
}
