package schema

import "testing"

func TestACTableLookup(t *testing.T) {
	f, ok := AC.Field("t_power")
	if !ok {
		t.Fatal("expected t_power field in AC table")
	}
	if f.BaseType != BaseTypeBoolean {
		t.Fatalf("expected boolean base type, got %s", f.BaseType)
	}
	if f.ReadOnly {
		t.Fatal("t_power must not be read-only")
	}
	if f.Default != On {
		t.Fatalf("expected default ON, got %v", f.Default)
	}
}

func TestACControlValueDefaultIsNil(t *testing.T) {
	f, ok := AC.Field("t_control_value")
	if !ok {
		t.Fatal("expected t_control_value field")
	}
	if f.Default != nil {
		t.Fatalf("expected nil default for t_control_value, got %v", f.Default)
	}
}

func TestWorkModeFanOnlyRewrite(t *testing.T) {
	f, _ := AC.Field("t_work_mode")
	if got := f.FormatText(AcWorkModeFan); got != "fan_only" {
		t.Fatalf("FormatText(FAN) = %q, want fan_only", got)
	}
	v, err := f.ParseText("fan_only")
	if err != nil {
		t.Fatal(err)
	}
	if v != AcWorkModeFan {
		t.Fatalf("ParseText(fan_only) = %v, want FAN", v)
	}
	if got := f.FormatText(AcWorkModeCool); got != "cool" {
		t.Fatalf("FormatText(COOL) = %q, want cool", got)
	}
}

func TestIntFieldRoundsFloatStrings(t *testing.T) {
	f, _ := AC.Field("t_temp")
	v, err := f.ParseText("75.6")
	if err != nil {
		t.Fatal(err)
	}
	if v != 76 {
		t.Fatalf("ParseText(75.6) = %v, want 76 (rounded)", v)
	}
}

func TestUnknownModelIsError(t *testing.T) {
	if _, err := TableFor("bogus"); err == nil {
		t.Fatal("expected error for unknown model")
	}
	if _, err := TableFor(ModelFglB); err != nil {
		t.Fatalf("TableFor(fgl_b): %v", err)
	}
}

func TestDecodeWireAcceptsNumericJSON(t *testing.T) {
	f, _ := AC.Field("t_fan_speed")
	v, err := f.DecodeWire(float64(8))
	if err != nil {
		t.Fatal(err)
	}
	if v != FanSpeedHigh {
		t.Fatalf("DecodeWire(8) = %v, want HIGH", v)
	}
}
