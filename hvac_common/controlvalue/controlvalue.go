// Package controlvalue implements the bit-packed 32-bit "t_control_value"
// register used by newer AC firmware to aggregate most writable settings
// behind a single property. Each sub-field occupies a low-bit value span
// plus one high "changed" flag bit set by the local controller.
//
// Bit layout (value bits, change-flag bit):
//
//	fan_speed   bits 1..4,  flag bit 0
//	power       bit  6,     flag bit 5
//	work_mode   bits 9..11, flag bit 8
//	heat_cold   bit  13,    flag bit 12
//	eco         bit  15,    flag bit 14
//	temp        bits 17..22,flag bit 16
//	fan_power   bit  25,    flag bit 24
//	fan_lr      bit  27,    flag bit 26
//	fan_mute    bit  29,    flag bit 28
//	temptype    bit  31,    flag bit 30
package controlvalue

import "github.com/deiger/aircon/hvac_common/schema"

// Register is the raw 32-bit control-value bit field.
type Register uint32

type fieldSpan struct {
	shift uint32 // shift of the change-flag bit; value bits start at shift+1
	bits  uint32 // width of the value portion, in bits
}

func (f fieldSpan) mask() uint32 {
	// (bits+1) low bits (flag + value), shifted into place.
	return ((uint32(1) << (f.bits + 1)) - 1) << f.shift
}

var (
	spanFanSpeed = fieldSpan{shift: 0, bits: 4}
	spanPower    = fieldSpan{shift: 5, bits: 1}
	spanWorkMode = fieldSpan{shift: 8, bits: 3}
	spanHeatCold = fieldSpan{shift: 12, bits: 1}
	spanEco      = fieldSpan{shift: 14, bits: 1}
	spanTemp     = fieldSpan{shift: 16, bits: 6}
	spanFanPower = fieldSpan{shift: 24, bits: 1}
	spanFanLR    = fieldSpan{shift: 26, bits: 1}
	spanFanMute  = fieldSpan{shift: 28, bits: 1}
	spanTempType = fieldSpan{shift: 30, bits: 1}

	allSpans = []fieldSpan{spanFanSpeed, spanPower, spanWorkMode, spanHeatCold,
		spanEco, spanTemp, spanFanPower, spanFanLR, spanFanMute, spanTempType}
)

func getValue(r Register, f fieldSpan) uint32 {
	valueMask := (uint32(1) << f.bits) - 1
	return (uint32(r) >> (f.shift + 1)) & valueMask
}

// set writes value into f's span, after clearing every other field's
// change-flag bit, then sets f's own change flag.
func set(r Register, f fieldSpan, value uint32) Register {
	r = ClearChangeFlags(r)
	cleared := uint32(r) &^ f.mask()
	packed := ((value << 1) | 1) << f.shift
	return Register(cleared | packed)
}

// ClearChangeFlags zeros every sub-field's change-flag bit, leaving every
// value bit untouched.
func ClearChangeFlags(r Register) Register {
	var flagMask uint32
	for _, f := range allSpans {
		flagMask |= 1 << f.shift
	}
	return Register(uint32(r) &^ flagMask)
}

// FanSpeed returns the encoded fan-speed value.
func (r Register) FanSpeed() schema.FanSpeed { return schema.FanSpeed(getValue(r, spanFanSpeed)) }

// SetFanSpeed returns a new Register with fan_speed set to v.
func (r Register) SetFanSpeed(v schema.FanSpeed) Register { return set(r, spanFanSpeed, uint32(v)) }

// Power returns the encoded power value.
func (r Register) Power() schema.OnOff { return schema.OnOff(getValue(r, spanPower)) }

// SetPower returns a new Register with power set to v.
func (r Register) SetPower(v schema.OnOff) Register { return set(r, spanPower, uint32(v)) }

// WorkMode returns the encoded work-mode value.
func (r Register) WorkMode() schema.AcWorkMode { return schema.AcWorkMode(getValue(r, spanWorkMode)) }

// SetWorkMode returns a new Register with work_mode set to v.
func (r Register) SetWorkMode(v schema.AcWorkMode) Register { return set(r, spanWorkMode, uint32(v)) }

// HeatCold returns the encoded fast heat/cool value.
func (r Register) HeatCold() schema.OnOff { return schema.OnOff(getValue(r, spanHeatCold)) }

// SetHeatCold returns a new Register with heat_cold set to v.
func (r Register) SetHeatCold(v schema.OnOff) Register { return set(r, spanHeatCold, uint32(v)) }

// Eco returns the encoded eco value.
func (r Register) Eco() schema.OnOff { return schema.OnOff(getValue(r, spanEco)) }

// SetEco returns a new Register with eco set to v.
func (r Register) SetEco(v schema.OnOff) Register { return set(r, spanEco, uint32(v)) }

// Temp returns the encoded target temperature.
func (r Register) Temp() int { return int(getValue(r, spanTemp)) }

// SetTemp returns a new Register with temp set to v.
func (r Register) SetTemp(v int) Register { return set(r, spanTemp, uint32(v)) }

// FanPower returns the encoded vertical-airflow value.
func (r Register) FanPower() schema.AirFlow { return schema.AirFlow(getValue(r, spanFanPower)) }

// SetFanPower returns a new Register with fan_power set to v.
func (r Register) SetFanPower(v schema.AirFlow) Register { return set(r, spanFanPower, uint32(v)) }

// FanLR returns the encoded horizontal-airflow value.
func (r Register) FanLR() schema.AirFlow { return schema.AirFlow(getValue(r, spanFanLR)) }

// SetFanLR returns a new Register with fan_lr set to v.
func (r Register) SetFanLR(v schema.AirFlow) Register { return set(r, spanFanLR, uint32(v)) }

// FanMute returns the encoded quiet-fan value.
func (r Register) FanMute() schema.Quiet { return schema.Quiet(getValue(r, spanFanMute)) }

// SetFanMute returns a new Register with fan_mute set to v.
func (r Register) SetFanMute(v schema.Quiet) Register { return set(r, spanFanMute, uint32(v)) }

// TempType returns the encoded temperature-unit value.
func (r Register) TempType() schema.TemperatureUnit {
	return schema.TemperatureUnit(getValue(r, spanTempType))
}

// SetTempType returns a new Register with temptype set to v.
func (r Register) SetTempType(v schema.TemperatureUnit) Register {
	return set(r, spanTempType, uint32(v))
}

// fieldName identifies one of the ten control-value sub-fields by its
// backing property name, for the decode-into-mirror path.
var fieldName = map[string]fieldSpan{
	"t_fan_speed":     spanFanSpeed,
	"t_power":         spanPower,
	"t_work_mode":     spanWorkMode,
	"t_temp_heatcold": spanHeatCold,
	"t_eco":           spanEco,
	"t_temp":          spanTemp,
	"t_fan_power":     spanFanPower,
	"t_fan_leftright": spanFanLR,
	"t_fan_mute":      spanFanMute,
	"t_temptype":      spanTempType,
}

// Decode splits r into its ten named sub-field values, keyed by the
// property name each sub-field mirrors. Used when an inbound update sets
// t_control_value directly: every sub-field is written into its named
// property.
func Decode(r Register) map[string]int {
	out := make(map[string]int, len(fieldName))
	for name, span := range fieldName {
		out[name] = int(getValue(r, span))
	}
	return out
}

// FieldNames returns the property names the control value mirrors, the
// ones C4 must route through this codec instead of enqueuing directly.
func FieldNames() []string {
	names := make([]string, 0, len(fieldName))
	for name := range fieldName {
		names = append(names, name)
	}
	return names
}
