package schema

import (
	"fmt"
	"strings"
)

// OnOff models the common OFF=0/ON=1 two-value enums used across most
// writable boolean-base-type properties: power, eco, quiet fan, fast
// heat/cold, eight-heat, double frequency, airflow swing/vertical/
// horizontal, and humidifier mist state.
type OnOff int

const (
	Off OnOff = 0
	On  OnOff = 1
)

func (v OnOff) String() string {
	if v == On {
		return "ON"
	}
	return "OFF"
}

// ParseOnOff parses an upper-cased "ON"/"OFF" name.
func ParseOnOff(s string) (OnOff, error) {
	switch s {
	case "ON":
		return On, nil
	case "OFF":
		return Off, nil
	}
	return Off, fmt.Errorf("schema: invalid on/off value %q", s)
}

// Power, Economy, Quiet, FastColdHeat, EightHeat, DoubleFrequency,
// AirFlow and MistState are all semantically OnOff; distinct names keep
// call sites self-documenting without duplicating the enum machinery.
type (
	Power           = OnOff
	Economy         = OnOff
	Quiet           = OnOff
	FastColdHeat    = OnOff
	EightHeat       = OnOff
	DoubleFrequency = OnOff
	AirFlow         = OnOff
	MistState       = OnOff
)

// Dimmer is the one two-value enum with the mapping reversed: ON=0, OFF=1.
type Dimmer int

const (
	DimmerOn  Dimmer = 0
	DimmerOff Dimmer = 1
)

func (v Dimmer) String() string {
	if v == DimmerOn {
		return "ON"
	}
	return "OFF"
}

func ParseDimmer(s string) (Dimmer, error) {
	switch s {
	case "ON":
		return DimmerOn, nil
	case "OFF":
		return DimmerOff, nil
	}
	return DimmerOff, fmt.Errorf("schema: invalid dimmer value %q", s)
}

// FanSpeed is the AC's five-position fan speed, with AUTO distinct from
// the bottom of the manual range.
type FanSpeed int

const (
	FanSpeedAuto   FanSpeed = 0
	FanSpeedLower  FanSpeed = 5
	FanSpeedLow    FanSpeed = 6
	FanSpeedMedium FanSpeed = 7
	FanSpeedHigh   FanSpeed = 8
	FanSpeedHigher FanSpeed = 9
)

var fanSpeedNames = map[FanSpeed]string{
	FanSpeedAuto: "AUTO", FanSpeedLower: "LOWER", FanSpeedLow: "LOW",
	FanSpeedMedium: "MEDIUM", FanSpeedHigh: "HIGH", FanSpeedHigher: "HIGHER",
}

func (v FanSpeed) String() string { return lookupOrDefault(fanSpeedNames, v) }

func ParseFanSpeed(s string) (FanSpeed, error) {
	return reverseLookup(fanSpeedNames, s)
}

// SleepMode is the AC's sleep-curve selector.
type SleepMode int

const (
	SleepStop  SleepMode = 0
	SleepOne   SleepMode = 1
	SleepTwo   SleepMode = 2
	SleepThree SleepMode = 3
	SleepFour  SleepMode = 4
)

var sleepModeNames = map[SleepMode]string{
	SleepStop: "STOP", SleepOne: "ONE", SleepTwo: "TWO", SleepThree: "THREE", SleepFour: "FOUR",
}

func (v SleepMode) String() string { return lookupOrDefault(sleepModeNames, v) }

func ParseSleepMode(s string) (SleepMode, error) {
	return reverseLookup(sleepModeNames, s)
}

// AcWorkMode is the AC's operating mode. FAN is rewritten to "fan_only"
// on the MQTT wire.
type AcWorkMode int

const (
	AcWorkModeFan  AcWorkMode = 0
	AcWorkModeHeat AcWorkMode = 1
	AcWorkModeCool AcWorkMode = 2
	AcWorkModeDry  AcWorkMode = 3
	AcWorkModeAuto AcWorkMode = 4
)

var acWorkModeNames = map[AcWorkMode]string{
	AcWorkModeFan: "FAN", AcWorkModeHeat: "HEAT", AcWorkModeCool: "COOL",
	AcWorkModeDry: "DRY", AcWorkModeAuto: "AUTO",
}

func (v AcWorkMode) String() string { return lookupOrDefault(acWorkModeNames, v) }

func ParseAcWorkMode(s string) (AcWorkMode, error) {
	return reverseLookup(acWorkModeNames, s)
}

// TemperatureUnit selects Celsius/Fahrenheit reporting.
type TemperatureUnit int

const (
	Celsius    TemperatureUnit = 0
	Fahrenheit TemperatureUnit = 1
)

func (v TemperatureUnit) String() string {
	if v == Fahrenheit {
		return "FAHRENHEIT"
	}
	return "CELSIUS"
}

func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch s {
	case "FAHRENHEIT":
		return Fahrenheit, nil
	case "CELSIUS":
		return Celsius, nil
	}
	return Celsius, fmt.Errorf("schema: invalid temperature unit %q", s)
}

// ParseConfigTempType parses the persisted device config blob's
// temp_type field (spec.md §6: "C"/"F"), as distinct from
// ParseTemperatureUnit's full-name wire/MQTT enum spelling.
func ParseConfigTempType(s string) (TemperatureUnit, error) {
	switch strings.ToUpper(s) {
	case "F":
		return Fahrenheit, nil
	case "C":
		return Celsius, nil
	}
	return Celsius, fmt.Errorf("schema: invalid temp_type %q", s)
}

// HumidifierWorkMode is the humidifier's operating mode.
type HumidifierWorkMode int

const (
	HumidifierNormal     HumidifierWorkMode = 0
	HumidifierNightlight HumidifierWorkMode = 1
	HumidifierSleep      HumidifierWorkMode = 2
)

var humidifierWorkModeNames = map[HumidifierWorkMode]string{
	HumidifierNormal: "NORMAL", HumidifierNightlight: "NIGHTLIGHT", HumidifierSleep: "SLEEP",
}

func (v HumidifierWorkMode) String() string { return lookupOrDefault(humidifierWorkModeNames, v) }

func ParseHumidifierWorkMode(s string) (HumidifierWorkMode, error) {
	return reverseLookup(humidifierWorkModeNames, s)
}

// HumidifierWater reports the water-tank state.
type HumidifierWater int

const (
	WaterOK      HumidifierWater = 0
	WaterNoWater HumidifierWater = 1
)

func (v HumidifierWater) String() string {
	if v == WaterNoWater {
		return "NO_WATER"
	}
	return "OK"
}

func ParseHumidifierWater(s string) (HumidifierWater, error) {
	switch s {
	case "NO_WATER":
		return WaterNoWater, nil
	case "OK":
		return WaterOK, nil
	}
	return WaterOK, fmt.Errorf("schema: invalid water value %q", s)
}

// Mist is the humidifier's output-strength selector. Note there is no
// zero value; SMALL starts at 1.
type Mist int

const (
	MistSmall  Mist = 1
	MistMiddle Mist = 2
	MistBig    Mist = 3
)

var mistNames = map[Mist]string{MistSmall: "SMALL", MistMiddle: "MIDDLE", MistBig: "BIG"}

func (v Mist) String() string { return lookupOrDefault(mistNames, v) }

func ParseMist(s string) (Mist, error) {
	return reverseLookup(mistNames, s)
}

// FglOperationMode is the Fujitsu-firmware operation mode. FAN is
// rewritten to "fan_only" on the MQTT wire, same as AcWorkMode.
type FglOperationMode int

const (
	FglOff  FglOperationMode = 0
	FglOn   FglOperationMode = 1
	FglAuto FglOperationMode = 2
	FglCool FglOperationMode = 3
	FglDry  FglOperationMode = 4
	FglFan  FglOperationMode = 5
	FglHeat FglOperationMode = 6
)

var fglOperationModeNames = map[FglOperationMode]string{
	FglOff: "OFF", FglOn: "ON", FglAuto: "AUTO", FglCool: "COOL",
	FglDry: "DRY", FglFan: "FAN", FglHeat: "HEAT",
}

func (v FglOperationMode) String() string { return lookupOrDefault(fglOperationModeNames, v) }

func ParseFglOperationMode(s string) (FglOperationMode, error) {
	return reverseLookup(fglOperationModeNames, s)
}

// FglFanSpeed is the Fujitsu-firmware fan speed.
type FglFanSpeed int

const (
	FglFanQuiet  FglFanSpeed = 0
	FglFanLow    FglFanSpeed = 1
	FglFanMedium FglFanSpeed = 2
	FglFanHigh   FglFanSpeed = 3
	FglFanAuto   FglFanSpeed = 4
)

var fglFanSpeedNames = map[FglFanSpeed]string{
	FglFanQuiet: "QUIET", FglFanLow: "LOW", FglFanMedium: "MEDIUM",
	FglFanHigh: "HIGH", FglFanAuto: "AUTO",
}

func (v FglFanSpeed) String() string { return lookupOrDefault(fglFanSpeedNames, v) }

func ParseFglFanSpeed(s string) (FglFanSpeed, error) {
	return reverseLookup(fglFanSpeedNames, s)
}

func lookupOrDefault[T comparable](names map[T]string, v T) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("%v", v)
}

func reverseLookup[T comparable](names map[T]string, s string) (T, error) {
	for val, name := range names {
		if name == s {
			return val, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("schema: invalid value %q", s)
}
