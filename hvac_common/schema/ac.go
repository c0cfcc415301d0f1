package schema

// AC is the property table for Hisense-style air conditioners. Field
// names, defaults, base types and read-only flags are taken directly
// from the upstream AcProperties dataclass; t_control_value and the
// other None-default fields are modeled as OptionalIntField/
// OptionalBoolField so an unset value is nil, not a false zero.
var AC = NewTable([]Field{
	IntField("f_electricity", BaseTypeInteger, true, 100),
	BoolField("f_e_arkgrille", true, false),
	BoolField("f_e_incoiltemp", true, false),
	BoolField("f_e_incom", true, false),
	BoolField("f_e_indisplay", true, false),
	BoolField("f_e_ineeprom", true, false),
	BoolField("f_e_inele", true, false),
	BoolField("f_e_infanmotor", true, false),
	BoolField("f_e_inhumidity", true, false),
	BoolField("f_e_inkeys", true, false),
	BoolField("f_e_inlow", true, false),
	BoolField("f_e_intemp", true, false),
	BoolField("f_e_invzero", true, false),
	BoolField("f_e_outcoiltemp", true, false),
	BoolField("f_e_outeeprom", true, false),
	BoolField("f_e_outgastemp", true, false),
	BoolField("f_e_outmachine2", true, false),
	BoolField("f_e_outmachine", true, false),
	BoolField("f_e_outtemp", true, false),
	BoolField("f_e_outtemplow", true, false),
	BoolField("f_e_push", true, false),
	BoolField("f_filterclean", true, false),
	IntField("f_humidity", BaseTypeInteger, true, 50),
	BoolField("f_power_display", true, false),
	DecimalField("f_temp_in", true, 81.0),
	IntField("f_voltage", BaseTypeInteger, true, 0),

	DimmerField("t_backlight", false, DimmerOff),
	OptionalIntField("t_control_value", BaseTypeInteger, false),
	OptionalBoolField("t_device_info", false),
	OptionalBoolField("t_display_power", false),
	OnOffField("t_eco", false, Off),
	OnOffField("t_fan_leftright", false, Off),
	OnOffField("t_fan_mute", false, Off),
	OnOffField("t_fan_power", false, Off),
	EnumField("t_fan_speed", BaseTypeInteger, false, FanSpeedAuto,
		func(v FanSpeed) string { return v.String() }, ParseFanSpeed, ""),
	OptionalIntField("t_ftkt_start", BaseTypeInteger, false),
	OnOffField("t_power", false, On),
	OnOffField("t_run_mode", false, Off),
	OptionalIntField("t_setmulti_value", BaseTypeInteger, false),
	EnumField("t_sleep", BaseTypeInteger, false, SleepStop,
		func(v SleepMode) string { return v.String() }, ParseSleepMode, ""),
	IntField("t_temp", BaseTypeInteger, false, 81),
	EnumField("t_temptype", BaseTypeBoolean, false, Fahrenheit,
		func(v TemperatureUnit) string { return v.String() }, ParseTemperatureUnit, ""),
	OnOffField("t_temp_eight", false, Off),
	OnOffField("t_temp_heatcold", false, Off),
	EnumField("t_work_mode", BaseTypeInteger, false, AcWorkModeAuto,
		func(v AcWorkMode) string { return v.String() }, ParseAcWorkMode, "FAN"),
})

// OnOffField is a convenience wrapper producing the shared OnOff
// EnumField shape, since most AC boolean properties share it.
func OnOffField(name string, readOnly bool, def OnOff) Field {
	return EnumField(name, BaseTypeBoolean, readOnly, def,
		func(v OnOff) string { return v.String() }, ParseOnOff, "")
}

// DimmerField builds the one property (t_backlight) whose boolean enum
// mapping is reversed (ON=0, OFF=1).
func DimmerField(name string, readOnly bool, def Dimmer) Field {
	return EnumField(name, BaseTypeBoolean, readOnly, def,
		func(v Dimmer) string { return v.String() }, ParseDimmer, "")
}
