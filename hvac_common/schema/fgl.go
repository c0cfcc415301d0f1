package schema

// Fgl is the property table for the first-generation Fujitsu-derived
// firmware. It has no t_control_value, so every write is a direct
// named-property command (no control-value routing applies).
var Fgl = NewTable([]Field{
	EnumField("operation_mode", BaseTypeInteger, false, FglAuto,
		func(v FglOperationMode) string { return v.String() }, ParseFglOperationMode, "FAN"),
	EnumField("fan_speed", BaseTypeInteger, false, FglFanAuto,
		func(v FglFanSpeed) string { return v.String() }, ParseFglFanSpeed, ""),
	IntField("adjust_temperature", BaseTypeInteger, false, 25),
	IntField("af_vertical_direction", BaseTypeInteger, false, 3),
	OnOffField("af_vertical_swing", false, Off),
	IntField("af_horizontal_direction", BaseTypeInteger, false, 3),
	OnOffField("af_horizontal_swing", false, Off),
	OnOffField("economy_mode", false, Off),
})
