package schema

// FglB is the property table for the second-generation Fujitsu-derived
// firmware: same operating modes as Fgl, but the vertical/horizontal
// airflow properties are single "move step" integers instead of a
// direction+swing pair.
var FglB = NewTable([]Field{
	EnumField("operation_mode", BaseTypeInteger, false, FglAuto,
		func(v FglOperationMode) string { return v.String() }, ParseFglOperationMode, "FAN"),
	EnumField("fan_speed", BaseTypeInteger, false, FglFanAuto,
		func(v FglFanSpeed) string { return v.String() }, ParseFglFanSpeed, ""),
	IntField("adjust_temperature", BaseTypeInteger, false, 25),
	IntField("af_vertical_move_step1", BaseTypeInteger, false, 3),
	IntField("af_horizontal_move_step1", BaseTypeInteger, false, 3),
	OnOffField("economy_mode", false, Off),
})
