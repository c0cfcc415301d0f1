package schema

// Humidifier is the property table for the humidifier firmware variant.
var Humidifier = NewTable([]Field{
	IntField("humi", BaseTypeInteger, false, 0),
	EnumField("mist", BaseTypeInteger, false, MistSmall,
		func(v Mist) string { return v.String() }, ParseMist, ""),
	EnumField("mistSt", BaseTypeInteger, true, Off,
		func(v MistState) string { return v.String() }, ParseOnOff, ""),
	IntField("realhumi", BaseTypeInteger, true, 0),
	IntField("remain", BaseTypeInteger, true, 0),
	OnOffField("switch", false, On),
	IntField("temp", BaseTypeInteger, true, 81),
	IntField("timer", BaseTypeInteger, false, -1),
	EnumField("water", BaseTypeBoolean, true, WaterOK,
		func(v HumidifierWater) string { return v.String() }, ParseHumidifierWater, ""),
	EnumField("workmode", BaseTypeInteger, false, HumidifierNormal,
		func(v HumidifierWorkMode) string { return v.String() }, ParseHumidifierWorkMode, ""),
})
