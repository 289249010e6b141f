package rules

var defaultCombinators = []CombinatorRule{
	{
		Required:    []string{"switch", "airConditionerMode", "airConditionerFanMode", "thermostatCoolingSetpoint", "temperatureMeasurement"},
		Optional:    []string{"fanOscillationMode", "relativeHumidityMeasurement", "custom.airConditionerOptionalMode"},
		ServiceType: "AirConditioner",
	},
	{Required: []string{"switch", "fanSpeed", "switchLevel"}, ServiceType: "FanSwitchLevel"},
	{Required: []string{"switch", "fanSpeed"}, ServiceType: "FanSpeed"},
	{Required: []string{"switch", "switchLevel"}, ServiceType: "Light"},
	{Required: []string{"switch", "colorControl"}, ServiceType: "Light"},
	{Required: []string{"switch", "colorTemperature"}, ServiceType: "Light"},
	{Required: []string{"switch", "valve"}, ServiceType: "Valve"},
	{Required: []string{"carbonDioxideMeasurement", "dustSensor"}, ServiceType: "AirQuality"},
	{
		Required:    []string{"temperatureMeasurement", "thermostatMode", "thermostatHeatingSetpoint", "thermostatCoolingSetpoint"},
		Optional:    []string{"fanSpeed"},
		ServiceType: "Thermostat",
	},
	{Required: []string{"temperatureMeasurement", "thermostatHeatingSetpoint"}, Optional: []string{"fanSpeed"}, ServiceType: "Thermostat"},
	{Required: []string{"windowShade", "windowShadeLevel"}, ServiceType: "WindowCovering"},
	{Required: []string{"windowShade", "switchLevel"}, ServiceType: "WindowCovering"},
}

var defaultSingles = []SingleRule{
	{Capability: "doorControl", ServiceType: "Door"},
	{Capability: "lock", ServiceType: "Lock"},
	{Capability: "switch", ServiceType: "Switch"},
	{Capability: "windowShadeLevel", ServiceType: "WindowCovering"},
	{Capability: "windowShade", ServiceType: "WindowCovering"},
	{Capability: "motionSensor", ServiceType: "Motion"},
	{Capability: "waterSensor", ServiceType: "LeakDetector"},
	{Capability: "smokeDetector", ServiceType: "SmokeDetector"},
	{Capability: "carbonMonoxideDetector", ServiceType: "CarbonMonoxideDetector"},
	{Capability: "presenceSensor", ServiceType: "Occupancy"},
	{Capability: "temperatureMeasurement", ServiceType: "Temperature"},
	{Capability: "relativeHumidityMeasurement", ServiceType: "Humidity"},
	{Capability: "illuminanceMeasurement", ServiceType: "LightSensor"},
	{Capability: "contactSensor", ServiceType: "ContactSensor"},
	{Capability: "button", ServiceType: "StatelessProgrammableSwitch"},
	{Capability: "battery", ServiceType: "Battery"},
	{Capability: "valve", ServiceType: "Valve"},
	{Capability: "carbonDioxideMeasurement", ServiceType: "AirQuality"},
	{Capability: "dustSensor", ServiceType: "AirQuality"},
}

// Default returns the stock resolution table.
func Default() Table {
	return NewTable(defaultCombinators, defaultSingles)
}
