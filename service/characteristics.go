package service

const (
	On                          = "On"
	Active                      = "Active"
	InUse                       = "InUse"
	Brightness                  = "Brightness"
	Hue                         = "Hue"
	Saturation                  = "Saturation"
	ColorTemperature            = "ColorTemperature"
	RotationSpeed               = "RotationSpeed"
	SwingMode                   = "SwingMode"
	CurrentPosition             = "CurrentPosition"
	TargetPosition              = "TargetPosition"
	PositionState               = "PositionState"
	LockCurrentState            = "LockCurrentState"
	LockTargetState             = "LockTargetState"
	CurrentDoorState            = "CurrentDoorState"
	TargetDoorState             = "TargetDoorState"
	CurrentTemperature          = "CurrentTemperature"
	TargetTemperature           = "TargetTemperature"
	CurrentHeatingCoolingState  = "CurrentHeatingCoolingState"
	TargetHeatingCoolingState   = "TargetHeatingCoolingState"
	CurrentHeaterCoolerState    = "CurrentHeaterCoolerState"
	TargetHeaterCoolerState     = "TargetHeaterCoolerState"
	CoolingThresholdTemperature = "CoolingThresholdTemperature"
	CurrentRelativeHumidity     = "CurrentRelativeHumidity"
	OptionalMode                = "OptionalMode"
	AirQuality                  = "AirQuality"
	CarbonDioxideLevel          = "CarbonDioxideLevel"
	PM2_5Density                = "PM2_5Density"
	PM10Density                 = "PM10Density"
	MotionDetected              = "MotionDetected"
	LeakDetected                = "LeakDetected"
	SmokeDetected               = "SmokeDetected"
	CarbonMonoxideDetected      = "CarbonMonoxideDetected"
	OccupancyDetected           = "OccupancyDetected"
	CurrentAmbientLightLevel    = "CurrentAmbientLightLevel"
	ContactSensorState          = "ContactSensorState"
	BatteryLevel                = "BatteryLevel"
	StatusLowBattery            = "StatusLowBattery"
	ProgrammableSwitchEvent     = "ProgrammableSwitchEvent"
)
