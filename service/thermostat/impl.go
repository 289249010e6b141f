package thermostat

import (
	"context"
	"github.com/shimmeringbee/cda/service"
	"github.com/shimmeringbee/cda/service/fan"
)

var _ service.Service = (*Implementation)(nil)

const (
	Off  = 0
	Heat = 1
	Cool = 2
	Auto = 3
)

const (
	MinimumTarget = 17.0
	MaximumTarget = 32.0
)

var modeToState = map[string]int{
	"off":            Off,
	"heat":           Heat,
	"cool":           Cool,
	"auto":           Auto,
	"eco":            Auto,
	"energysaveheat": Auto,
}

var stateToMode = map[int]string{
	Off:  "off",
	Heat: "heat",
	Cool: "cool",
	Auto: "auto",
}

var operatingToState = map[string]int{
	"heating":          Heat,
	"pending heat":     Heat,
	"cooling":          Cool,
	"pending cool":     Cool,
	"idle":             Off,
	"fan only":         Off,
	"vent economizer":  Off,
	"heating and fan":  Heat,
	"cooling and fan":  Cool,
	"heating and cool": Heat,
}

func NewThermostat(env service.Env) *Implementation {
	i := &Implementation{}
	i.Base = service.NewBase(i, service.TypeThermostat, env)

	i.AddCharacteristic(service.CurrentTemperature, i.getCurrentTemperature, nil)
	i.AddCharacteristic(service.TargetTemperature, i.getTargetTemperature, i.setTargetTemperature)
	i.AddCharacteristic(service.CurrentHeatingCoolingState, i.getCurrentState, nil)
	i.AddCharacteristic(service.TargetHeatingCoolingState, i.getTargetState, i.setTargetState)

	i.OnEvent("temperatureMeasurement", "temperature", service.CurrentTemperature, service.Numeric)
	i.OnEvent("thermostatHeatingSetpoint", "heatingSetpoint", service.TargetTemperature, service.Numeric)
	i.OnEvent("thermostatMode", "thermostatMode", service.TargetHeatingCoolingState, service.Map(modeToState))
	i.OnEvent("thermostatOperatingState", "thermostatOperatingState", service.CurrentHeatingCoolingState, service.Map(operatingToState))

	if i.HasCapability("thermostatCoolingSetpoint") {
		i.AddCharacteristic(service.CoolingThresholdTemperature, i.getCoolingSetpoint, i.setCoolingSetpoint)
		i.OnEvent("thermostatCoolingSetpoint", "coolingSetpoint", service.CoolingThresholdTemperature, service.Numeric)
	}

	if i.HasCapability("fanSpeed") {
		i.AddCharacteristic(service.RotationSpeed, i.getFanSpeed, i.setFanSpeed)
	}

	i.Poll(service.CurrentHeatingCoolingState, env.SensorPollInterval, service.TargetHeatingCoolingState)
	i.Poll(service.CurrentTemperature, env.SensorPollInterval, service.TargetTemperature)

	return i
}

type Implementation struct {
	*service.Base
}

func (i *Implementation) getCurrentTemperature(ctx context.Context) (any, error) {
	return i.Float(ctx, "temperatureMeasurement", "temperature")
}

func (i *Implementation) getTargetTemperature(ctx context.Context) (any, error) {
	return i.Float(ctx, "thermostatHeatingSetpoint", "heatingSetpoint")
}

func (i *Implementation) setTargetTemperature(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	return i.Command(ctx, "thermostatHeatingSetpoint", "setHeatingSetpoint", service.Clamp(f, MinimumTarget, MaximumTarget))
}

func (i *Implementation) getCoolingSetpoint(ctx context.Context) (any, error) {
	return i.Float(ctx, "thermostatCoolingSetpoint", "coolingSetpoint")
}

func (i *Implementation) setCoolingSetpoint(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	return i.Command(ctx, "thermostatCoolingSetpoint", "setCoolingSetpoint", service.Clamp(f, MinimumTarget, MaximumTarget))
}

// getTargetState reports Auto when the device has no mode attribute.
func (i *Implementation) getTargetState(ctx context.Context) (any, error) {
	cs, err := i.Status(ctx)
	if err != nil {
		return nil, err
	}

	v, found := cs.Value("thermostatMode", "thermostatMode")
	if !found {
		return Auto, nil
	}

	mode, _ := v.(string)
	if state, found := modeToState[mode]; found {
		return state, nil
	}

	return Auto, nil
}

func (i *Implementation) setTargetState(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	mode, found := stateToMode[int(f)]
	if !found {
		return service.ErrInvalidValue
	}

	return i.Command(ctx, "thermostatMode", "setThermostatMode", mode)
}

// getCurrentState prefers the operating state, falling back to the mode with
// auto treated as heating.
func (i *Implementation) getCurrentState(ctx context.Context) (any, error) {
	cs, err := i.Status(ctx)
	if err != nil {
		return nil, err
	}

	if v, found := cs.Value("thermostatOperatingState", "thermostatOperatingState"); found {
		if s, ok := v.(string); ok {
			if state, found := operatingToState[s]; found {
				return state, nil
			}
		}
	}

	v, found := cs.Value("thermostatMode", "thermostatMode")
	if !found {
		return Heat, nil
	}

	mode, _ := v.(string)
	switch modeToState[mode] {
	case Cool:
		return Cool, nil
	case Off:
		return Off, nil
	default:
		return Heat, nil
	}
}

func (i *Implementation) getFanSpeed(ctx context.Context) (any, error) {
	f, err := i.Float(ctx, "fanSpeed", "fanSpeed")
	if err != nil {
		return nil, err
	}

	return fan.StepToPercent(f), nil
}

func (i *Implementation) setFanSpeed(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	return i.Command(ctx, "fanSpeed", "setFanSpeed", fan.PercentToStep(f))
}
