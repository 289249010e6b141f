package airconditioner

import (
	"context"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/cda/service"
)

var _ service.Service = (*Implementation)(nil)

const (
	TargetAuto = 0
	TargetHeat = 1
	TargetCool = 2
)

const (
	CurrentInactive = 0
	CurrentIdle     = 1
	CurrentHeating  = 2
	CurrentCooling  = 3
)

const (
	MinimumSetpoint = 16.0
	MaximumSetpoint = 30.0
)

var switchStates = map[string]bool{"on": true, "off": false}

var modeToTarget = map[string]int{
	"auto":      TargetAuto,
	"aIComfort": TargetAuto,
	"heat":      TargetHeat,
	"cool":      TargetCool,
	"dry":       TargetCool,
	"coolClean": TargetCool,
	"dryClean":  TargetCool,
	"wind":      TargetAuto,
	"fanOnly":   TargetAuto,
}

var targetToMode = map[int]string{
	TargetAuto: "auto",
	TargetHeat: "heat",
	TargetCool: "cool",
}

var fanModeToSpeed = map[string]float64{
	"auto":   0,
	"low":    25,
	"medium": 50,
	"high":   75,
	"turbo":  100,
}

var oscillationToSwing = map[string]int{
	"fixed":      0,
	"all":        1,
	"vertical":   1,
	"horizontal": 1,
}

// NewAirConditioner exposes a heater cooler with fan, optional swing and
// humidity reading.
func NewAirConditioner(env service.Env) *Implementation {
	i := &Implementation{}
	i.Base = service.NewBase(i, service.TypeAirConditioner, env)

	i.AddCharacteristic(service.Active, i.getActive, i.setActive)
	i.AddCharacteristic(service.CurrentHeaterCoolerState, i.getCurrentState, nil)
	i.AddCharacteristic(service.TargetHeaterCoolerState, i.getTargetState, i.setTargetState)
	i.AddCharacteristic(service.CurrentTemperature, i.getCurrentTemperature, nil)
	i.AddCharacteristic(service.CoolingThresholdTemperature, i.getCoolingSetpoint, i.setCoolingSetpoint)
	i.AddCharacteristic(service.RotationSpeed, i.getFanSpeed, i.setFanSpeed)

	i.OnEvent("switch", "switch", service.Active, service.Map(switchStates))
	i.OnEvent("airConditionerMode", "airConditionerMode", service.TargetHeaterCoolerState, service.Map(modeToTarget))
	i.OnEvent("temperatureMeasurement", "temperature", service.CurrentTemperature, service.Numeric)
	i.OnEvent("thermostatCoolingSetpoint", "coolingSetpoint", service.CoolingThresholdTemperature, service.Numeric)
	i.OnEvent("airConditionerFanMode", "fanMode", service.RotationSpeed, service.Map(fanModeToSpeed))

	if i.HasCapability("fanOscillationMode") {
		i.AddCharacteristic(service.SwingMode, i.getSwing, i.setSwing)
		i.OnEvent("fanOscillationMode", "fanOscillationMode", service.SwingMode, service.Map(oscillationToSwing))
	}

	if i.HasCapability("relativeHumidityMeasurement") {
		i.AddCharacteristic(service.CurrentRelativeHumidity, i.getHumidity, nil)
		i.OnEvent("relativeHumidityMeasurement", "humidity", service.CurrentRelativeHumidity, service.Numeric)
	}

	if i.HasCapability("custom.airConditionerOptionalMode") {
		i.AddCharacteristic(service.OptionalMode, i.getOptionalMode, i.setOptionalMode)
		i.OnEvent("custom.airConditionerOptionalMode", "acOptionalMode", service.OptionalMode, nil)
	}

	i.Poll(service.Active, env.PollInterval, service.TargetHeaterCoolerState)
	i.Poll(service.CurrentTemperature, env.SensorPollInterval, service.CoolingThresholdTemperature)

	return i
}

type Implementation struct {
	*service.Base
}

func (i *Implementation) getActive(ctx context.Context) (any, error) {
	s, err := i.String(ctx, "switch", "switch")
	if err != nil {
		return nil, err
	}

	return s == "on", nil
}

func (i *Implementation) setActive(ctx context.Context, v any) error {
	on, ok := service.Bool(v)
	if !ok {
		return service.ErrInvalidValue
	}

	if on {
		return i.Command(ctx, "switch", "on")
	}

	return i.Command(ctx, "switch", "off")
}

func (i *Implementation) getTargetState(ctx context.Context) (any, error) {
	mode, err := i.String(ctx, "airConditionerMode", "airConditionerMode")
	if err != nil {
		return nil, err
	}

	return modeToTarget[mode], nil
}

// setTargetState also powers the unit on.
func (i *Implementation) setTargetState(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	mode, found := targetToMode[int(f)]
	if !found {
		return service.ErrInvalidValue
	}

	return i.Commands(ctx, switchOn(), modeCommand(mode))
}

func switchOn() model.Command {
	return model.Command{Capability: "switch", Command: "on"}
}

func modeCommand(mode string) model.Command {
	return model.Command{Capability: "airConditionerMode", Command: "setAirConditionerMode", Arguments: []any{mode}}
}

func (i *Implementation) getCurrentState(ctx context.Context) (any, error) {
	cs, err := i.Status(ctx)
	if err != nil {
		return nil, err
	}

	if v, _ := cs.Value("switch", "switch"); v != "on" {
		return CurrentInactive, nil
	}

	mode, _ := cs.Value("airConditionerMode", "airConditionerMode")
	m, _ := mode.(string)

	switch targetToMode[modeToTarget[m]] {
	case "heat":
		return CurrentHeating, nil
	case "cool":
		return CurrentCooling, nil
	default:
		return CurrentIdle, nil
	}
}

func (i *Implementation) getCurrentTemperature(ctx context.Context) (any, error) {
	return i.Float(ctx, "temperatureMeasurement", "temperature")
}

func (i *Implementation) getCoolingSetpoint(ctx context.Context) (any, error) {
	return i.Float(ctx, "thermostatCoolingSetpoint", "coolingSetpoint")
}

func (i *Implementation) setCoolingSetpoint(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	return i.Command(ctx, "thermostatCoolingSetpoint", "setCoolingSetpoint", service.Clamp(f, MinimumSetpoint, MaximumSetpoint))
}

func (i *Implementation) getFanSpeed(ctx context.Context) (any, error) {
	mode, err := i.String(ctx, "airConditionerFanMode", "fanMode")
	if err != nil {
		return nil, err
	}

	return fanModeToSpeed[mode], nil
}

func (i *Implementation) setFanSpeed(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	var mode string
	switch {
	case f <= 0:
		mode = "auto"
	case f <= 25:
		mode = "low"
	case f <= 50:
		mode = "medium"
	case f <= 75:
		mode = "high"
	default:
		mode = "turbo"
	}

	return i.Command(ctx, "airConditionerFanMode", "setFanMode", mode)
}

func (i *Implementation) getSwing(ctx context.Context) (any, error) {
	mode, err := i.String(ctx, "fanOscillationMode", "fanOscillationMode")
	if err != nil {
		return nil, err
	}

	return oscillationToSwing[mode], nil
}

func (i *Implementation) setSwing(ctx context.Context, v any) error {
	on, ok := service.Bool(v)
	if !ok {
		return service.ErrInvalidValue
	}

	if on {
		return i.Command(ctx, "fanOscillationMode", "setFanOscillationMode", "all")
	}

	return i.Command(ctx, "fanOscillationMode", "setFanOscillationMode", "fixed")
}

func (i *Implementation) getHumidity(ctx context.Context) (any, error) {
	return i.Float(ctx, "relativeHumidityMeasurement", "humidity")
}

func (i *Implementation) getOptionalMode(ctx context.Context) (any, error) {
	return i.String(ctx, "custom.airConditionerOptionalMode", "acOptionalMode")
}

func (i *Implementation) setOptionalMode(ctx context.Context, v any) error {
	s, ok := v.(string)
	if !ok {
		return service.ErrInvalidValue
	}

	return i.Command(ctx, "custom.airConditionerOptionalMode", "setAcOptionalMode", s)
}
