package sensor

import (
	"context"
	"github.com/shimmeringbee/cda/service"
)

var _ service.Service = (*Implementation)(nil)

// Reading is a read only characteristic sourced from one attribute.
type Reading struct {
	Characteristic string
	Capability     string
	Attribute      string
	Convert        func(any) (any, bool)
}

type Definition struct {
	Readings []Reading
	// Poll is false for sensors that only make sense as events, such as buttons.
	Poll bool
}

func detected(match string) func(any) (any, bool) {
	return func(v any) (any, bool) {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}

		if s == match {
			return 1, true
		}

		return 0, true
	}
}

func minimumLux(v any) (any, bool) {
	f, ok := service.Float(v)
	if !ok {
		return nil, false
	}

	return service.Clamp(f, 0.0001, 100000), true
}

func lowBattery(v any) (any, bool) {
	f, ok := service.Float(v)
	if !ok {
		return nil, false
	}

	if f < 20 {
		return 1, true
	}

	return 0, true
}

var Definitions = map[string]Definition{
	service.TypeMotion: {Poll: true, Readings: []Reading{
		{Characteristic: service.MotionDetected, Capability: "motionSensor", Attribute: "motion", Convert: service.Map(map[string]bool{"active": true, "inactive": false})},
	}},
	service.TypeLeakDetector: {Poll: true, Readings: []Reading{
		{Characteristic: service.LeakDetected, Capability: "waterSensor", Attribute: "water", Convert: detected("wet")},
	}},
	service.TypeSmokeDetector: {Poll: true, Readings: []Reading{
		{Characteristic: service.SmokeDetected, Capability: "smokeDetector", Attribute: "smoke", Convert: detected("detected")},
	}},
	service.TypeCarbonMonoxideDetector: {Poll: true, Readings: []Reading{
		{Characteristic: service.CarbonMonoxideDetected, Capability: "carbonMonoxideDetector", Attribute: "carbonMonoxide", Convert: detected("detected")},
	}},
	service.TypeOccupancy: {Poll: true, Readings: []Reading{
		{Characteristic: service.OccupancyDetected, Capability: "presenceSensor", Attribute: "presence", Convert: detected("present")},
	}},
	service.TypeTemperature: {Poll: true, Readings: []Reading{
		{Characteristic: service.CurrentTemperature, Capability: "temperatureMeasurement", Attribute: "temperature", Convert: service.Numeric},
	}},
	service.TypeHumidity: {Poll: true, Readings: []Reading{
		{Characteristic: service.CurrentRelativeHumidity, Capability: "relativeHumidityMeasurement", Attribute: "humidity", Convert: service.Numeric},
	}},
	service.TypeLightSensor: {Poll: true, Readings: []Reading{
		{Characteristic: service.CurrentAmbientLightLevel, Capability: "illuminanceMeasurement", Attribute: "illuminance", Convert: minimumLux},
	}},
	service.TypeContactSensor: {Poll: true, Readings: []Reading{
		{Characteristic: service.ContactSensorState, Capability: "contactSensor", Attribute: "contact", Convert: detected("open")},
	}},
	service.TypeStatelessProgrammableSwitch: {Poll: false, Readings: []Reading{
		{Characteristic: service.ProgrammableSwitchEvent, Capability: "button", Attribute: "button", Convert: service.Map(map[string]int{"pushed": 0, "double": 1, "held": 2})},
	}},
	service.TypeBattery: {Poll: true, Readings: []Reading{
		{Characteristic: service.BatteryLevel, Capability: "battery", Attribute: "battery", Convert: service.Numeric},
		{Characteristic: service.StatusLowBattery, Capability: "battery", Attribute: "battery", Convert: lowBattery},
	}},
}

// NewSensor builds a read only service from its definition, returning nil for
// an unknown type.
func NewSensor(serviceType string, env service.Env) *Implementation {
	d, found := Definitions[serviceType]
	if !found {
		return nil
	}

	i := &Implementation{}
	i.Base = service.NewBase(i, serviceType, env)

	for _, r := range d.Readings {
		i.AddCharacteristic(r.Characteristic, i.getter(r), nil)
		i.OnEvent(r.Capability, r.Attribute, r.Characteristic, r.Convert)
	}

	if d.Poll && len(d.Readings) > 0 {
		paired := ""
		if len(d.Readings) > 1 {
			paired = d.Readings[1].Characteristic
		}

		i.Poll(d.Readings[0].Characteristic, env.SensorPollInterval, paired)
	}

	return i
}

type Implementation struct {
	*service.Base
}

func (i *Implementation) getter(r Reading) service.Getter {
	return func(ctx context.Context) (any, error) {
		v, err := i.Value(ctx, r.Capability, r.Attribute)
		if err != nil {
			return nil, err
		}

		if r.Convert == nil {
			return v, nil
		}

		cv, ok := r.Convert(v)
		if !ok {
			return nil, service.ErrCommunicationFailure
		}

		return cv, nil
	}
}
