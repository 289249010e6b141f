package airquality

import (
	"context"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/cda/service"
	"github.com/shimmeringbee/logwrap"
	"sync"
)

var _ service.Service = (*Implementation)(nil)

const (
	Excellent = 1
	Good      = 2
	Fair      = 3
	Inferior  = 4
	Poor      = 5
)

// NewAirQuality combines carbon dioxide and dust readings into a single air
// quality score. Either capability may be absent.
func NewAirQuality(env service.Env) *Implementation {
	i := &Implementation{}
	i.Base = service.NewBase(i, service.TypeAirQuality, env)

	i.AddCharacteristic(service.AirQuality, i.getAirQuality, nil)

	if i.HasCapability("carbonDioxideMeasurement") {
		i.AddCharacteristic(service.CarbonDioxideLevel, i.getCO2, nil)
		i.OnEvent("carbonDioxideMeasurement", "carbonDioxide", service.CarbonDioxideLevel, service.Numeric)
	}

	if i.HasCapability("dustSensor") {
		i.AddCharacteristic(service.PM2_5Density, i.getPM25, nil)
		i.AddCharacteristic(service.PM10Density, i.getPM10, nil)
		i.OnEvent("dustSensor", "fineDustLevel", service.PM2_5Density, service.Numeric)
		i.OnEvent("dustSensor", "dustLevel", service.PM10Density, service.Numeric)
	}

	i.Poll(service.AirQuality, env.SensorPollInterval, "")

	return i
}

type Implementation struct {
	*service.Base

	lock sync.Mutex
	co2  *float64
	pm25 *float64
}

// Score grades air quality from PM2.5 density and carbon dioxide ppm, either
// may be nil if not reported.
func Score(pm25 *float64, co2 *float64) int {
	score := Excellent

	if pm25 != nil {
		switch pm := *pm25; {
		case pm > 55:
			return Poor
		case pm > 30:
			score = Inferior
		case pm > 15:
			score = Fair
		case pm > 7:
			score = Good
		}
	}

	if co2 != nil {
		switch c := *co2; {
		case c > 5000:
			return Poor
		case c > 2500:
			score += Poor
		case c > 2000:
			score += Inferior
		case c > 1500:
			score += Fair
		case c > 1000:
			score += Good
		}
	}

	if score > Inferior {
		return Poor
	}

	return score
}

func (i *Implementation) getAirQuality(ctx context.Context) (any, error) {
	cs, err := i.Status(ctx)
	if err != nil {
		return nil, err
	}

	co2, pm25, err := i.readings(ctx, cs)
	if err != nil {
		return nil, err
	}

	i.remember(co2, pm25)

	if co2 != nil {
		i.Push(ctx, service.CarbonDioxideLevel, *co2)
	}

	if pm25 != nil {
		i.Push(ctx, service.PM2_5Density, *pm25)
	}

	return Score(pm25, co2), nil
}

func (i *Implementation) readings(ctx context.Context, cs model.ComponentStatus) (*float64, *float64, error) {
	var co2, pm25 *float64

	if i.HasCapability("carbonDioxideMeasurement") {
		v, found := cs.Value("carbonDioxideMeasurement", "carbonDioxide")
		f, ok := service.Float(v)
		if !found || !ok {
			i.Env.Logger.LogWarn(ctx, "Bad carbon dioxide value in status.", logwrap.Datum("Value", v))
			return nil, nil, service.ErrCommunicationFailure
		}
		co2 = &f
	}

	if i.HasCapability("dustSensor") {
		if v, found := cs.Value("dustSensor", "fineDustLevel"); found {
			if f, ok := service.Float(v); ok {
				pm25 = &f
			}
		}
	}

	return co2, pm25, nil
}

func (i *Implementation) remember(co2 *float64, pm25 *float64) {
	i.lock.Lock()
	defer i.lock.Unlock()

	if co2 != nil {
		i.co2 = co2
	}

	if pm25 != nil {
		i.pm25 = pm25
	}
}

func (i *Implementation) getCO2(ctx context.Context) (any, error) {
	return i.Float(ctx, "carbonDioxideMeasurement", "carbonDioxide")
}

func (i *Implementation) getPM25(ctx context.Context) (any, error) {
	return i.Float(ctx, "dustSensor", "fineDustLevel")
}

func (i *Implementation) getPM10(ctx context.Context) (any, error) {
	return i.Float(ctx, "dustSensor", "dustLevel")
}

// ProcessEvent updates the reading and rescores from the last known values.
func (i *Implementation) ProcessEvent(ctx context.Context, e model.ShortEvent) {
	i.Base.ProcessEvent(ctx, e)

	f, ok := service.Float(e.Value)
	if !ok {
		return
	}

	switch {
	case e.Capability == "carbonDioxideMeasurement" && e.Attribute == "carbonDioxide":
		i.remember(&f, nil)
	case e.Capability == "dustSensor" && e.Attribute == "fineDustLevel":
		i.remember(nil, &f)
	default:
		return
	}

	i.lock.Lock()
	score := Score(i.pm25, i.co2)
	i.lock.Unlock()

	i.Push(ctx, service.AirQuality, score)
}
