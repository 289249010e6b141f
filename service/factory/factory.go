package factory

import (
	"fmt"
	"github.com/shimmeringbee/cda/service"
	"github.com/shimmeringbee/cda/service/airconditioner"
	"github.com/shimmeringbee/cda/service/airquality"
	"github.com/shimmeringbee/cda/service/door"
	"github.com/shimmeringbee/cda/service/fan"
	"github.com/shimmeringbee/cda/service/light"
	"github.com/shimmeringbee/cda/service/lock"
	"github.com/shimmeringbee/cda/service/onoff"
	"github.com/shimmeringbee/cda/service/sensor"
	"github.com/shimmeringbee/cda/service/thermostat"
	"github.com/shimmeringbee/cda/service/valve"
	"github.com/shimmeringbee/cda/service/windowcovering"
)

var ErrUnknownServiceType = fmt.Errorf("unknown service type")

func Create(serviceType string, env service.Env) (service.Service, error) {
	switch serviceType {
	case service.TypeSwitch:
		return onoff.NewSwitch(env), nil
	case service.TypeLight:
		return light.NewLight(env), nil
	case service.TypeFanSpeed:
		return fan.NewFanSpeed(env), nil
	case service.TypeFanSwitchLevel:
		return fan.NewFanSwitchLevel(env), nil
	case service.TypeThermostat:
		return thermostat.NewThermostat(env), nil
	case service.TypeAirConditioner:
		return airconditioner.NewAirConditioner(env), nil
	case service.TypeAirQuality:
		return airquality.NewAirQuality(env), nil
	case service.TypeWindowCovering:
		return windowcovering.NewWindowCovering(env), nil
	case service.TypeValve:
		return valve.NewValve(env), nil
	case service.TypeLock:
		return lock.NewLock(env), nil
	case service.TypeDoor:
		return door.NewDoor(env), nil
	}

	if s := sensor.NewSensor(serviceType, env); s != nil {
		return s, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownServiceType, serviceType)
}
