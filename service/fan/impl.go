package fan

import (
	"context"
	"github.com/shimmeringbee/cda/service"
	"math"
)

var _ service.Service = (*Implementation)(nil)

var switchStates = map[string]bool{"on": true, "off": false}

// NewFanSpeed drives rotation speed from the four step fanSpeed capability.
func NewFanSpeed(env service.Env) *Implementation {
	return newFan(service.TypeFanSpeed, env, false)
}

// NewFanSwitchLevel drives rotation speed from switchLevel as a percentage.
func NewFanSwitchLevel(env service.Env) *Implementation {
	return newFan(service.TypeFanSwitchLevel, env, true)
}

func newFan(serviceType string, env service.Env, useLevel bool) *Implementation {
	i := &Implementation{useLevel: useLevel}
	i.Base = service.NewBase(i, serviceType, env)

	i.AddCharacteristic(service.Active, i.getActive, i.setActive)
	i.AddCharacteristic(service.RotationSpeed, i.getSpeed, i.setSpeed)

	i.OnEvent("switch", "switch", service.Active, service.Map(switchStates))

	if useLevel {
		i.OnEvent("switchLevel", "level", service.RotationSpeed, service.Numeric)
	} else {
		i.OnEvent("fanSpeed", "fanSpeed", service.RotationSpeed, func(v any) (any, bool) {
			f, ok := service.Float(v)
			if !ok {
				return nil, false
			}
			return StepToPercent(f), true
		})
	}

	i.Poll(service.Active, env.PollInterval, service.RotationSpeed)

	return i
}

type Implementation struct {
	*service.Base
	useLevel bool
}

// StepToPercent maps fan speed steps 0 to 3 onto a percentage.
func StepToPercent(step float64) float64 {
	switch {
	case step <= 0:
		return 0
	case step == 1:
		return 33
	case step == 2:
		return 66
	default:
		return 100
	}
}

// PercentToStep is the inverse of StepToPercent.
func PercentToStep(pct float64) int {
	switch {
	case pct <= 0:
		return 0
	case pct <= 33:
		return 1
	case pct <= 66:
		return 2
	default:
		return 3
	}
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

func (i *Implementation) getSpeed(ctx context.Context) (any, error) {
	if i.useLevel {
		return i.Float(ctx, "switchLevel", "level")
	}

	f, err := i.Float(ctx, "fanSpeed", "fanSpeed")
	if err != nil {
		return nil, err
	}

	return StepToPercent(f), nil
}

func (i *Implementation) setSpeed(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	if i.useLevel {
		return i.Command(ctx, "switchLevel", "setLevel", math.Round(service.Clamp(f, 0, 100)))
	}

	return i.Command(ctx, "fanSpeed", "setFanSpeed", PercentToStep(f))
}
