package windowcovering

import (
	"context"
	"github.com/shimmeringbee/cda/service"
	"math"
)

var _ service.Service = (*Implementation)(nil)

const (
	Decreasing = 0
	Increasing = 1
	Stopped    = 2
)

var shadeToPosition = map[string]float64{
	"open":           100,
	"closed":         0,
	"partially open": 50,
	"opening":        50,
	"closing":        50,
}

var shadeToState = map[string]int{
	"opening": Increasing,
	"closing": Decreasing,
}

// NewWindowCovering positions shades by level when a level capability is
// claimed, otherwise by open and close commands.
func NewWindowCovering(env service.Env) *Implementation {
	i := &Implementation{}
	i.Base = service.NewBase(i, service.TypeWindowCovering, env)

	switch {
	case i.HasCapability("windowShadeLevel"):
		i.levelCapability, i.levelAttribute, i.levelCommand = "windowShadeLevel", "shadeLevel", "setShadeLevel"
	case i.HasCapability("switchLevel"):
		i.levelCapability, i.levelAttribute, i.levelCommand = "switchLevel", "level", "setLevel"
	}

	i.AddCharacteristic(service.CurrentPosition, i.getPosition, nil)
	i.AddCharacteristic(service.TargetPosition, i.getPosition, i.setTargetPosition)

	if i.levelCapability != "" {
		i.OnEvent(i.levelCapability, i.levelAttribute, service.CurrentPosition, service.Numeric)
		i.OnEvent(i.levelCapability, i.levelAttribute, service.TargetPosition, service.Numeric)
	} else {
		i.OnEvent("windowShade", "windowShade", service.CurrentPosition, service.Map(shadeToPosition))
	}

	if i.HasCapability("windowShade") {
		i.AddCharacteristic(service.PositionState, i.getPositionState, nil)
		i.OnEvent("windowShade", "windowShade", service.PositionState, positionState)
	}

	i.Poll(service.CurrentPosition, env.PollInterval, service.TargetPosition)

	return i
}

type Implementation struct {
	*service.Base

	levelCapability string
	levelAttribute  string
	levelCommand    string
}

func positionState(v any) (any, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}

	if state, found := shadeToState[s]; found {
		return state, true
	}

	return Stopped, true
}

func (i *Implementation) getPosition(ctx context.Context) (any, error) {
	if i.levelCapability != "" {
		return i.Float(ctx, i.levelCapability, i.levelAttribute)
	}

	s, err := i.String(ctx, "windowShade", "windowShade")
	if err != nil {
		return nil, err
	}

	return shadeToPosition[s], nil
}

func (i *Implementation) setTargetPosition(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	f = math.Round(service.Clamp(f, 0, 100))

	if i.levelCapability != "" {
		return i.Command(ctx, i.levelCapability, i.levelCommand, f)
	}

	if f >= 50 {
		return i.Command(ctx, "windowShade", "open")
	}

	return i.Command(ctx, "windowShade", "close")
}

func (i *Implementation) getPositionState(ctx context.Context) (any, error) {
	s, err := i.String(ctx, "windowShade", "windowShade")
	if err != nil {
		return nil, err
	}

	state, _ := positionState(s)
	return state, nil
}
