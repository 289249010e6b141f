package onoff

import (
	"context"
	"github.com/shimmeringbee/cda/service"
)

var _ service.Service = (*Implementation)(nil)

var switchStates = map[string]bool{"on": true, "off": false}

func NewSwitch(env service.Env) *Implementation {
	i := &Implementation{}
	i.Base = service.NewBase(i, service.TypeSwitch, env)

	i.AddCharacteristic(service.On, i.getOn, i.setOn)
	i.OnEvent("switch", "switch", service.On, service.Map(switchStates))
	i.Poll(service.On, env.PollInterval, "")

	return i
}

type Implementation struct {
	*service.Base
}

func (i *Implementation) getOn(ctx context.Context) (any, error) {
	s, err := i.String(ctx, "switch", "switch")
	if err != nil {
		return nil, err
	}

	return s == "on", nil
}

func (i *Implementation) setOn(ctx context.Context, v any) error {
	on, ok := service.Bool(v)
	if !ok {
		return service.ErrInvalidValue
	}

	if on {
		return i.Command(ctx, "switch", "on")
	}

	return i.Command(ctx, "switch", "off")
}
