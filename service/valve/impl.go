package valve

import (
	"context"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/cda/service"
)

var _ service.Service = (*Implementation)(nil)

var valveStates = map[string]bool{"open": true, "closed": false}

func NewValve(env service.Env) *Implementation {
	i := &Implementation{}
	i.Base = service.NewBase(i, service.TypeValve, env)

	i.AddCharacteristic(service.Active, i.getOpen, i.setActive)
	i.AddCharacteristic(service.InUse, i.getOpen, nil)

	i.OnEvent("valve", "valve", service.Active, service.Map(valveStates))
	i.OnEvent("valve", "valve", service.InUse, service.Map(valveStates))

	i.Poll(service.Active, env.PollInterval, service.InUse)

	return i
}

type Implementation struct {
	*service.Base
}

func (i *Implementation) getOpen(ctx context.Context) (any, error) {
	s, err := i.String(ctx, "valve", "valve")
	if err != nil {
		return nil, err
	}

	return s == "open", nil
}

// setActive drives the switch as well when it was claimed alongside the valve.
func (i *Implementation) setActive(ctx context.Context, v any) error {
	open, ok := service.Bool(v)
	if !ok {
		return service.ErrInvalidValue
	}

	valveCommand, switchCommand := "close", "off"
	if open {
		valveCommand, switchCommand = "open", "on"
	}

	commands := []model.Command{{Capability: "valve", Command: valveCommand}}
	if i.HasCapability("switch") {
		commands = append(commands, model.Command{Capability: "switch", Command: switchCommand})
	}

	return i.Commands(ctx, commands...)
}
