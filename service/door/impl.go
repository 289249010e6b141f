package door

import (
	"context"
	"github.com/shimmeringbee/cda/service"
)

var _ service.Service = (*Implementation)(nil)

const (
	Open    = 0
	Closed  = 1
	Opening = 2
	Closing = 3
	Stopped = 4
)

var doorToCurrent = map[string]int{
	"open":    Open,
	"closed":  Closed,
	"opening": Opening,
	"closing": Closing,
}

var doorToTarget = map[string]int{
	"open":    Open,
	"opening": Open,
	"closed":  Closed,
	"closing": Closed,
}

func NewDoor(env service.Env) *Implementation {
	i := &Implementation{}
	i.Base = service.NewBase(i, service.TypeDoor, env)

	i.AddCharacteristic(service.CurrentDoorState, i.getCurrent, nil)
	i.AddCharacteristic(service.TargetDoorState, i.getTarget, i.setTarget)

	i.OnEvent("doorControl", "door", service.CurrentDoorState, currentState)
	i.OnEvent("doorControl", "door", service.TargetDoorState, service.Map(doorToTarget))

	i.Poll(service.CurrentDoorState, env.PollInterval, service.TargetDoorState)

	return i
}

type Implementation struct {
	*service.Base
}

func currentState(v any) (any, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}

	if state, found := doorToCurrent[s]; found {
		return state, true
	}

	return Stopped, true
}

func (i *Implementation) getCurrent(ctx context.Context) (any, error) {
	s, err := i.String(ctx, "doorControl", "door")
	if err != nil {
		return nil, err
	}

	state, _ := currentState(s)
	return state, nil
}

// getTarget treats an unknown door as closed.
func (i *Implementation) getTarget(ctx context.Context) (any, error) {
	s, err := i.String(ctx, "doorControl", "door")
	if err != nil {
		return nil, err
	}

	if state, found := doorToTarget[s]; found {
		return state, nil
	}

	return Closed, nil
}

func (i *Implementation) setTarget(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	switch int(f) {
	case Open:
		return i.Command(ctx, "doorControl", "open")
	case Closed:
		return i.Command(ctx, "doorControl", "close")
	default:
		return service.ErrInvalidValue
	}
}
