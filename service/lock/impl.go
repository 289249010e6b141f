package lock

import (
	"context"
	"github.com/shimmeringbee/cda/service"
)

var _ service.Service = (*Implementation)(nil)

const (
	Unsecured = 0
	Secured   = 1
	Jammed    = 2
	Unknown   = 3
)

var lockToCurrent = map[string]int{
	"locked":                Secured,
	"unlocked":              Unsecured,
	"unlocked with timeout": Unsecured,
	"unknown":               Unknown,
}

func NewLock(env service.Env) *Implementation {
	i := &Implementation{}
	i.Base = service.NewBase(i, service.TypeLock, env)

	i.AddCharacteristic(service.LockCurrentState, i.getCurrent, nil)
	i.AddCharacteristic(service.LockTargetState, i.getTarget, i.setTarget)

	i.OnEvent("lock", "lock", service.LockCurrentState, currentState)
	i.OnEvent("lock", "lock", service.LockTargetState, targetState)

	i.Poll(service.LockCurrentState, env.PollInterval, service.LockTargetState)

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

	if state, found := lockToCurrent[s]; found {
		return state, true
	}

	return Jammed, true
}

func targetState(v any) (any, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}

	if s == "locked" {
		return Secured, true
	}

	return Unsecured, true
}

func (i *Implementation) getCurrent(ctx context.Context) (any, error) {
	s, err := i.String(ctx, "lock", "lock")
	if err != nil {
		return nil, err
	}

	state, _ := currentState(s)
	return state, nil
}

func (i *Implementation) getTarget(ctx context.Context) (any, error) {
	s, err := i.String(ctx, "lock", "lock")
	if err != nil {
		return nil, err
	}

	state, _ := targetState(s)
	return state, nil
}

func (i *Implementation) setTarget(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	switch int(f) {
	case Secured:
		return i.Command(ctx, "lock", "lock")
	case Unsecured:
		return i.Command(ctx, "lock", "unlock")
	default:
		return service.ErrInvalidValue
	}
}
