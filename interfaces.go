package cda

import (
	"context"
	"github.com/shimmeringbee/cda/model"
)

// Transport is the remote device API, one call per endpoint.
type Transport interface {
	Health(context.Context, string) (model.Health, error)
	Status(context.Context, string) (model.DeviceStatus, error)
	SendCommands(context.Context, string, []model.Command) error
}

// DeviceLister enumerates devices available to the account.
type DeviceLister interface {
	ListDevices(context.Context) ([]model.DeviceDescription, error)
}

// EventRouter receives push events from an ingress. Routing never fails from
// the caller's view, events that cannot be delivered are dropped.
type EventRouter interface {
	Route(context.Context, model.ShortEvent)
}
