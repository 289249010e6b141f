package cda

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/logwrap"
)

type deviceLookup interface {
	Device(string) (*Device, bool)
}

// router delivers push events to the service claiming the event's component
// and capability. It never blocks on the network, unroutable events are
// logged and dropped.
type router struct {
	devices deviceLookup
	logger  logwrap.Logger
	metrics *Metrics
}

func (r *router) Route(ctx context.Context, e model.ShortEvent) {
	d, found := r.devices.Device(e.DeviceID)
	if !found {
		r.drop(ctx, e, fmt.Errorf("%w: unknown device", ErrUnroutableEvent))
		return
	}

	d.Gateway.ApplyEvent(e)

	s, found := d.Service(e.ComponentID, e.Capability)
	if !found {
		r.drop(ctx, e, fmt.Errorf("%w: no service claims capability", ErrUnroutableEvent))
		return
	}

	r.metrics.event("routed")
	s.ProcessEvent(ctx, e)
}

func (r *router) drop(ctx context.Context, e model.ShortEvent, err error) {
	r.metrics.event("dropped")
	r.logger.LogWarn(ctx, "Dropping push event.", logwrap.Err(err), logwrap.Datum("DeviceID", e.DeviceID),
		logwrap.Datum("ComponentID", e.ComponentID), logwrap.Datum("Capability", e.Capability))
}

var _ EventRouter = (*router)(nil)
