package cda

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/logwrap"
)

// RemoveDevice stops tracking a device and forgets it from persistence. Its
// scheduled polls end at their next tick and events for it are dropped.
func (b *Bridge) RemoveDevice(ctx context.Context, id string) error {
	b.devicesLock.Lock()
	d, found := b.devices[id]
	if found {
		delete(b.devices, id)

		for i, oid := range b.order {
			if oid == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
	b.devicesLock.Unlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	b.logger.LogInfo(ctx, "Removing device.", logwrap.Datum("DeviceID", id))

	d.Gateway.Remove()
	b.sectionRemoveDevice(id)
	b.metrics.forget(id)

	b.raise(ctx, DeviceRemoved{Device: d})

	return nil
}
