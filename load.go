package cda

import (
	"context"
	"github.com/shimmeringbee/logwrap"
)

// Load restores every device saved by a previous run, including the offline
// state and recovery schedule of devices that were offline.
func (b *Bridge) Load(pctx context.Context) int {
	ctx, end := b.logger.Segment(pctx, "Loading persistence.")
	defer end()

	loaded := 0

	for _, id := range b.deviceListFromPersistence() {
		if b.loadDevice(ctx, id) {
			loaded++
		}
	}

	return loaded
}

func (b *Bridge) loadDevice(pctx context.Context, id string) bool {
	ctx, end := b.logger.Segment(pctx, "Loading device data.", logwrap.Datum("DeviceID", id))
	defer end()

	desc, found := b.deviceFromPersistence(id)
	if !found {
		b.logger.LogWarn(ctx, "Persisted device has no components, skipping.")
		return false
	}

	giveUpTime, _ := b.persistedGiveUpTime(id)

	if _, err := b.addDevice(ctx, desc, giveUpTime); err != nil {
		b.logger.LogError(ctx, "Error while loading from persistence.", logwrap.Err(err))
		return false
	}

	return true
}
