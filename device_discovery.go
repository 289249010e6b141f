package cda

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/retry"
	"strings"
	"time"
)

const DiscoveryTimeout = 30 * time.Second

// Discover lists the account's devices and adds every device not ignored by
// label. Tracked or saved devices that are no longer listed are removed.
// If listing fails the saved devices are loaded instead, and the listing
// error is returned.
func (b *Bridge) Discover(pctx context.Context, lister DeviceLister, ignoreLabels []string) error {
	ctx, end := b.logger.Segment(pctx, "Discovering devices.")
	defer end()

	var devices []model.DeviceDescription

	if err := retry.Retry(ctx, DiscoveryTimeout, DefaultNetworkRetries, func(ctx context.Context) error {
		d, err := lister.ListDevices(ctx)
		devices = d
		return err
	}); err != nil {
		b.logger.LogError(ctx, "Device listing failed, falling back to saved devices.", logwrap.Err(err))
		loaded := b.Load(ctx)
		b.logger.LogInfo(ctx, "Loaded saved devices.", logwrap.Datum("Count", loaded))
		return fmt.Errorf("listing devices: %w", err)
	}

	listed := map[string]struct{}{}

	for _, d := range devices {
		if ignored(d.Label, ignoreLabels) {
			b.logger.LogInfo(ctx, "Ignoring device by label.", logwrap.Datum("DeviceID", d.ID), logwrap.Datum("Label", d.Label))
			continue
		}

		listed[d.ID] = struct{}{}

		if _, err := b.AddDevice(ctx, d); err != nil {
			b.logger.LogWarn(ctx, "Device not added.", logwrap.Datum("DeviceID", d.ID), logwrap.Err(err))
		}
	}

	for _, d := range b.Devices() {
		if _, found := listed[d.ID]; !found {
			if err := b.RemoveDevice(ctx, d.ID); err != nil {
				b.logger.LogWarn(ctx, "Device not removed.", logwrap.Datum("DeviceID", d.ID), logwrap.Err(err))
			}
		}
	}

	for _, id := range b.deviceListFromPersistence() {
		if _, found := listed[id]; !found {
			b.logger.LogInfo(ctx, "Forgetting device no longer listed.", logwrap.Datum("DeviceID", id))
			b.sectionRemoveDevice(id)
		}
	}

	return nil
}

func ignored(label string, ignoreLabels []string) bool {
	for _, l := range ignoreLabels {
		if strings.EqualFold(strings.TrimSpace(l), strings.TrimSpace(label)) {
			return true
		}
	}

	return false
}
