package cda

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestBridge_RemoveDevice(t *testing.T) {
	t.Run("stops tracking and forgets the device", func(t *testing.T) {
		b := newTestBridge(t, &fakeTransport{}, ModePolling)

		d, err := b.AddDevice(context.Background(), switchDevice("device-1"))
		require.NoError(t, err)
		_, err = b.AddDevice(context.Background(), switchDevice("device-2"))
		require.NoError(t, err)

		require.NoError(t, b.RemoveDevice(context.Background(), "device-1"))

		_, found := b.Device("device-1")
		assert.False(t, found)
		assert.Len(t, b.Devices(), 1)
		assert.Equal(t, []string{"device-2"}, b.deviceListFromPersistence())
		assert.True(t, d.Gateway.Removed())
	})

	t.Run("raises a DeviceRemoved event", func(t *testing.T) {
		b := newTestBridge(t, &fakeTransport{}, ModePolling)

		d, err := b.AddDevice(context.Background(), switchDevice("device-1"))
		require.NoError(t, err)

		var removed []DeviceRemoved
		b.Callbacks().Add(func(_ context.Context, e DeviceRemoved) error {
			removed = append(removed, e)
			return nil
		})

		require.NoError(t, b.RemoveDevice(context.Background(), "device-1"))

		require.Len(t, removed, 1)
		assert.Same(t, d, removed[0].Device)
	})

	t.Run("polling of a removed device stops", func(t *testing.T) {
		ft := &fakeTransport{}
		b := newTestBridge(t, ft, ModePolling)
		b.WithPollIntervals(5*time.Millisecond, 5*time.Millisecond)

		_, err := b.AddDevice(context.Background(), switchDevice("device-1"))
		require.NoError(t, err)

		assert.Eventually(t, func() bool { return ft.statusCalls.Load() > 0 }, time.Second, 5*time.Millisecond)

		require.NoError(t, b.RemoveDevice(context.Background(), "device-1"))

		time.Sleep(30 * time.Millisecond)
		calls := ft.statusCalls.Load()
		time.Sleep(50 * time.Millisecond)

		assert.Equal(t, calls, ft.statusCalls.Load())
	})

	t.Run("removing an unknown device fails", func(t *testing.T) {
		b := newTestBridge(t, &fakeTransport{}, ModePolling)

		assert.ErrorIs(t, b.RemoveDevice(context.Background(), "unknown"), ErrUnknownDevice)
	})
}
