package cda

import (
	"context"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/persistence/impl/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"testing"
)

type mockDeviceLister struct {
	mock.Mock
}

func (m *mockDeviceLister) ListDevices(ctx context.Context) ([]model.DeviceDescription, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.DeviceDescription), args.Error(1)
}

func TestBridge_Discover(t *testing.T) {
	t.Run("adds listed devices", func(t *testing.T) {
		b := newTestBridge(t, &fakeTransport{}, ModePolling)

		ml := &mockDeviceLister{}
		defer ml.AssertExpectations(t)
		ml.On("ListDevices", mock.Anything).Return([]model.DeviceDescription{switchDevice("device-1"), switchDevice("device-2")}, nil)

		require.NoError(t, b.Discover(context.Background(), ml, nil))

		assert.Len(t, b.Devices(), 2)
	})

	t.Run("ignores devices by label regardless of case", func(t *testing.T) {
		b := newTestBridge(t, &fakeTransport{}, ModePolling)

		ignoredDevice := switchDevice("device-2")
		ignoredDevice.Label = "Garage Door"

		ml := &mockDeviceLister{}
		ml.On("ListDevices", mock.Anything).Return([]model.DeviceDescription{switchDevice("device-1"), ignoredDevice}, nil)

		require.NoError(t, b.Discover(context.Background(), ml, []string{"garage door"}))

		_, found := b.Device("device-2")
		assert.False(t, found)
		assert.Len(t, b.Devices(), 1)
	})

	t.Run("forgets saved devices no longer listed", func(t *testing.T) {
		b := newTestBridge(t, &fakeTransport{}, ModePolling)
		b.saveDevice(&Device{ID: "stale", Components: []model.Component{{ID: "main", Capabilities: []string{"switch"}}}})

		ml := &mockDeviceLister{}
		ml.On("ListDevices", mock.Anything).Return([]model.DeviceDescription{switchDevice("device-1")}, nil)

		require.NoError(t, b.Discover(context.Background(), ml, nil))

		assert.Equal(t, []string{"device-1"}, b.deviceListFromPersistence())
	})

	t.Run("removes tracked devices no longer listed", func(t *testing.T) {
		b := newTestBridge(t, &fakeTransport{}, ModePolling)

		stale, err := b.AddDevice(context.Background(), switchDevice("stale"))
		require.NoError(t, err)

		ml := &mockDeviceLister{}
		ml.On("ListDevices", mock.Anything).Return([]model.DeviceDescription{switchDevice("device-1")}, nil)

		require.NoError(t, b.Discover(context.Background(), ml, nil))

		_, found := b.Device("stale")
		assert.False(t, found)
		assert.True(t, stale.Gateway.Removed())
	})

	t.Run("falls back to saved devices when listing fails", func(t *testing.T) {
		s := memory.New()

		saved := New(context.Background(), &fakeTransport{}, s, ModePolling)
		saved.saveDevice(&Device{ID: "device-1", Label: "Hallway", Components: []model.Component{{ID: "main", Capabilities: []string{"switch"}}}})

		b := New(context.Background(), &fakeTransport{}, s, ModePolling)
		defer b.Stop()

		ml := &mockDeviceLister{}
		ml.On("ListDevices", mock.Anything).Return([]model.DeviceDescription(nil), errTestTransport)

		err := b.Discover(context.Background(), ml, nil)
		assert.Error(t, err)

		_, found := b.Device("device-1")
		assert.True(t, found)
	})
}
