package door

import (
	"context"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/cda/service"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"testing"
)

func env(mg *service.MockGateway) service.Env {
	return service.Env{
		Gateway:      mg,
		ComponentID:  "main",
		Capabilities: []string{"doorControl"},
		Logger:       logwrap.New(discard.Discard()),
	}
}

func TestImplementation_Door(t *testing.T) {
	t.Run("reports opening as current and open as target", func(t *testing.T) {
		mg := &service.MockGateway{}
		mg.On("IsOnline").Return(true)
		mg.On("GetStatus", mock.Anything).Return(true, model.DeviceStatus{"main": {"doorControl": {"door": {Value: "opening"}}}})

		d := NewDoor(env(mg))

		v, err := d.Get(context.Background(), service.CurrentDoorState)
		assert.NoError(t, err)
		assert.Equal(t, Opening, v)

		v, err = d.Get(context.Background(), service.TargetDoorState)
		assert.NoError(t, err)
		assert.Equal(t, Open, v)
	})

	t.Run("unknown door states are stopped", func(t *testing.T) {
		mg := &service.MockGateway{}
		mg.On("IsOnline").Return(true)
		mg.On("GetStatus", mock.Anything).Return(true, model.DeviceStatus{"main": {"doorControl": {"door": {Value: "unknown"}}}})

		v, err := NewDoor(env(mg)).Get(context.Background(), service.CurrentDoorState)
		assert.NoError(t, err)
		assert.Equal(t, Stopped, v)
	})

	t.Run("closes on a closed target", func(t *testing.T) {
		mg := &service.MockGateway{}
		defer mg.AssertExpectations(t)
		mg.On("IsOnline").Return(true)
		mg.On("SendCommands", mock.Anything, []model.Command{{Component: "main", Capability: "doorControl", Command: "close"}}).Return(true)

		assert.NoError(t, NewDoor(env(mg)).Set(context.Background(), service.TargetDoorState, Closed))
	})
}
