package lock

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
		Capabilities: []string{"lock"},
		Logger:       logwrap.New(discard.Discard()),
	}
}

func TestImplementation_States(t *testing.T) {
	t.Run("maps lock values to current states", func(t *testing.T) {
		for value, expected := range map[string]int{"locked": Secured, "unlocked": Unsecured, "unknown": Unknown, "jammed": Jammed} {
			mg := &service.MockGateway{}
			mg.On("IsOnline").Return(true)
			mg.On("GetStatus", mock.Anything).Return(true, model.DeviceStatus{"main": {"lock": {"lock": {Value: value}}}})

			v, err := NewLock(env(mg)).Get(context.Background(), service.LockCurrentState)
			assert.NoError(t, err)
			assert.Equal(t, expected, v, value)
		}
	})

	t.Run("unlocks on an unsecured target", func(t *testing.T) {
		mg := &service.MockGateway{}
		defer mg.AssertExpectations(t)
		mg.On("IsOnline").Return(true)
		mg.On("SendCommands", mock.Anything, []model.Command{{Component: "main", Capability: "lock", Command: "unlock"}}).Return(true)

		assert.NoError(t, NewLock(env(mg)).Set(context.Background(), service.LockTargetState, Unsecured))
	})

	t.Run("rejects other targets", func(t *testing.T) {
		assert.ErrorIs(t, NewLock(env(nil)).Set(context.Background(), service.LockTargetState, Jammed), service.ErrInvalidValue)
	})
}

func TestImplementation_ProcessEvent(t *testing.T) {
	t.Run("lock events update current and target", func(t *testing.T) {
		ms := &service.MockSink{}
		defer ms.AssertExpectations(t)

		e := env(nil)
		e.Sink = ms
		l := NewLock(e)

		ms.On("Update", mock.Anything, l, service.LockCurrentState, Secured).Once()
		ms.On("Update", mock.Anything, l, service.LockTargetState, Secured).Once()

		l.ProcessEvent(context.Background(), model.ShortEvent{Capability: "lock", Attribute: "lock", Value: "locked"})
	})
}
