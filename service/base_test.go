package service

import (
	"context"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"testing"
	"time"
)

type testService struct {
	*Base
}

func newTestService(env Env) *testService {
	s := &testService{}
	s.Base = NewBase(s, "Test", env)
	return s
}

func testEnv(g Gateway) Env {
	return Env{
		Gateway:      g,
		ComponentID:  "main",
		Capabilities: []string{"switch"},
		Logger:       logwrap.New(discard.Discard()),
	}
}

func TestBase_GetSet(t *testing.T) {
	t.Run("get and set dispatch to registered characteristics", func(t *testing.T) {
		s := newTestService(testEnv(nil))

		var stored any
		s.AddCharacteristic(On, func(ctx context.Context) (any, error) { return true, nil }, func(ctx context.Context, v any) error {
			stored = v
			return nil
		})

		v, err := s.Get(context.Background(), On)
		assert.NoError(t, err)
		assert.Equal(t, true, v)

		assert.NoError(t, s.Set(context.Background(), On, false))
		assert.Equal(t, false, stored)
		assert.Equal(t, []string{On}, s.Characteristics())
	})

	t.Run("unknown characteristics and read only sets fail", func(t *testing.T) {
		s := newTestService(testEnv(nil))
		s.AddCharacteristic(CurrentTemperature, func(ctx context.Context) (any, error) { return 20.0, nil }, nil)

		_, err := s.Get(context.Background(), "Missing")
		assert.ErrorIs(t, err, ErrUnknownCharacteristic)

		err = s.Set(context.Background(), CurrentTemperature, 1.0)
		assert.ErrorIs(t, err, ErrReadOnly)
	})
}

func TestBase_Status(t *testing.T) {
	t.Run("fails without a fetch if the device is offline", func(t *testing.T) {
		mg := &MockGateway{}
		defer mg.AssertExpectations(t)
		mg.On("IsOnline").Return(false)

		s := newTestService(testEnv(mg))

		_, err := s.Status(context.Background())
		assert.ErrorIs(t, err, ErrCommunicationFailure)
	})

	t.Run("fails if the fetch fails", func(t *testing.T) {
		mg := &MockGateway{}
		defer mg.AssertExpectations(t)
		mg.On("IsOnline").Return(true)
		mg.On("GetStatus", mock.Anything).Return(false, model.DeviceStatus(nil))

		s := newTestService(testEnv(mg))

		_, err := s.Status(context.Background())
		assert.ErrorIs(t, err, ErrCommunicationFailure)
	})

	t.Run("fails if the component is missing", func(t *testing.T) {
		mg := &MockGateway{}
		defer mg.AssertExpectations(t)
		mg.On("IsOnline").Return(true)
		mg.On("GetStatus", mock.Anything).Return(true, model.DeviceStatus{"other": {}})

		s := newTestService(testEnv(mg))

		_, err := s.Status(context.Background())
		assert.ErrorIs(t, err, ErrCommunicationFailure)
	})

	t.Run("returns typed values from the component", func(t *testing.T) {
		mg := &MockGateway{}
		defer mg.AssertExpectations(t)
		mg.On("IsOnline").Return(true)
		mg.On("GetStatus", mock.Anything).Return(true, model.DeviceStatus{"main": {
			"switch":      {"switch": {Value: "on"}},
			"switchLevel": {"level": {Value: 42.0}},
		}})

		s := newTestService(testEnv(mg))

		str, err := s.String(context.Background(), "switch", "switch")
		assert.NoError(t, err)
		assert.Equal(t, "on", str)

		f, err := s.Float(context.Background(), "switchLevel", "level")
		assert.NoError(t, err)
		assert.Equal(t, 42.0, f)

		_, err = s.Float(context.Background(), "switch", "switch")
		assert.ErrorIs(t, err, ErrCommunicationFailure)

		_, err = s.Value(context.Background(), "lock", "lock")
		assert.ErrorIs(t, err, ErrCommunicationFailure)
	})
}

func TestBase_Commands(t *testing.T) {
	t.Run("stamps the component on commands", func(t *testing.T) {
		mg := &MockGateway{}
		defer mg.AssertExpectations(t)
		mg.On("IsOnline").Return(true)
		mg.On("SendCommands", mock.Anything, []model.Command{{Component: "main", Capability: "switch", Command: "on", Arguments: []any(nil)}}).Return(true)

		s := newTestService(testEnv(mg))

		assert.NoError(t, s.Command(context.Background(), "switch", "on"))
	})

	t.Run("returns communication failure when the command fails", func(t *testing.T) {
		mg := &MockGateway{}
		defer mg.AssertExpectations(t)
		mg.On("IsOnline").Return(true)
		mg.On("SendCommands", mock.Anything, mock.Anything).Return(false)

		s := newTestService(testEnv(mg))

		assert.ErrorIs(t, s.Command(context.Background(), "switch", "on"), ErrCommunicationFailure)
	})

	t.Run("does not send if the device is offline", func(t *testing.T) {
		mg := &MockGateway{}
		defer mg.AssertExpectations(t)
		mg.On("IsOnline").Return(false)

		s := newTestService(testEnv(mg))

		assert.ErrorIs(t, s.Command(context.Background(), "switch", "on"), ErrCommunicationFailure)
	})

	t.Run("an empty batch is a no-op", func(t *testing.T) {
		mg := &MockGateway{}
		defer mg.AssertExpectations(t)

		s := newTestService(testEnv(mg))

		assert.NoError(t, s.Commands(context.Background()))
		mg.AssertNotCalled(t, "IsOnline")
		mg.AssertNotCalled(t, "SendCommands", mock.Anything, mock.Anything)
	})
}

func TestBase_ProcessEvent(t *testing.T) {
	t.Run("converts mapped events and pushes them to the sink", func(t *testing.T) {
		ms := &MockSink{}
		defer ms.AssertExpectations(t)

		env := testEnv(nil)
		env.Sink = ms
		s := newTestService(env)
		s.OnEvent("switch", "switch", On, Map(map[string]bool{"on": true, "off": false}))

		ms.On("Update", mock.Anything, s, On, true)

		s.ProcessEvent(context.Background(), model.ShortEvent{Capability: "switch", Attribute: "switch", Value: "on"})
		s.ProcessEvent(context.Background(), model.ShortEvent{Capability: "switch", Attribute: "switch", Value: "bogus"})
		s.ProcessEvent(context.Background(), model.ShortEvent{Capability: "lock", Attribute: "lock", Value: "locked"})
	})
}

func TestBase_Poll(t *testing.T) {
	t.Run("registers a poll with its paired characteristic", func(t *testing.T) {
		mp := &MockPoller{}
		defer mp.AssertExpectations(t)

		env := testEnv(nil)
		env.Poller = mp
		s := newTestService(env)
		s.AddCharacteristic(CurrentTemperature, func(ctx context.Context) (any, error) { return 1.0, nil }, nil)
		s.AddCharacteristic(TargetTemperature, func(ctx context.Context) (any, error) { return 2.0, nil }, nil)

		mp.On("Add", s, mock.MatchedBy(func(p Poll) bool {
			return p.Characteristic == CurrentTemperature && p.PairedCharacteristic == TargetTemperature && p.Interval == 10*time.Second && p.Get != nil && p.PairedGet != nil
		}))

		s.Poll(CurrentTemperature, 10*time.Second, TargetTemperature)
	})

	t.Run("does nothing with a zero interval", func(t *testing.T) {
		mp := &MockPoller{}
		defer mp.AssertExpectations(t)

		env := testEnv(nil)
		env.Poller = mp
		s := newTestService(env)
		s.AddCharacteristic(On, func(ctx context.Context) (any, error) { return true, nil }, nil)

		s.Poll(On, 0, "")
	})
}

func TestFloat(t *testing.T) {
	t.Run("coerces numeric representations", func(t *testing.T) {
		for _, v := range []any{1.5, float32(1.5), "1.5"} {
			f, ok := Float(v)
			assert.True(t, ok)
			assert.Equal(t, 1.5, f)
		}

		_, ok := Float(true)
		assert.False(t, ok)
	})
}
