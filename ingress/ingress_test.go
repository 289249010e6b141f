package ingress

import (
	"context"
	"encoding/json"
	"github.com/shimmeringbee/cda"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type mockRouter struct {
	mock.Mock
}

func (m *mockRouter) Route(ctx context.Context, e model.ShortEvent) {
	m.Called(ctx, e)
}

var testEvent = model.ShortEvent{DeviceID: "device-1", ComponentID: "main", Capability: "switch", Attribute: "switch", Value: "on"}

func TestWebhook_handleEvent(t *testing.T) {
	t.Run("routes every event in the body and responds OK", func(t *testing.T) {
		mr := &mockRouter{}
		defer mr.AssertExpectations(t)
		mr.On("Route", mock.Anything, testEvent).Twice()

		h := NewWebhook(mr, logwrap.New(discard.Discard())).Handler()

		body := `{"events":[{"deviceId":"device-1","componentId":"main","capability":"switch","attribute":"switch","value":"on"},{"deviceId":"device-1","componentId":"main","capability":"switch","attribute":"switch","value":"on"}]}`
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/event", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("a body without events responds OK", func(t *testing.T) {
		mr := &mockRouter{}
		defer mr.AssertExpectations(t)

		h := NewWebhook(mr, logwrap.New(discard.Discard())).Handler()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/event", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("a malformed body is rejected", func(t *testing.T) {
		mr := &mockRouter{}
		defer mr.AssertExpectations(t)

		h := NewWebhook(mr, logwrap.New(discard.Discard())).Handler()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/event", strings.NewReader(`{"events":`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("other methods are not allowed", func(t *testing.T) {
		h := NewWebhook(&mockRouter{}, logwrap.New(discard.Discard())).Handler()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/event", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestNewSubscription(t *testing.T) {
	t.Run("a relay url is required", func(t *testing.T) {
		_, err := NewSubscription("", "token", nil, &mockRouter{}, logwrap.New(discard.Discard()))
		assert.ErrorIs(t, err, cda.ErrConfiguration)
	})
}

func TestSubscription_Run(t *testing.T) {
	t.Run("requests events for the devices and routes them", func(t *testing.T) {
		var requests atomic.Int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)

			assert.Equal(t, "/clientrequest", r.URL.Path)
			assert.Equal(t, "Bearer: token", r.Header.Get("Authorization"))

			var req subscriptionRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, RelayHoldTimeout, req.Timeout)
			assert.Equal(t, []string{"device-1"}, req.DeviceIDs)

			_ = json.NewEncoder(w).Encode(subscriptionResponse{Events: []model.ShortEvent{testEvent}})
		}))
		defer srv.Close()

		mr := &mockRouter{}
		routed := make(chan struct{}, 10)
		mr.On("Route", mock.Anything, testEvent).Run(func(mock.Arguments) {
			select {
			case routed <- struct{}{}:
			default:
			}
		})

		s, err := NewSubscription(srv.URL, "token", func() []string { return []string{"device-1"} }, mr, logwrap.New(discard.Discard()))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			s.Run(ctx)
			close(done)
		}()

		select {
		case <-routed:
		case <-time.After(time.Second):
			t.Fatal("event was not routed")
		}

		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("subscription did not stop")
		}

		assert.GreaterOrEqual(t, requests.Load(), int32(1))
	})

	t.Run("waits the retry interval after a failure", func(t *testing.T) {
		var requests atomic.Int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		s, err := NewSubscription(srv.URL, "token", func() []string { return nil }, &mockRouter{}, logwrap.New(discard.Discard()))
		require.NoError(t, err)
		s.WithRetryInterval(time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		s.Run(ctx)

		assert.Equal(t, int32(1), requests.Load())
	})
}
