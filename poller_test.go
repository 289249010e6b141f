package cda

import (
	"context"
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/cda/service"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/stretchr/testify/assert"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestPoller(mode Mode) *poller {
	p := newPoller(mode, logwrap.New(discard.Discard()), NewMetrics(prometheus.NewRegistry()))
	p.jitter = 0
	return p
}

type recordingSink struct {
	lock    sync.Mutex
	updates map[string][]any
}

func (r *recordingSink) Update(_ context.Context, _ service.Service, characteristic string, v any) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.updates == nil {
		r.updates = map[string][]any{}
	}

	r.updates[characteristic] = append(r.updates[characteristic], v)
}

func (r *recordingSink) count(characteristic string) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.updates[characteristic])
}

func TestPoller(t *testing.T) {
	t.Run("jobs are called after the interval, and then called repeatedly", func(t *testing.T) {
		g, _ := newTestDeviceGateway(&fakeTransport{})
		p := newTestPoller(ModePolling)
		p.Start()
		defer p.Stop()

		var called atomic.Int32

		assert.True(t, p.Schedule(g, 5*time.Millisecond, func(ctx context.Context) {
			called.Add(1)
		}))

		assert.Eventually(t, func() bool { return called.Load() > 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("jobs are not scheduled in push modes", func(t *testing.T) {
		g, _ := newTestDeviceGateway(&fakeTransport{})
		p := newTestPoller(ModePushWebhook)
		p.Start()
		defer p.Stop()

		var called atomic.Int32

		assert.False(t, p.Schedule(g, 5*time.Millisecond, func(ctx context.Context) {
			called.Add(1)
		}))

		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, int32(0), called.Load())
	})

	t.Run("ticks are skipped while a command is settling", func(t *testing.T) {
		g, _ := newTestDeviceGateway(&fakeTransport{})
		assert.True(t, g.SendCommand(context.Background(), "switch", "on"))

		p := newTestPoller(ModePolling)
		p.Start()
		defer p.Stop()

		var called atomic.Int32

		p.Schedule(g, 5*time.Millisecond, func(ctx context.Context) {
			called.Add(1)
		})

		assert.Eventually(t, func() bool {
			return testutil.ToFloat64(p.metrics.PollTicks.WithLabelValues("skipped")) > 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(0), called.Load())
	})

	t.Run("an offline device is recovered rather than polled", func(t *testing.T) {
		ft := &fakeTransport{statusFn: func() (model.DeviceStatus, error) { return nil, errTestTransport }}
		g, clock := newTestDeviceGateway(ft)
		failTimes(g, FailureThreshold)
		clock.Advance(RecoveryWindow)

		p := newTestPoller(ModePolling)
		p.Start()
		defer p.Stop()

		var called atomic.Int32

		p.Schedule(g, 5*time.Millisecond, func(ctx context.Context) {
			called.Add(1)
		})

		assert.Eventually(t, g.IsOnline, time.Second, 5*time.Millisecond)
		assert.GreaterOrEqual(t, ft.healthCalls.Load(), int32(1))
	})

	t.Run("recovery jobs run in push modes", func(t *testing.T) {
		ft := &fakeTransport{statusFn: func() (model.DeviceStatus, error) { return nil, errTestTransport }}
		g, clock := newTestDeviceGateway(ft)
		failTimes(g, FailureThreshold)
		clock.Advance(RecoveryWindow)

		p := newTestPoller(ModePushSubscription)
		p.Start()
		defer p.Stop()

		p.ScheduleRecovery(g, 5*time.Millisecond)

		assert.Eventually(t, g.IsOnline, time.Second, 5*time.Millisecond)
	})

	t.Run("no jobs run after stop", func(t *testing.T) {
		g, _ := newTestDeviceGateway(&fakeTransport{})
		p := newTestPoller(ModePolling)
		p.Start()

		var called atomic.Int32

		p.Schedule(g, 5*time.Millisecond, func(ctx context.Context) {
			called.Add(1)
		})

		assert.Eventually(t, func() bool { return called.Load() > 0 }, time.Second, 5*time.Millisecond)
		p.Stop()

		time.Sleep(20 * time.Millisecond)
		stopped := called.Load()
		time.Sleep(30 * time.Millisecond)

		assert.Equal(t, stopped, called.Load())
	})
}

func TestPoller_Isolation(t *testing.T) {
	t.Run("a healthy device keeps polling while other devices hang", func(t *testing.T) {
		p := newTestPoller(ModePolling)
		p.Start()
		defer p.Stop()

		release := make(chan struct{})
		defer close(release)

		for i := 0; i < 8; i++ {
			hung, _ := newTestDeviceGateway(&fakeTransport{})
			p.Schedule(hung, time.Millisecond, func(ctx context.Context) {
				select {
				case <-release:
				case <-ctx.Done():
				}
			})
		}

		healthy, _ := newTestDeviceGateway(&fakeTransport{})

		var called atomic.Int32

		p.Schedule(healthy, 5*time.Millisecond, func(ctx context.Context) {
			called.Add(1)
		})

		assert.Eventually(t, func() bool { return called.Load() > 2 }, time.Second, 5*time.Millisecond)
	})

	t.Run("jobs wait for the poller to start", func(t *testing.T) {
		g, _ := newTestDeviceGateway(&fakeTransport{})
		p := newTestPoller(ModePolling)
		defer p.Stop()

		var called atomic.Int32

		p.Schedule(g, time.Millisecond, func(ctx context.Context) {
			called.Add(1)
		})

		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, int32(0), called.Load())

		p.Start()
		assert.Eventually(t, func() bool { return called.Load() > 0 }, time.Second, 5*time.Millisecond)
	})
}

func TestPoller_delay(t *testing.T) {
	t.Run("adds up to a second of jitter to the interval", func(t *testing.T) {
		p := newPoller(ModePolling, logwrap.New(discard.Discard()), nil)
		interval := 10 * time.Second

		for i := 0; i < 1000; i++ {
			d := p.delay(interval)

			assert.GreaterOrEqual(t, d, interval)
			assert.LessOrEqual(t, d, interval+pollerJitter)
		}
	})

	t.Run("jitter varies between ticks", func(t *testing.T) {
		p := newPoller(ModePolling, logwrap.New(discard.Discard()), nil)

		seen := map[time.Duration]struct{}{}
		for i := 0; i < 100; i++ {
			seen[p.delay(time.Second)] = struct{}{}
		}

		assert.Greater(t, len(seen), 1)
	})
}

func TestDevicePoller_Add(t *testing.T) {
	t.Run("pushes polled and paired values to the sink", func(t *testing.T) {
		g, _ := newTestDeviceGateway(&fakeTransport{})
		p := newTestPoller(ModePolling)
		p.Start()
		defer p.Stop()

		sink := &recordingSink{}
		dp := &devicePoller{poller: p, gateway: g, sink: sink, logger: logwrap.New(discard.Discard())}

		dp.Add(nil, service.Poll{
			Characteristic:       "Active",
			Interval:             5 * time.Millisecond,
			Get:                  func(context.Context) (any, error) { return 1, nil },
			PairedCharacteristic: "RotationSpeed",
			PairedGet:            func(context.Context) (any, error) { return 50, nil },
		})

		assert.Eventually(t, func() bool {
			return sink.count("Active") > 0 && sink.count("RotationSpeed") > 0
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("a failed getter does not prevent the paired getter", func(t *testing.T) {
		g, _ := newTestDeviceGateway(&fakeTransport{})
		p := newTestPoller(ModePolling)
		p.Start()
		defer p.Stop()

		sink := &recordingSink{}
		dp := &devicePoller{poller: p, gateway: g, sink: sink, logger: logwrap.New(discard.Discard())}

		dp.Add(nil, service.Poll{
			Characteristic:       "CurrentTemperature",
			Interval:             5 * time.Millisecond,
			Get:                  func(context.Context) (any, error) { return nil, errors.New("failed") },
			PairedCharacteristic: "TargetTemperature",
			PairedGet:            func(context.Context) (any, error) { return 21.0, nil },
		})

		assert.Eventually(t, func() bool { return sink.count("TargetTemperature") > 0 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, 0, sink.count("CurrentTemperature"))
	})
}
