package cda

import (
	"context"
	"errors"
	"github.com/shimmeringbee/cda/model"
	"sync"
	"sync/atomic"
	"time"
)

var errTestTransport = errors.New("transport failure")

// fakeTransport records concurrency across all calls to a device.
type fakeTransport struct {
	delay time.Duration

	statusFn    func() (model.DeviceStatus, error)
	statusCtxFn func(context.Context) (model.DeviceStatus, error)
	healthFn    func() (model.Health, error)
	commandFn   func([]model.Command) error

	statusCalls  atomic.Int32
	healthCalls  atomic.Int32
	commandCalls atomic.Int32

	active    atomic.Int32
	maxActive atomic.Int32

	lock     sync.Mutex
	commands [][]model.Command
}

func (f *fakeTransport) enter() func() {
	n := f.active.Add(1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	return func() {
		f.active.Add(-1)
	}
}

func (f *fakeTransport) Health(_ context.Context, _ string) (model.Health, error) {
	f.healthCalls.Add(1)

	if f.healthFn != nil {
		return f.healthFn()
	}

	return model.Health{State: model.HealthOnline}, nil
}

func (f *fakeTransport) Status(ctx context.Context, _ string) (model.DeviceStatus, error) {
	f.statusCalls.Add(1)
	defer f.enter()()

	if f.statusCtxFn != nil {
		return f.statusCtxFn(ctx)
	}

	if f.statusFn != nil {
		return f.statusFn()
	}

	return model.DeviceStatus{"main": {"switch": {"switch": {Value: "on"}}}}, nil
}

func (f *fakeTransport) SendCommands(_ context.Context, _ string, c []model.Command) error {
	f.commandCalls.Add(1)
	defer f.enter()()

	f.lock.Lock()
	f.commands = append(f.commands, c)
	f.lock.Unlock()

	if f.commandFn != nil {
		return f.commandFn(c)
	}

	return nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	lock sync.Mutex
	t    time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.t = c.t.Add(d)
}
