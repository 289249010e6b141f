package cda

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/retry"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"sync"
	"time"
)

const (
	StatusFreshness       = 5 * time.Second
	FailureThreshold      = 5
	RecoveryWindow        = 10 * time.Minute
	CommandSettlingWindow = 20 * time.Second
)

// StatusFetchTimeout bounds a shared status fetch, including any wait for an
// in flight command.
const StatusFetchTimeout = 15 * time.Second

const DefaultNetworkTimeout = 3000 * time.Millisecond
const DefaultNetworkRetries = 5

// DeviceGateway owns the status cache and online state of one remote device.
// Status fetches and commands are serialised, concurrent status requests
// share a single fetch.
type DeviceGateway struct {
	deviceID   string
	transport  Transport
	logger     logwrap.Logger
	metrics    *Metrics
	now        func() time.Time
	components []string

	onlineChange func(context.Context, *DeviceGateway, bool)

	io     *semaphore.Weighted
	flight singleflight.Group

	lock                 sync.Mutex
	status               model.DeviceStatus
	statusAt             time.Time
	failureCount         int
	online               bool
	giveUpTime           time.Time
	commandInFlight      bool
	lastCommandCompleted time.Time
	removed              bool
}

func NewDeviceGateway(deviceID string, components []string, transport Transport, logger logwrap.Logger) *DeviceGateway {
	logger.AddOptionsToLogger(logwrap.Datum("DeviceID", deviceID))

	return &DeviceGateway{
		deviceID:   deviceID,
		components: components,
		transport:  transport,
		logger:     logger,
		now:        time.Now,
		io:         semaphore.NewWeighted(1),
		online:     true,
	}
}

func (g *DeviceGateway) DeviceID() string {
	return g.deviceID
}

func (g *DeviceGateway) IsOnline() bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.online
}

// Probe performs the initial health check, seeding the online state. A device
// reporting anything other than online is marked offline and enters recovery.
// Transport errors leave the device online.
func (g *DeviceGateway) Probe(ctx context.Context) {
	var health model.Health

	if err := retry.Retry(ctx, DefaultNetworkTimeout, DefaultNetworkRetries, func(ctx context.Context) error {
		h, err := g.transport.Health(ctx, g.deviceID)
		health = h
		return err
	}); err != nil {
		g.logger.LogWarn(ctx, "Initial health check failed.", logwrap.Err(err))
		return
	}

	if !health.Online() {
		g.logger.LogWarn(ctx, "Device reported not online at startup.", logwrap.Datum("State", health.State))
		g.setOffline(ctx)
	}
}

func (g *DeviceGateway) fresh() (model.DeviceStatus, bool) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.status != nil && !g.statusAt.IsZero() && g.now().Sub(g.statusAt) < StatusFreshness {
		return g.status.Clone(), true
	}

	return nil, false
}

// GetStatus returns the device status, from cache if fresh. It returns false
// on any failure, and without network activity if the device is offline.
func (g *DeviceGateway) GetStatus(ctx context.Context) (bool, model.DeviceStatus) {
	if !g.IsOnline() {
		return false, nil
	}

	if s, ok := g.fresh(); ok {
		g.metrics.cacheHit()
		return true, s
	}

	ch := g.flight.DoChan("status", func() (interface{}, error) {
		// A caller giving up does not cancel the shared fetch.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), StatusFetchTimeout)
		defer cancel()

		if s, ok := g.fresh(); ok {
			return s, nil
		}

		return g.fetch(fctx)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return false, nil
		}
		return true, r.Val.(model.DeviceStatus).Clone()
	case <-ctx.Done():
		return false, nil
	}
}

func (g *DeviceGateway) fetch(ctx context.Context) (model.DeviceStatus, error) {
	if err := g.io.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.io.Release(1)

	status, err := g.transport.Status(ctx, g.deviceID)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTransientFetch, err)
	} else {
		err = g.validate(ctx, status)
	}

	if err != nil {
		g.recordFailure(ctx, err)
		return nil, err
	}

	g.lock.Lock()
	g.status = status
	g.statusAt = g.now()
	g.failureCount = 0
	g.lock.Unlock()

	g.metrics.fetch(true)

	return status.Clone(), nil
}

// validate requires at least one registered component to be present, missing
// components are logged.
func (g *DeviceGateway) validate(ctx context.Context, status model.DeviceStatus) error {
	if status == nil {
		return fmt.Errorf("%w: no components", ErrMalformedResponse)
	}

	if len(g.components) == 0 {
		return nil
	}

	present := 0

	for _, c := range g.components {
		if cs := status[c]; cs != nil {
			present++
		} else {
			g.logger.LogWarn(ctx, "Registered component missing from status.", logwrap.Datum("ComponentID", c))
		}
	}

	if present == 0 {
		return fmt.Errorf("%w: no registered components present", ErrMalformedResponse)
	}

	return nil
}

func (g *DeviceGateway) recordFailure(ctx context.Context, err error) {
	g.metrics.fetch(false)

	g.lock.Lock()
	g.failureCount++
	count := g.failureCount
	g.lock.Unlock()

	g.logger.LogError(ctx, "Status fetch failed.", logwrap.Err(err), logwrap.Datum("FailureCount", count))

	if count >= FailureThreshold {
		g.setOffline(ctx)
	}
}

func (g *DeviceGateway) setOffline(ctx context.Context) {
	g.lock.Lock()
	wasOnline := g.online
	g.online = false
	if wasOnline || g.giveUpTime.IsZero() {
		g.giveUpTime = g.now()
	}
	g.lock.Unlock()

	if wasOnline {
		g.logger.LogWarn(ctx, "Device marked offline.")
		g.notifyOnline(ctx, false)
	}
}

func (g *DeviceGateway) notifyOnline(ctx context.Context, online bool) {
	g.metrics.online(g.deviceID, online)

	if g.onlineChange != nil {
		g.onlineChange(ctx, g, online)
	}
}

// SendCommand sends a single command to the main component.
func (g *DeviceGateway) SendCommand(ctx context.Context, capability string, command string, args ...any) bool {
	return g.SendCommands(ctx, []model.Command{{Capability: capability, Command: command, Arguments: args}})
}

// SendCommands waits for any in flight fetch or command before sending. A
// successful command invalidates the status cache. Failures do not count
// towards the offline threshold.
func (g *DeviceGateway) SendCommands(ctx context.Context, commands []model.Command) bool {
	if !g.IsOnline() {
		g.logger.LogError(ctx, "Command not sent, device offline.")
		return false
	}

	if err := g.io.Acquire(ctx, 1); err != nil {
		g.logger.LogError(ctx, "Command abandoned waiting for device.", logwrap.Err(err))
		return false
	}

	g.lock.Lock()
	g.commandInFlight = true
	g.lock.Unlock()

	defer func() {
		g.lock.Lock()
		g.commandInFlight = false
		g.lastCommandCompleted = g.now()
		g.lock.Unlock()

		g.io.Release(1)
	}()

	if err := g.transport.SendCommands(ctx, g.deviceID, commands); err != nil {
		g.metrics.command(false)
		g.logger.LogError(ctx, "Command failed.", logwrap.Err(fmt.Errorf("%w: %w", ErrTransientCommand, err)), logwrap.Datum("Commands", commands))
		return false
	}

	g.metrics.command(true)
	g.logger.LogDebug(ctx, "Command successful.", logwrap.Datum("Commands", commands))

	g.lock.Lock()
	g.statusAt = time.Time{}
	g.lock.Unlock()

	return true
}

// CommandSettling is true while a command is in flight, or completed within
// the window.
func (g *DeviceGateway) CommandSettling(window time.Duration) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.commandInFlight {
		return true
	}

	return !g.lastCommandCompleted.IsZero() && g.now().Sub(g.lastCommandCompleted) < window
}

// Recover checks health once the recovery window since going offline has
// elapsed, returning the device to online if the check succeeds. It returns
// the online state afterwards.
func (g *DeviceGateway) Recover(ctx context.Context) bool {
	g.lock.Lock()
	online := g.online
	due := !g.giveUpTime.IsZero() && g.now().Sub(g.giveUpTime) >= RecoveryWindow
	g.lock.Unlock()

	if online {
		return true
	}

	if !due {
		return false
	}

	health, err := g.transport.Health(ctx, g.deviceID)
	if err != nil {
		g.logger.LogWarn(ctx, "Recovery health check failed.", logwrap.Err(err))
		return false
	}

	if !health.Online() {
		g.logger.LogInfo(ctx, "Device still not online.", logwrap.Datum("State", health.State))
		return false
	}

	g.lock.Lock()
	g.online = true
	g.failureCount = 0
	g.giveUpTime = time.Time{}
	g.lock.Unlock()

	g.logger.LogInfo(ctx, "Device recovered.")
	g.notifyOnline(ctx, true)

	return true
}

// ApplyEvent writes an event's value into the cached status without
// refreshing its timestamp.
func (g *DeviceGateway) ApplyEvent(e model.ShortEvent) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.status == nil {
		return
	}

	cs, found := g.status[e.ComponentID]
	if !found {
		return
	}

	if cs == nil {
		cs = model.ComponentStatus{}
		g.status[e.ComponentID] = cs
	}

	cs.Set(e.Capability, e.Attribute, e.Value)
}

func (g *DeviceGateway) FailureCount() int {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.failureCount
}

func (g *DeviceGateway) GiveUpTime() time.Time {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.giveUpTime
}

// restoreOffline seeds an offline state saved by a previous run, keeping its
// recovery schedule.
func (g *DeviceGateway) restoreOffline(giveUpTime time.Time) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.online = false
	g.failureCount = FailureThreshold
	g.giveUpTime = giveUpTime
}

// Remove retires the gateway, its scheduled polls stop at their next tick.
func (g *DeviceGateway) Remove() {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.removed = true
}

func (g *DeviceGateway) Removed() bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.removed
}

type GatewayState struct {
	Online               bool               `json:"online"`
	FailureCount         int                `json:"failureCount"`
	GiveUpTime           *time.Time         `json:"giveUpTime,omitempty"`
	StatusAt             *time.Time         `json:"statusAt,omitempty"`
	CommandInFlight      bool               `json:"commandInFlight"`
	LastCommandCompleted *time.Time         `json:"lastCommandCompleted,omitempty"`
	Status               model.DeviceStatus `json:"status,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// State returns a copy of the gateway's cache and failure tracking, for
// diagnostics.
func (g *DeviceGateway) State() GatewayState {
	g.lock.Lock()
	defer g.lock.Unlock()

	return GatewayState{
		Online:               g.online,
		FailureCount:         g.failureCount,
		GiveUpTime:           optionalTime(g.giveUpTime),
		StatusAt:             optionalTime(g.statusAt),
		CommandInFlight:      g.commandInFlight,
		LastCommandCompleted: optionalTime(g.lastCommandCompleted),
		Status:               g.status.Clone(),
	}
}
