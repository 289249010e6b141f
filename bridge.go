package cda

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/callbacks"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/cda/rules"
	"github.com/shimmeringbee/cda/service"
	"github.com/shimmeringbee/cda/service/factory"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/shimmeringbee/persistence"
	"sync"
	"time"
)

const DefaultPollInterval = 10 * time.Second
const DefaultSensorPollInterval = 10 * time.Second

const eventBacklog = 100

// Bridge owns the set of remote devices, their gateways and services, and
// the machinery keeping them current: the poller, the event router and
// subscriber callbacks.
type Bridge struct {
	transport Transport
	section   persistence.Section
	mode      Mode
	table     rules.Table
	filter    *rules.Engine
	logger    logwrap.Logger
	metrics   *Metrics

	pollInterval       time.Duration
	sensorPollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	poller    *poller
	router    *router
	callbacks callbacks.AdderCaller
	events    chan any

	devicesLock sync.RWMutex
	devices     map[string]*Device
	order       []string
}

func New(ctx context.Context, transport Transport, section persistence.Section, mode Mode) *Bridge {
	ctx, cancel := context.WithCancel(ctx)

	b := &Bridge{
		transport: transport,
		section:   section,
		mode:      mode,
		table:     rules.Default(),
		logger:    logwrap.New(discard.Discard()),

		pollInterval:       DefaultPollInterval,
		sensorPollInterval: DefaultSensorPollInterval,

		ctx:    ctx,
		cancel: cancel,

		callbacks: callbacks.Create(),
		events:    make(chan any, eventBacklog),
		devices:   map[string]*Device{},
	}

	b.poller = newPoller(mode, b.logger, nil)
	b.router = &router{devices: b, logger: b.logger}

	return b
}

func (b *Bridge) WithRules(t rules.Table) {
	b.table = t
}

// WithFilter installs user exclusions, applied to each component's
// capabilities before resolution.
func (b *Bridge) WithFilter(e *rules.Engine) {
	b.filter = e
}

func (b *Bridge) WithMetrics(m *Metrics) {
	b.metrics = m
	b.poller.metrics = m
	b.router.metrics = m
}

// WithPollIntervals sets the refresh interval for actuators and for read
// only sensors. Zero disables the respective polling.
func (b *Bridge) WithPollIntervals(actuator time.Duration, sensor time.Duration) {
	b.pollInterval = actuator
	b.sensorPollInterval = sensor
}

func (b *Bridge) Mode() Mode {
	return b.mode
}

func (b *Bridge) Start() error {
	b.poller.Start()
	return nil
}

func (b *Bridge) Stop() error {
	b.poller.Stop()
	b.cancel()
	return nil
}

// Router is the destination for push events from an ingress.
func (b *Bridge) Router() EventRouter {
	return b.router
}

// Callbacks allows subscription to DeviceAdded, DeviceRemoved,
// DeviceOnlineChanged and CharacteristicUpdate as they happen.
func (b *Bridge) Callbacks() callbacks.Adder {
	return b.callbacks
}

func (b *Bridge) Device(id string) (*Device, bool) {
	b.devicesLock.RLock()
	defer b.devicesLock.RUnlock()

	d, found := b.devices[id]
	return d, found
}

// Devices returns devices in the order they were added.
func (b *Bridge) Devices() []*Device {
	b.devicesLock.RLock()
	defer b.devicesLock.RUnlock()

	devices := make([]*Device, 0, len(b.order))
	for _, id := range b.order {
		devices = append(devices, b.devices[id])
	}

	return devices
}

// AddDevice resolves each component's capabilities into services and starts
// tracking the device. Adding a known device returns the existing one.
func (b *Bridge) AddDevice(ctx context.Context, desc model.DeviceDescription) (*Device, error) {
	return b.addDevice(ctx, desc, time.Time{})
}

func (b *Bridge) addDevice(pctx context.Context, desc model.DeviceDescription, giveUpTime time.Time) (*Device, error) {
	if desc.ID == "" {
		return nil, fmt.Errorf("%w: device without identifier", ErrMalformedResponse)
	}

	if d, found := b.Device(desc.ID); found {
		return d, nil
	}

	ctx, end := b.logger.Segment(pctx, "Adding device.", logwrap.Datum("DeviceID", desc.ID), logwrap.Datum("Label", desc.Label))
	defer end()

	var componentIDs []string
	for _, c := range desc.Components {
		componentIDs = append(componentIDs, c.ID)
	}

	d := &Device{
		ID:           desc.ID,
		Label:        desc.Label,
		Name:         desc.Name,
		Manufacturer: desc.Manufacturer,
		Components:   desc.Components,
	}

	g := NewDeviceGateway(desc.ID, componentIDs, b.transport, b.logger)
	g.metrics = b.metrics
	g.onlineChange = func(ctx context.Context, _ *DeviceGateway, online bool) {
		b.onlineChanged(ctx, d, online)
	}
	d.Gateway = g

	if !giveUpTime.IsZero() {
		g.restoreOffline(giveUpTime)
	}

	sink := &deviceSink{bridge: b, device: d}
	dp := &devicePoller{poller: b.poller, gateway: g, sink: sink, logger: b.logger}

	input := rules.InputDevice{ID: desc.ID, Label: desc.Label, Name: desc.Name, Manufacturer: desc.Manufacturer}

	for _, c := range desc.Components {
		capabilities := b.filter.Filter(input, c.ID, c.Capabilities)

		for _, r := range b.table.Resolve(capabilities) {
			s, err := factory.Create(r.ServiceType, service.Env{
				Gateway:            g,
				ComponentID:        c.ID,
				Capabilities:       r.Capabilities,
				Poller:             dp,
				Sink:               sink,
				Logger:             b.logger,
				PollInterval:       b.pollInterval,
				SensorPollInterval: b.sensorPollInterval,
			})
			if err != nil {
				b.logger.LogWarn(ctx, "Could not construct service.", logwrap.Err(err), logwrap.Datum("ServiceType", r.ServiceType))
				continue
			}

			b.logger.LogInfo(ctx, "Constructed service.", logwrap.Datum("ComponentID", c.ID), logwrap.Datum("ServiceType", r.ServiceType), logwrap.Datum("Capabilities", r.Capabilities))
			d.Services = append(d.Services, s)
		}
	}

	if len(d.Services) == 0 {
		b.logger.LogWarn(ctx, "Device has no supported capabilities, not adding.")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDevice, desc.ID)
	}

	b.devicesLock.Lock()
	if existing, found := b.devices[desc.ID]; found {
		b.devicesLock.Unlock()
		g.Remove()
		return existing, nil
	}
	b.devices[desc.ID] = d
	b.order = append(b.order, desc.ID)
	b.devicesLock.Unlock()

	if dp.scheduled == 0 {
		b.poller.ScheduleRecovery(g, RecoveryInterval)
	}

	b.saveDevice(d)

	if giveUpTime.IsZero() {
		go g.Probe(b.ctx)
	}

	b.raise(ctx, DeviceAdded{Device: d})

	return d, nil
}

func (b *Bridge) onlineChanged(ctx context.Context, d *Device, online bool) {
	b.saveOnline(d.ID, online, d.Gateway.GiveUpTime())
	b.raise(ctx, DeviceOnlineChanged{Device: d, Online: online})
}

func (b *Bridge) raise(ctx context.Context, e any) {
	if err := b.callbacks.Call(ctx, e); err != nil {
		b.logger.LogWarn(ctx, "Callback failed.", logwrap.Err(err))
	}

	b.sendEvent(ctx, e)
}

func (b *Bridge) sendEvent(ctx context.Context, e any) {
	select {
	case b.events <- e:
	default:
		b.logger.LogWarn(ctx, "Event dropped, channel buffer full.", logwrap.Datum("Event", fmt.Sprintf("%T", e)))
	}
}

func (b *Bridge) ReadEvent(ctx context.Context) (any, error) {
	select {
	case e := <-b.events:
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deviceSink raises characteristic updates for one device.
type deviceSink struct {
	bridge *Bridge
	device *Device
}

func (s *deviceSink) Update(ctx context.Context, svc service.Service, characteristic string, value any) {
	s.bridge.raise(ctx, CharacteristicUpdate{Device: s.device, Service: svc, Characteristic: characteristic, Value: value})
}

var _ service.Sink = (*deviceSink)(nil)
