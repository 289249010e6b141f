package service

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/logwrap"
	"time"
)

type characteristic struct {
	name string
	get  Getter
	set  Setter
}

type eventMapping struct {
	characteristic string
	convert        func(any) (any, bool)
}

type eventKey struct {
	capability string
	attribute  string
}

// Base carries the behaviour shared by all service variants: characteristic
// registration, status lookups, command dispatch and event mapping. Variants
// embed it and register their characteristics in their constructor.
type Base struct {
	Env Env

	self            Service
	serviceType     string
	characteristics []characteristic
	events          map[eventKey][]eventMapping
}

func NewBase(self Service, serviceType string, env Env) *Base {
	return &Base{
		Env:         env,
		self:        self,
		serviceType: serviceType,
		events:      map[eventKey][]eventMapping{},
	}
}

func (b *Base) Type() string {
	return b.serviceType
}

func (b *Base) ComponentID() string {
	return b.Env.ComponentID
}

func (b *Base) Capabilities() []string {
	return b.Env.Capabilities
}

func (b *Base) HasCapability(c string) bool {
	for _, cp := range b.Env.Capabilities {
		if cp == c {
			return true
		}
	}

	return false
}

func (b *Base) Characteristics() []string {
	names := make([]string, 0, len(b.characteristics))
	for _, c := range b.characteristics {
		names = append(names, c.name)
	}

	return names
}

// AddCharacteristic registers a characteristic, set may be nil for read only.
func (b *Base) AddCharacteristic(name string, get Getter, set Setter) {
	b.characteristics = append(b.characteristics, characteristic{name: name, get: get, set: set})
}

func (b *Base) find(name string) (characteristic, bool) {
	for _, c := range b.characteristics {
		if c.name == name {
			return c, true
		}
	}

	return characteristic{}, false
}

func (b *Base) Get(ctx context.Context, name string) (any, error) {
	c, found := b.find(name)
	if !found || c.get == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharacteristic, name)
	}

	return c.get(ctx)
}

func (b *Base) Set(ctx context.Context, name string, value any) error {
	c, found := b.find(name)
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownCharacteristic, name)
	}

	if c.set == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}

	return c.set(ctx, value)
}

// OnEvent maps a capability attribute to a characteristic. A nil convert
// passes the value through unchanged.
func (b *Base) OnEvent(capability string, attribute string, characteristic string, convert func(any) (any, bool)) {
	k := eventKey{capability: capability, attribute: attribute}
	b.events[k] = append(b.events[k], eventMapping{characteristic: characteristic, convert: convert})
}

func (b *Base) ProcessEvent(ctx context.Context, e model.ShortEvent) {
	mappings, found := b.events[eventKey{capability: e.Capability, attribute: e.Attribute}]
	if !found {
		b.Env.Logger.LogDebug(ctx, "Event has no characteristic mapping.", logwrap.Datum("Capability", e.Capability), logwrap.Datum("Attribute", e.Attribute))
		return
	}

	for _, m := range mappings {
		v := e.Value

		if m.convert != nil {
			cv, ok := m.convert(v)
			if !ok {
				b.Env.Logger.LogWarn(ctx, "Event value could not be converted.", logwrap.Datum("Characteristic", m.characteristic), logwrap.Datum("Value", e.Value))
				continue
			}
			v = cv
		}

		b.Push(ctx, m.characteristic, v)
	}
}

// Push sends a characteristic value to the sink.
func (b *Base) Push(ctx context.Context, characteristic string, value any) {
	if b.Env.Sink != nil {
		b.Env.Sink.Update(ctx, b.self, characteristic, value)
	}
}

// Poll registers periodic refresh of a characteristic and an optional paired
// characteristic. Nothing is registered without a poller or with a zero interval.
func (b *Base) Poll(name string, interval time.Duration, paired string) {
	if b.Env.Poller == nil || interval <= 0 {
		return
	}

	c, found := b.find(name)
	if !found || c.get == nil {
		return
	}

	p := Poll{Characteristic: name, Interval: interval, Get: c.get}

	if paired != "" {
		if pc, found := b.find(paired); found && pc.get != nil {
			p.PairedCharacteristic = paired
			p.PairedGet = pc.get
		}
	}

	b.Env.Poller.Add(b.self, p)
}

// Status returns the component's status, failing if the device is offline,
// the fetch fails or the component is not in the response.
func (b *Base) Status(ctx context.Context) (model.ComponentStatus, error) {
	if !b.Env.Gateway.IsOnline() {
		b.Env.Logger.LogDebug(ctx, "Device is offline.")
		return nil, ErrCommunicationFailure
	}

	ok, ds := b.Env.Gateway.GetStatus(ctx)
	if !ok {
		return nil, ErrCommunicationFailure
	}

	cs, found := ds.Component(b.Env.ComponentID)
	if !found {
		b.Env.Logger.LogWarn(ctx, "Component missing from device status.", logwrap.Datum("ComponentID", b.Env.ComponentID))
		return nil, fmt.Errorf("%w: component %s missing", ErrCommunicationFailure, b.Env.ComponentID)
	}

	return cs, nil
}

// Value returns a single attribute value from the component's status.
func (b *Base) Value(ctx context.Context, capability string, attribute string) (any, error) {
	cs, err := b.Status(ctx)
	if err != nil {
		return nil, err
	}

	v, found := cs.Value(capability, attribute)
	if !found {
		b.Env.Logger.LogWarn(ctx, "Attribute missing from component status.", logwrap.Datum("Capability", capability), logwrap.Datum("Attribute", attribute))
		return nil, fmt.Errorf("%w: %s.%s missing", ErrCommunicationFailure, capability, attribute)
	}

	return v, nil
}

func (b *Base) Float(ctx context.Context, capability string, attribute string) (float64, error) {
	v, err := b.Value(ctx, capability, attribute)
	if err != nil {
		return 0, err
	}

	f, ok := Float(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s not numeric", ErrCommunicationFailure, capability, attribute)
	}

	return f, nil
}

func (b *Base) String(ctx context.Context, capability string, attribute string) (string, error) {
	v, err := b.Value(ctx, capability, attribute)
	if err != nil {
		return "", err
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s.%s not a string", ErrCommunicationFailure, capability, attribute)
	}

	return s, nil
}

// Command sends a single command addressed to this service's component.
func (b *Base) Command(ctx context.Context, capability string, command string, args ...any) error {
	return b.Commands(ctx, model.Command{Capability: capability, Command: command, Arguments: args})
}

func (b *Base) Commands(ctx context.Context, commands ...model.Command) error {
	if len(commands) == 0 {
		return nil
	}

	if !b.Env.Gateway.IsOnline() {
		b.Env.Logger.LogError(ctx, "Device is offline, command not sent.")
		return ErrCommunicationFailure
	}

	for i := range commands {
		commands[i].Component = b.Env.ComponentID
	}

	if !b.Env.Gateway.SendCommands(ctx, commands) {
		b.Env.Logger.LogError(ctx, "Command failed.", logwrap.Datum("Capability", commands[0].Capability), logwrap.Datum("Command", commands[0].Command))
		return ErrCommunicationFailure
	}

	return nil
}
