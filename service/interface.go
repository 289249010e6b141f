package service

import (
	"context"
	"errors"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/logwrap"
	"time"
)

// ErrCommunicationFailure is the only failure surfaced to users of a service,
// raised when the device is offline or a status fetch or command failed.
var ErrCommunicationFailure = errors.New("service communication failure")

var ErrUnknownCharacteristic = errors.New("unknown characteristic")
var ErrReadOnly = errors.New("characteristic is read only")
var ErrInvalidValue = errors.New("invalid characteristic value")

const (
	TypeSwitch                      = "Switch"
	TypeLight                       = "Light"
	TypeFanSpeed                    = "FanSpeed"
	TypeFanSwitchLevel              = "FanSwitchLevel"
	TypeThermostat                  = "Thermostat"
	TypeAirConditioner              = "AirConditioner"
	TypeAirQuality                  = "AirQuality"
	TypeWindowCovering              = "WindowCovering"
	TypeValve                       = "Valve"
	TypeLock                        = "Lock"
	TypeDoor                        = "Door"
	TypeMotion                      = "Motion"
	TypeLeakDetector                = "LeakDetector"
	TypeSmokeDetector               = "SmokeDetector"
	TypeCarbonMonoxideDetector      = "CarbonMonoxideDetector"
	TypeOccupancy                   = "Occupancy"
	TypeTemperature                 = "Temperature"
	TypeHumidity                    = "Humidity"
	TypeLightSensor                 = "LightSensor"
	TypeContactSensor               = "ContactSensor"
	TypeStatelessProgrammableSwitch = "StatelessProgrammableSwitch"
	TypeBattery                     = "Battery"
)

// Service is a typed grouping of capabilities from one component, exposing
// named characteristics.
type Service interface {
	Type() string
	ComponentID() string
	Capabilities() []string
	Characteristics() []string
	Get(context.Context, string) (any, error)
	Set(context.Context, string, any) error
	// ProcessEvent applies a push notification. It must not perform network I/O.
	ProcessEvent(context.Context, model.ShortEvent)
}

// Gateway is the per device view a service has of the remote device.
type Gateway interface {
	DeviceID() string
	IsOnline() bool
	GetStatus(context.Context) (bool, model.DeviceStatus)
	SendCommands(context.Context, []model.Command) bool
}

type Getter func(context.Context) (any, error)
type Setter func(context.Context, any) error

// Poll describes a periodic refresh of one characteristic, optionally paired
// with a second characteristic refreshed on the same tick.
type Poll struct {
	Characteristic       string
	Interval             time.Duration
	Get                  Getter
	PairedCharacteristic string
	PairedGet            Getter
}

type Poller interface {
	Add(Service, Poll)
}

// Sink receives characteristic values produced by polling or events.
type Sink interface {
	Update(context.Context, Service, string, any)
}

type Env struct {
	Gateway      Gateway
	ComponentID  string
	Capabilities []string
	Poller       Poller
	Sink         Sink
	Logger       logwrap.Logger

	// PollInterval applies to actuators, SensorPollInterval to read only
	// services. Zero disables polling.
	PollInterval       time.Duration
	SensorPollInterval time.Duration
}
