package cda

import (
	"github.com/google/uuid"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/cda/service"
)

// accessoryNamespace scopes the stable accessory UUIDs derived from remote device IDs.
var accessoryNamespace = uuid.MustParse("6f1c6a4e-43b5-4bde-9a3c-2a4f0f3f1d1e")

// Device is a remote device and the services resolved from its components.
// Services are fixed once the device is added.
type Device struct {
	ID           string
	Label        string
	Name         string
	Manufacturer string
	Components   []model.Component
	Services     []service.Service
	Gateway      *DeviceGateway
}

// AccessoryID is a UUID stable across restarts for the same remote device.
func (d *Device) AccessoryID() uuid.UUID {
	return uuid.NewSHA1(accessoryNamespace, []byte(d.ID))
}

func (d *Device) Description() model.DeviceDescription {
	return model.DeviceDescription{
		ID:           d.ID,
		Label:        d.Label,
		Name:         d.Name,
		Manufacturer: d.Manufacturer,
		Components:   d.Components,
	}
}

// Service returns the first service on a component claiming the capability.
func (d *Device) Service(componentID string, capability string) (service.Service, bool) {
	for _, s := range d.Services {
		if s.ComponentID() != componentID {
			continue
		}

		for _, c := range s.Capabilities() {
			if c == capability {
				return s, true
			}
		}
	}

	return nil, false
}
