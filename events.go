package cda

import "github.com/shimmeringbee/cda/service"

type DeviceAdded struct {
	Device *Device
}

type DeviceOnlineChanged struct {
	Device *Device
	Online bool
}

// CharacteristicUpdate is raised whenever a poll or event produces a new value
// for a service characteristic.
type CharacteristicUpdate struct {
	Device         *Device
	Service        service.Service
	Characteristic string
	Value          any
}

type DeviceRemoved struct {
	Device *Device
}
