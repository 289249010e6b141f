package cda

import (
	"fmt"
)

type LocalDebugService struct {
	Type            string   `json:"type"`
	ComponentID     string   `json:"componentId"`
	Capabilities    []string `json:"capabilities"`
	Characteristics []string `json:"characteristics"`
}

// LocalDebug is a diagnostic view of one device: its advertised components,
// the services they resolved into, capabilities left unclaimed and the
// gateway's cache and failure state.
type LocalDebug struct {
	DeviceID   string              `json:"deviceId"`
	Label      string              `json:"label"`
	Components map[string][]string `json:"components"`
	Services   []LocalDebugService `json:"services"`
	Unclaimed  map[string][]string `json:"unclaimed,omitempty"`
	Gateway    GatewayState        `json:"gateway"`
	Persisted  bool                `json:"persisted"`
}

func (b *Bridge) LocalDebug(id string) (LocalDebug, error) {
	d, found := b.Device(id)
	if !found {
		return LocalDebug{}, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	debug := LocalDebug{
		DeviceID:   d.ID,
		Label:      d.Label,
		Components: map[string][]string{},
		Services:   []LocalDebugService{},
		Gateway:    d.Gateway.State(),
	}

	claimed := map[string]map[string]struct{}{}

	for _, s := range d.Services {
		debug.Services = append(debug.Services, LocalDebugService{
			Type:            s.Type(),
			ComponentID:     s.ComponentID(),
			Capabilities:    s.Capabilities(),
			Characteristics: s.Characteristics(),
		})

		if claimed[s.ComponentID()] == nil {
			claimed[s.ComponentID()] = map[string]struct{}{}
		}

		for _, c := range s.Capabilities() {
			claimed[s.ComponentID()][c] = struct{}{}
		}
	}

	for _, c := range d.Components {
		debug.Components[c.ID] = c.Capabilities

		for _, capability := range c.Capabilities {
			if _, found := claimed[c.ID][capability]; found {
				continue
			}

			if debug.Unclaimed == nil {
				debug.Unclaimed = map[string][]string{}
			}
			debug.Unclaimed[c.ID] = append(debug.Unclaimed[c.ID], capability)
		}
	}

	_, debug.Persisted = b.deviceFromPersistence(id)

	return debug, nil
}
