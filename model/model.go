package model

// Attribute is a single reported value within a capability.
type Attribute struct {
	Value     any    `json:"value"`
	Unit      string `json:"unit,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ComponentStatus is keyed by capability then attribute.
type ComponentStatus map[string]map[string]Attribute

func (s ComponentStatus) Value(capability string, attribute string) (any, bool) {
	if s == nil {
		return nil, false
	}

	attrs, found := s[capability]
	if !found {
		return nil, false
	}

	a, found := attrs[attribute]
	if !found || a.Value == nil {
		return nil, false
	}

	return a.Value, true
}

func (s ComponentStatus) Has(capability string) bool {
	_, found := s[capability]
	return found
}

func (s ComponentStatus) Set(capability string, attribute string, value any) {
	attrs := s[capability]
	if attrs == nil {
		attrs = map[string]Attribute{}
		s[capability] = attrs
	}

	a := attrs[attribute]
	a.Value = value
	attrs[attribute] = a
}

// DeviceStatus is keyed by component ID.
type DeviceStatus map[string]ComponentStatus

func (d DeviceStatus) Component(id string) (ComponentStatus, bool) {
	cs, found := d[id]
	return cs, found
}

func (d DeviceStatus) Clone() DeviceStatus {
	if d == nil {
		return nil
	}

	out := make(DeviceStatus, len(d))

	for cID, cs := range d {
		ncs := make(ComponentStatus, len(cs))

		for capName, attrs := range cs {
			nattrs := make(map[string]Attribute, len(attrs))
			for k, v := range attrs {
				nattrs[k] = v
			}
			ncs[capName] = nattrs
		}

		out[cID] = ncs
	}

	return out
}

type Component struct {
	ID           string
	Capabilities []string
}

func (c Component) HasCapability(capability string) bool {
	for _, cp := range c.Capabilities {
		if cp == capability {
			return true
		}
	}

	return false
}

type Command struct {
	Component  string `json:"component,omitempty"`
	Capability string `json:"capability"`
	Command    string `json:"command"`
	Arguments  []any  `json:"arguments,omitempty"`
}

// ShortEvent is the normalised push notification delivered by either ingress.
type ShortEvent struct {
	DeviceID    string `json:"deviceId"`
	ComponentID string `json:"componentId"`
	Capability  string `json:"capability"`
	Attribute   string `json:"attribute"`
	Value       any    `json:"value"`
}

const HealthOnline = "ONLINE"

type Health struct {
	State string `json:"state"`
}

func (h Health) Online() bool {
	return h.State == HealthOnline
}

// DeviceDescription is a device as listed by the remote API.
type DeviceDescription struct {
	ID           string
	Label        string
	Name         string
	Manufacturer string
	Components   []Component
}
