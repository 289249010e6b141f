package cda

import (
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/persistence/converter"
	"sort"
	"strconv"
	"time"
)

const (
	stateOnline  = "Online"
	stateOffline = "Offline"
)

func (b *Bridge) sectionRemoveDevice(id string) bool {
	return b.section.Section("Device").SectionDelete(id)
}

func (b *Bridge) sectionForDevice(id string) persistence.Section {
	return b.section.Section("Device", id)
}

func (b *Bridge) deviceListFromPersistence() []string {
	return b.section.Section("Device").SectionKeys()
}

// indexedKeys returns the numeric section keys in ascending order.
func indexedKeys(s persistence.Section) []string {
	type indexed struct {
		key string
		i   int
	}

	var keys []indexed

	for _, k := range s.SectionKeys() {
		if i, err := strconv.Atoi(k); err == nil {
			keys = append(keys, indexed{key: k, i: i})
		}
	}

	sort.Slice(keys, func(a, b int) bool { return keys[a].i < keys[b].i })

	var out []string
	for _, k := range keys {
		out = append(out, k.key)
	}

	return out
}

func (b *Bridge) saveDevice(d *Device) {
	b.saveDescription(model.DeviceDescription{
		ID:           d.ID,
		Label:        d.Label,
		Name:         d.Name,
		Manufacturer: d.Manufacturer,
		Components:   d.Components,
	})
}

func (b *Bridge) saveDescription(d model.DeviceDescription) {
	s := b.sectionForDevice(d.ID)

	s.Set("Label", d.Label)
	s.Set("Name", d.Name)
	s.Set("Manufacturer", d.Manufacturer)

	s.SectionDelete("Component")
	cs := s.Section("Component")

	for i, c := range d.Components {
		ccs := cs.Section(strconv.Itoa(i))
		ccs.Set("ID", c.ID)

		capS := ccs.Section("Capability")
		for j, capability := range c.Capabilities {
			capS.Section(strconv.Itoa(j)).Set("Name", capability)
		}
	}
}

func (b *Bridge) deviceFromPersistence(id string) (model.DeviceDescription, bool) {
	s := b.sectionForDevice(id)

	desc := model.DeviceDescription{ID: id}
	desc.Label, _ = s.String("Label")
	desc.Name, _ = s.String("Name")
	desc.Manufacturer, _ = s.String("Manufacturer")

	cs := s.Section("Component")

	for _, k := range indexedKeys(cs) {
		ccs := cs.Section(k)

		componentID, found := ccs.String("ID")
		if !found {
			continue
		}

		c := model.Component{ID: componentID}

		capS := ccs.Section("Capability")
		for _, ck := range indexedKeys(capS) {
			if name, found := capS.Section(ck).String("Name"); found {
				c.Capabilities = append(c.Capabilities, name)
			}
		}

		desc.Components = append(desc.Components, c)
	}

	return desc, len(desc.Components) > 0
}

func (b *Bridge) saveOnline(id string, online bool, giveUpTime time.Time) {
	s := b.sectionForDevice(id)

	if online {
		s.Set("State", stateOnline)
		return
	}

	s.Set("State", stateOffline)
	converter.Store(s, "GiveUpTime", giveUpTime, converter.TimeEncoder)
}

// persistedGiveUpTime returns when a device was given up on in a previous
// run, if it was offline when last seen.
func (b *Bridge) persistedGiveUpTime(id string) (time.Time, bool) {
	s := b.sectionForDevice(id)

	if state, _ := s.String("State"); state != stateOffline {
		return time.Time{}, false
	}

	return converter.Retrieve(s, "GiveUpTime", converter.TimeDecoder)
}
