package cda

import (
	"encoding/json"
	"fmt"
	"github.com/shimmeringbee/cda/model"
	"io"
	"time"
)

type snapshotComponent struct {
	ID           string   `json:"id"`
	Capabilities []string `json:"capabilities"`
}

type snapshotDevice struct {
	ID           string              `json:"id"`
	Label        string              `json:"label,omitempty"`
	Name         string              `json:"name,omitempty"`
	Manufacturer string              `json:"manufacturer,omitempty"`
	Components   []snapshotComponent `json:"components"`
	GiveUpTime   *time.Time          `json:"giveUpTime,omitempty"`
}

type snapshot struct {
	Devices []snapshotDevice `json:"devices"`
}

// WriteSnapshot writes the saved device registry, so that it can be restored
// into a fresh persistence section by ReadSnapshot.
func (b *Bridge) WriteSnapshot(w io.Writer) error {
	snap := snapshot{Devices: []snapshotDevice{}}

	for _, id := range b.deviceListFromPersistence() {
		desc, found := b.deviceFromPersistence(id)
		if !found {
			continue
		}

		sd := snapshotDevice{ID: desc.ID, Label: desc.Label, Name: desc.Name, Manufacturer: desc.Manufacturer}

		for _, c := range desc.Components {
			sd.Components = append(sd.Components, snapshotComponent{ID: c.ID, Capabilities: c.Capabilities})
		}

		if t, offline := b.persistedGiveUpTime(id); offline {
			sd.GiveUpTime = &t
		}

		snap.Devices = append(snap.Devices, sd)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ReadSnapshot stores a registry written by WriteSnapshot into persistence,
// ready for Load.
func (b *Bridge) ReadSnapshot(r io.Reader) error {
	var snap snapshot

	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	for _, sd := range snap.Devices {
		if sd.ID == "" {
			continue
		}

		desc := model.DeviceDescription{ID: sd.ID, Label: sd.Label, Name: sd.Name, Manufacturer: sd.Manufacturer}
		for _, c := range sd.Components {
			desc.Components = append(desc.Components, model.Component{ID: c.ID, Capabilities: c.Capabilities})
		}

		b.saveDescription(desc)

		if sd.GiveUpTime != nil {
			b.saveOnline(sd.ID, false, *sd.GiveUpTime)
		} else {
			b.saveOnline(sd.ID, true, time.Time{})
		}
	}

	return nil
}
