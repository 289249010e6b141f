package cda

import (
	"bytes"
	"context"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/persistence/impl/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

func TestBridge_Snapshot(t *testing.T) {
	t.Run("a written snapshot restores the registry into fresh persistence", func(t *testing.T) {
		giveUp := time.Now().Add(-time.Minute).Truncate(time.Second)

		first := New(context.Background(), &fakeTransport{}, memory.New(), ModePolling)
		defer first.Stop()

		first.saveDevice(&Device{ID: "device-1", Label: "Hallway", Components: []model.Component{{ID: "main", Capabilities: []string{"switch"}}}})
		first.saveOnline("device-1", true, time.Time{})
		first.saveDevice(&Device{ID: "device-2", Components: []model.Component{{ID: "main", Capabilities: []string{"lock"}}}})
		first.saveOnline("device-2", false, giveUp)

		buf := &bytes.Buffer{}
		require.NoError(t, first.WriteSnapshot(buf))

		second := New(context.Background(), &fakeTransport{}, memory.New(), ModePolling)
		defer second.Stop()

		require.NoError(t, second.ReadSnapshot(buf))

		desc, found := second.deviceFromPersistence("device-1")
		require.True(t, found)
		assert.Equal(t, "Hallway", desc.Label)
		assert.Equal(t, []model.Component{{ID: "main", Capabilities: []string{"switch"}}}, desc.Components)

		_, offline := second.persistedGiveUpTime("device-1")
		assert.False(t, offline)

		restored, offline := second.persistedGiveUpTime("device-2")
		assert.True(t, offline)
		assert.True(t, giveUp.Equal(restored))

		assert.Equal(t, 2, second.Load(context.Background()))
	})

	t.Run("an unreadable snapshot is an error", func(t *testing.T) {
		b := New(context.Background(), &fakeTransport{}, memory.New(), ModePolling)
		defer b.Stop()

		assert.Error(t, b.ReadSnapshot(strings.NewReader("{")))
	})
}
