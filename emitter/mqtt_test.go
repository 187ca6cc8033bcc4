package emitter

import (
	"encoding/json"
	"testing"
	"time"

	"curbcam/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPayloadShape(t *testing.T) {
	ev := Event{
		RunID:     "run-1",
		Seq:       42,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Counts: map[config.Class]int{
			config.ClassCar:        2,
			config.ClassPedestrian: 1,
		},
		Tracks: 3,
	}

	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "run-1", decoded["run_id"])
	assert.EqualValues(t, 42, decoded["seq"])
	assert.EqualValues(t, 3, decoded["active_tracks"])

	counts, ok := decoded["counts"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, counts["car"])
	assert.EqualValues(t, 1, counts["pedestrian"])
}
