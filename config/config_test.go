package config

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, "peds_and_cars.mp4", s.Source)
	assert.Equal(t, "cars.xml", s.CarCascade)
	assert.Equal(t, "mp4v", s.Codec)
	assert.Equal(t, 30.0, s.FallbackFPS)
	assert.Equal(t, 100.0, s.MatchDistance)
	assert.Equal(t, 30, s.HistoryWindow)
	assert.Equal(t, 10, s.TimingWindow)
	assert.Equal(t, 0.7, s.OverlayAlpha)
}

func TestLoadSettingsEnvOverride(t *testing.T) {
	t.Setenv("CURBCAM_MATCH_DISTANCE", "55")
	t.Setenv("CURBCAM_LOG_LEVEL", "debug")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, 55.0, s.MatchDistance)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestBuildClassTable(t *testing.T) {
	s, err := LoadSettings()
	require.NoError(t, err)

	cfg, err := Build(s)
	require.NoError(t, err)
	require.Len(t, cfg.Classes, 2)

	car, ok := cfg.ClassFor(ClassCar)
	require.True(t, ok)
	assert.Equal(t, 1.1, car.ScaleFactor)
	assert.Equal(t, 3, car.MinNeighbors)
	assert.Equal(t, image.Pt(30, 30), car.MinSize)
	assert.True(t, car.Shadow)

	ped, ok := cfg.ClassFor(ClassPedestrian)
	require.True(t, ok)
	assert.Equal(t, 5, ped.MinNeighbors)
	assert.Equal(t, image.Pt(40, 80), ped.MinSize)
	assert.False(t, ped.Shadow)

	_, ok = cfg.ClassFor(Class("bicycle"))
	assert.False(t, ok, "class set is closed per pipeline instance")
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Pipeline {
		s, err := LoadSettings()
		require.NoError(t, err)
		cfg, err := Build(s)
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Classes[0].ScaleFactor = 1.0
	assert.Error(t, cfg.Validate(), "scale factor must exceed 1.0")

	cfg = base()
	cfg.Classes[0].MinNeighbors = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.MatchDistance = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.OverlayAlpha = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.HistoryWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.FallbackFPS = 0
	assert.Error(t, cfg.Validate())
}
