package overlay

import (
	"image"
	"testing"

	"curbcam/config"
	"curbcam/detection"
	"curbcam/stats"
	"curbcam/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testConfig(t *testing.T) config.Pipeline {
	t.Helper()
	s, err := config.LoadSettings()
	require.NoError(t, err)
	cfg, err := config.Build(s)
	require.NoError(t, err)
	return cfg
}

func grayFrame(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 100, 100, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func carAt(rect image.Rectangle) tracking.Matched {
	return tracking.Matched{Detection: detection.Detection{Rect: rect, Class: config.ClassCar}}
}

func TestAnnotatePreservesShapeAndType(t *testing.T) {
	r := NewRenderer(testConfig(t))

	frame := grayFrame(240, 320)
	defer frame.Close()

	r.Annotate(&frame, []tracking.Matched{carAt(image.Rect(200, 100, 260, 160))}, nil, stats.Snapshot{})

	assert.Equal(t, 240, frame.Rows())
	assert.Equal(t, 320, frame.Cols())
	assert.Equal(t, gocv.MatTypeCV8UC3, frame.Type())
}

func TestAnnotateEmptyDetections(t *testing.T) {
	r := NewRenderer(testConfig(t))

	frame := grayFrame(240, 320)
	defer frame.Close()

	r.Annotate(&frame, nil, nil, stats.Snapshot{FrameCount: 7})

	assert.Equal(t, 240, frame.Rows())
	assert.Equal(t, 320, frame.Cols())
}

func TestAnnotateTinyFrameDoesNotPanic(t *testing.T) {
	r := NewRenderer(testConfig(t))

	frame := grayFrame(1, 1)
	defer frame.Close()

	r.Annotate(&frame, nil, nil, stats.Snapshot{})

	assert.Equal(t, 1, frame.Rows())
	assert.Equal(t, 1, frame.Cols())
}

// TestCarShadowDrawnBeneathPrimary pins the draw order: the one-unit-offset
// shadow rectangle is painted first, so the primary color wins wherever the
// two overlap and the shadow shows only as a fringe strictly below/right of
// the primary edge.
func TestCarShadowDrawnBeneathPrimary(t *testing.T) {
	r := NewRenderer(testConfig(t))

	// Keep the box well clear of the statistics panel in the top-left corner.
	rect := image.Rect(200, 200, 260, 260)
	frame := grayFrame(400, 400)
	defer frame.Close()

	r.Annotate(&frame, []tracking.Matched{carAt(rect)}, nil, stats.Snapshot{})

	const col = 230 // middle of the top edge

	// The primary path itself is car blue (BGR 255,0,0): the shadow never
	// overdraws it.
	top := frame.GetVecbAt(200, col)
	assert.EqualValues(t, 255, top[0], "primary blue channel on its own path")
	assert.EqualValues(t, 0, top[2], "no shadow red on the primary path")

	// Just beneath, the offset shadow fringe survives in shadow red.
	fringe := false
	for row := 201; row <= 202; row++ {
		px := frame.GetVecbAt(row, col)
		if px[2] == 255 && px[0] == 0 {
			fringe = true
		}
	}
	assert.True(t, fringe, "shadow fringe visible strictly beneath the primary edge")
}

func TestPedestrianHasNoShadow(t *testing.T) {
	r := NewRenderer(testConfig(t))

	rect := image.Rect(200, 200, 260, 320)
	frame := grayFrame(400, 400)
	defer frame.Close()

	r.Annotate(&frame, []tracking.Matched{{
		Detection: detection.Detection{Rect: rect, Class: config.ClassPedestrian},
	}}, nil, stats.Snapshot{})

	// No red shadow fringe anywhere around the top edge.
	for row := 198; row <= 203; row++ {
		px := frame.GetVecbAt(row, 230)
		isShadowRed := px[2] == 255 && px[1] == 0 && px[0] == 0
		assert.Falsef(t, isShadowRed, "shadow red at row %d", row)
	}
}

func TestPanelIsTranslucentBlend(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)

	frame := grayFrame(240, 320)
	defer frame.Close()

	r.Annotate(&frame, nil, nil, stats.Snapshot{})

	// Inside the panel: 0.7 * black + 0.3 * gray(100) = 30.
	inside := frame.GetVecbAt(15, 15)
	assert.InDelta(t, 30, float64(inside[0]), 2)

	// Outside the panel the frame is untouched gray.
	outside := frame.GetVecbAt(235, 315)
	assert.EqualValues(t, 100, outside[0])
}

func TestTrailsDrawnFromHistory(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)

	assoc := tracking.NewAssociator(cfg.MatchDistance, cfg.HistoryWindow)
	assoc.Observe(config.ClassCar, []detection.Detection{{Rect: image.Rect(295, 295, 305, 305), Class: config.ClassCar}}, 1)
	assoc.Observe(config.ClassCar, []detection.Detection{{Rect: image.Rect(335, 295, 345, 305), Class: config.ClassCar}}, 2)

	frame := grayFrame(400, 400)
	defer frame.Close()

	r.Annotate(&frame, nil, assoc.Trails(), stats.Snapshot{})

	// The segment between the two centroids (300,300) → (340,300) is painted
	// in the car color.
	mid := frame.GetVecbAt(300, 320)
	assert.EqualValues(t, 255, mid[0], "trail polyline in class color")
}
