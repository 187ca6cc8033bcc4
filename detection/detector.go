// Package detection defines the detector capability contract and the Haar
// cascade adapter behind it.
//
// The pipeline core never evaluates classifier features itself; it talks to a
// Detector, which takes a grayscale frame plus the per-class parameters and
// returns candidate boxes. Implementations must not mutate the input frame and
// must be deterministic for a fixed frame and parameter set. Deduplicating
// overlapping boxes is the detector's business, not the caller's.
package detection

import (
	"errors"
	"fmt"
	"image"

	"curbcam/config"

	"gocv.io/x/gocv"
)

var (
	// ErrModelLoad means a cascade file is missing or unreadable. Surfaced
	// before the pipeline enters its run loop.
	ErrModelLoad = errors.New("detection: model load failed")

	// ErrDetect wraps a failure inside a detect call. Fatal to the pipeline.
	ErrDetect = errors.New("detection: detect failed")
)

// Detection is one candidate bounding box for a single frame. Width and
// height are strictly positive; boxes that are not are dropped at the port
// boundary and never reach the core.
type Detection struct {
	Rect       image.Rectangle
	Class      config.Class
	Confidence float64
}

// Centroid returns the geometric center of the bounding box, the matching key
// for cross-frame association.
func (d Detection) Centroid() image.Point {
	return image.Pt(d.Rect.Min.X+d.Rect.Dx()/2, d.Rect.Min.Y+d.Rect.Dy()/2)
}

// Detector is the capability boundary to the external per-class object
// detector.
type Detector interface {
	// Detect runs one class over a grayscale frame. Zero detections is a
	// normal outcome, not an error.
	Detect(gray gocv.Mat, class config.ClassConfig) ([]Detection, error)

	// Close releases model resources.
	Close() error
}

// sanitize drops degenerate boxes so the w>0, h>0 invariant holds for every
// Detection leaving this package.
func sanitize(rects []image.Rectangle, class config.Class) []Detection {
	out := make([]Detection, 0, len(rects))
	for _, r := range rects {
		if r.Dx() <= 0 || r.Dy() <= 0 {
			continue
		}
		out = append(out, Detection{Rect: r, Class: class})
	}
	return out
}

// loadError builds a consistent ErrModelLoad wrapper naming the failing file.
func loadError(class config.Class, path string, reason string) error {
	return fmt.Errorf("%w: class %s: %s: %s", ErrModelLoad, class, path, reason)
}
