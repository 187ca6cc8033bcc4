// Package overlay composes the annotation layer: class-colored boxes, track
// trails, and the translucent statistics/controls panel.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"curbcam/config"
	"curbcam/stats"
	"curbcam/tracking"

	"gocv.io/x/gocv"
)

const (
	boxThickness   = 2
	labelScale     = 0.6
	panelTextScale = 0.5
	panelLineStep  = 20
	panelWidth     = 250
	shadowOffset   = 1 // cosmetic cue on shadowed classes, no semantic meaning
)

// Renderer draws annotations onto frames in place.
type Renderer struct {
	cfg config.Pipeline

	panelColor color.RGBA
	textColor  color.RGBA
}

// NewRenderer builds a renderer for one pipeline configuration.
func NewRenderer(cfg config.Pipeline) *Renderer {
	return &Renderer{
		cfg: cfg,
		// Black panel background, white text.
		panelColor: color.RGBA{A: 255},
		textColor:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Annotate mutates frame in place and leaves its dimensions and pixel type
// untouched. The caller owns the result. Shadowed classes get their offset
// shadow rectangle drawn strictly before the primary one, so the primary wins
// wherever they overlap.
func (r *Renderer) Annotate(frame *gocv.Mat, matched []tracking.Matched, trails []*tracking.Track, snap stats.Snapshot) {
	r.drawTrails(frame, trails)

	for _, m := range matched {
		class, ok := r.cfg.ClassFor(m.Detection.Class)
		if !ok {
			continue
		}
		r.drawDetection(frame, m.Detection.Rect, class)
	}

	r.drawPanel(frame, matched, snap)
}

func (r *Renderer) drawDetection(frame *gocv.Mat, rect image.Rectangle, class config.ClassConfig) {
	if class.Shadow {
		shadow := rect.Add(image.Pt(shadowOffset, shadowOffset))
		shadow.Max = rect.Max // original cue: only the top-left corner shifts
		gocv.Rectangle(frame, shadow, class.ShadowColor, boxThickness)
	}
	gocv.Rectangle(frame, rect, class.Color, boxThickness)

	labelPos := image.Pt(rect.Min.X, rect.Min.Y-10)
	if labelPos.Y < 10 {
		labelPos.Y = rect.Min.Y + 15
	}
	gocv.PutText(frame, labelTitle(class.Tag), labelPos, gocv.FontHersheySimplex, labelScale, class.Color, boxThickness)
}

// drawTrails draws each track's centroid history as a polyline so motion is
// visible across ticks.
func (r *Renderer) drawTrails(frame *gocv.Mat, trails []*tracking.Track) {
	for _, t := range trails {
		class, ok := r.cfg.ClassFor(t.Class)
		if !ok {
			continue
		}
		points := t.Trail()
		for i := 1; i < len(points); i++ {
			gocv.Line(frame, points[i-1], points[i], class.Color, 1)
		}
	}
}

func (r *Renderer) drawPanel(frame *gocv.Mat, matched []tracking.Matched, snap stats.Snapshot) {
	live := make(map[config.Class]int)
	for _, m := range matched {
		live[m.Detection.Class]++
	}

	lines := []string{
		fmt.Sprintf("Frame: %d", snap.FrameCount),
	}
	for _, class := range r.cfg.Classes {
		lines = append(lines, fmt.Sprintf("%ss: %d (total %d)",
			labelTitle(class.Tag), live[class.Tag], snap.Totals[class.Tag]))
	}
	if snap.HasTiming {
		lines = append(lines, fmt.Sprintf("Avg frame: %.1fms", snap.AvgProcessing.Seconds()*1000))
	}
	lines = append(lines,
		"",
		"Controls:",
		"K/Q - Quit",
		"S - Save screenshot",
		"R - Reset statistics",
	)

	panel := image.Rect(10, 10, panelWidth, 20+panelLineStep*len(lines))
	panel = panel.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if panel.Empty() {
		return
	}

	// Translucent background: weighted blend of a painted copy over the frame.
	blended := frame.Clone()
	defer blended.Close()
	gocv.Rectangle(&blended, panel, r.panelColor, -1)
	gocv.AddWeighted(blended, r.cfg.OverlayAlpha, *frame, 1-r.cfg.OverlayAlpha, 0, frame)

	y := 30
	for _, line := range lines {
		if line != "" {
			gocv.PutText(frame, line, image.Pt(20, y), gocv.FontHersheySimplex, panelTextScale, r.textColor, 1)
		}
		y += panelLineStep
	}
}

func labelTitle(tag config.Class) string {
	s := string(tag)
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
