package pipeline

import (
	"curbcam/stats"
	"curbcam/tracking"
	"curbcam/video"
)

// Tick is the per-frame context handed to hooks and event observers.
type Tick struct {
	Frame    *video.Frame
	Matched  []tracking.Matched
	Snapshot stats.Snapshot
}

// Hook lets callers extend a tick without subclassing the controller:
// BeforeOverlay sees the raw frame plus this tick's associations, and
// AfterOverlay sees the annotated frame before it is written. Hooks run on
// the pipeline goroutine and must not retain the frame past the call.
type Hook interface {
	BeforeOverlay(t *Tick)
	AfterOverlay(t *Tick)
}

// HookFuncs adapts plain functions to the Hook interface. Nil fields are
// skipped.
type HookFuncs struct {
	Before func(t *Tick)
	After  func(t *Tick)
}

func (h HookFuncs) BeforeOverlay(t *Tick) {
	if h.Before != nil {
		h.Before(t)
	}
}

func (h HookFuncs) AfterOverlay(t *Tick) {
	if h.After != nil {
		h.After(t)
	}
}
