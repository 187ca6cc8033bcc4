// Package pipeline drives the per-tick orchestration: read, detect,
// associate, aggregate, draw, write, poll. A single goroutine owns the loop,
// so statistics and track history are deterministic given a deterministic
// detector.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"curbcam/command"
	"curbcam/config"
	"curbcam/detection"
	"curbcam/metrics"
	"curbcam/overlay"
	"curbcam/stats"
	"curbcam/tracking"
	"curbcam/video"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// State is the controller lifecycle. Terminated is absorbing.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Screenshotter writes one still image artifact. The default is gocv.IMWrite.
type Screenshotter func(path string, img gocv.Mat) bool

// Deps are the collaborators the controller composes. Source and Detector are
// required; Sink, Poller, hooks and observers are optional.
type Deps struct {
	Source      video.Source
	Sink        video.Sink
	Detector    detection.Detector
	Associator  *tracking.Associator
	Stats       *stats.Aggregator
	Renderer    *overlay.Renderer
	Interpreter *command.Interpreter
	Poller      command.Poller
	Hooks       []Hook

	// FrameObservers receive each annotated frame after overlay composition,
	// best effort. Used for the MJPEG preview.
	FrameObservers []func(gocv.Mat)

	// EventObservers receive each tick's detection summary, best effort.
	// Used for the MQTT emitter.
	EventObservers []func(Tick)

	Screenshot Screenshotter
	Log        *zap.Logger
}

// Controller owns the FrameSource and OutputSink handles exclusively and
// guarantees they are released exactly once on every exit path.
type Controller struct {
	cfg  config.Pipeline
	deps Deps

	state       atomic.Int32
	releaseOnce sync.Once
}

// NewController wires a controller in the Idle state. The source (and sink,
// when configured) must already be open; a failed open means this constructor
// is never reached and the controller never leaves Idle.
func NewController(cfg config.Pipeline, deps Deps) *Controller {
	if deps.Poller == nil {
		deps.Poller = command.NopPoller{}
	}
	if deps.Interpreter == nil {
		deps.Interpreter = command.NewInterpreter()
	}
	if deps.Screenshot == nil {
		deps.Screenshot = gocv.IMWrite
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Controller{cfg: cfg, deps: deps}
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Run processes frames until end of stream, a quit command, cancellation, or
// an unrecoverable error. It returns nil on a clean drain and the surfaced
// error otherwise. Resources are released exactly once regardless of path.
func (c *Controller) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("pipeline: run from state %s", c.State())
	}
	c.deps.Log.Info("pipeline running",
		zap.Int("width", c.deps.Source.Width()),
		zap.Int("height", c.deps.Source.Height()),
		zap.Float64("fps", c.deps.Source.FPS()))

	for {
		// Cancellation is observed at the top of each tick and funnels
		// through the same drain path as a quit command, so no partial-frame
		// state is ever persisted.
		select {
		case <-ctx.Done():
			c.deps.Log.Info("interrupt observed, draining")
			return c.drain()
		default:
		}

		frame, err := c.deps.Source.Read()
		if errors.Is(err, video.ErrEndOfStream) {
			c.deps.Log.Info("end of stream, draining")
			return c.drain()
		}
		if err != nil {
			return c.terminate(fmt.Errorf("pipeline: read: %w", err))
		}

		quit, err := c.tick(&frame)
		frame.Close()
		if err != nil {
			return c.terminate(err)
		}
		if quit {
			c.deps.Log.Info("quit requested, draining")
			return c.drain()
		}
	}
}

// tick runs one frame through detect → associate → aggregate → draw → write →
// poll. It reports whether a quit action was applied.
func (c *Controller) tick(frame *video.Frame) (bool, error) {
	start := time.Now()

	c.deps.Stats.IncrementFrame()
	metrics.FramesProcessedTotal.Inc()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame.Mat, &gray, gocv.ColorBGRToGray)

	matched := make([]tracking.Matched, 0, 8)
	for _, class := range c.cfg.Classes {
		dets, err := c.deps.Detector.Detect(gray, class)
		if err != nil {
			return false, fmt.Errorf("pipeline: detect %s on frame %d: %w", class.Tag, frame.Seq, err)
		}
		c.deps.Stats.Increment(class.Tag, len(dets))
		metrics.DetectionsTotal.WithLabelValues(string(class.Tag)).Add(float64(len(dets)))
		matched = append(matched, c.deps.Associator.Observe(class.Tag, dets, frame.Seq)...)
	}
	metrics.ActiveTracks.Set(float64(c.deps.Associator.ActiveCount()))

	// Timing lands before the snapshot so the overlay reflects statistics
	// accumulated strictly up to and including this frame.
	c.deps.Stats.RecordTiming(time.Since(start))
	snap := c.deps.Stats.Snapshot()

	tick := Tick{Frame: frame, Matched: matched, Snapshot: snap}
	for _, h := range c.deps.Hooks {
		h.BeforeOverlay(&tick)
	}

	c.deps.Renderer.Annotate(&frame.Mat, matched, c.deps.Associator.Trails(), snap)

	for _, h := range c.deps.Hooks {
		h.AfterOverlay(&tick)
	}

	if c.deps.Sink != nil {
		if err := c.deps.Sink.Write(*frame); err != nil {
			return false, fmt.Errorf("pipeline: sink: %w", err)
		}
		metrics.FramesWrittenTotal.Inc()
	}

	for _, observe := range c.deps.FrameObservers {
		observe(frame.Mat)
	}
	for _, observe := range c.deps.EventObservers {
		observe(tick)
	}

	metrics.FrameDuration.Observe(time.Since(start).Seconds())

	return c.applyAction(frame), nil
}

// applyAction polls for input and applies the resulting action. Quit is the
// only action that changes state.
func (c *Controller) applyAction(frame *video.Frame) bool {
	action := c.deps.Interpreter.Interpret(c.deps.Poller.Poll())
	switch action {
	case command.ActionQuit:
		return true
	case command.ActionSaveScreenshot:
		c.saveScreenshot(frame)
	case command.ActionResetStats:
		c.deps.Stats.Reset()
		c.deps.Log.Info("statistics reset")
	}
	return false
}

// saveScreenshot writes the current annotated frame under a name derived from
// its sequence number. Failure is logged, never fatal.
func (c *Controller) saveScreenshot(frame *video.Frame) {
	path := filepath.Join(c.cfg.OutputDir, fmt.Sprintf("screenshot_frame_%d.jpg", frame.Seq))
	if !c.deps.Screenshot(path, frame.Mat) {
		c.deps.Log.Warn("screenshot write failed", zap.String("path", path))
		return
	}
	c.deps.Log.Info("screenshot saved", zap.String("path", path))
}

// drain flushes and releases everything, then parks in Terminated.
func (c *Controller) drain() error {
	c.state.Store(int32(StateDraining))
	c.release()
	c.state.Store(int32(StateTerminated))
	return nil
}

// terminate surfaces an unrecoverable error. Resources are still released
// exactly once.
func (c *Controller) terminate(err error) error {
	c.release()
	c.state.Store(int32(StateTerminated))
	c.deps.Log.Error("pipeline terminated", zap.Error(err))
	return err
}

// release closes the sink and source and logs the final run summary. Guarded
// so every exit path releases exactly once.
func (c *Controller) release() {
	c.releaseOnce.Do(func() {
		if c.deps.Sink != nil {
			if err := c.deps.Sink.Close(); err != nil {
				c.deps.Log.Warn("sink close", zap.Error(err))
			} else {
				c.deps.Log.Info("output flushed", zap.Int64("frames_written", c.deps.Sink.Written()))
			}
		}
		if err := c.deps.Source.Close(); err != nil {
			c.deps.Log.Warn("source close", zap.Error(err))
		}

		snap := c.deps.Stats.Snapshot()
		fields := []zap.Field{zap.Int64("frames", snap.FrameCount)}
		for class, total := range snap.Totals {
			fields = append(fields, zap.Int64("total_"+string(class), total))
		}
		if snap.HasTiming {
			fields = append(fields, zap.Duration("avg_frame", snap.AvgProcessing))
		}
		c.deps.Log.Info("processing completed", fields...)
	})
}
