// Package video adapts capture devices and files to the pipeline's frame
// source and output sink contracts, on top of gocv.
package video

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceUnavailable means the device or file could not be opened.
	ErrSourceUnavailable = errors.New("video: source unavailable")

	// ErrEndOfStream is the clean end of a file source. Live sources never
	// return it.
	ErrEndOfStream = errors.New("video: end of stream")

	// ErrStreamRead is a mid-stream read failure distinct from a clean end.
	ErrStreamRead = errors.New("video: stream read failed")
)

// Frame is one decoded image plus its position in the stream. The pipeline
// controller owns a Frame for exactly one tick and must Close it afterwards.
type Frame struct {
	Mat       gocv.Mat
	Seq       int64
	Timestamp time.Time
}

// Close releases the underlying pixel buffer. Safe on the zero value.
func (f *Frame) Close() {
	f.Mat.Close()
}

// Source abstracts a capture device or file as a sequence of frames.
type Source interface {
	// Read returns the next frame, ErrEndOfStream on a clean file end, or
	// ErrStreamRead on failure.
	Read() (Frame, error)
	Width() int
	Height() int
	// FPS reports the declared frame rate; the configured fallback is
	// substituted when the source reports zero.
	FPS() float64
	Close() error
}

// CaptureSource reads frames from a gocv VideoCapture.
type CaptureSource struct {
	capture *gocv.VideoCapture
	live    bool
	seq     int64
	width   int
	height  int
	fps     float64
	closed  bool
}

// Open opens a capture source. A source string that parses as an integer is
// treated as a live camera index; anything else is a file or stream path.
// The declared fps falls back to fallbackFPS when the source reports zero,
// which webcams commonly do.
func Open(source string, fallbackFPS float64) (*CaptureSource, error) {
	var (
		capture *gocv.VideoCapture
		err     error
		live    bool
	)

	if idx, convErr := strconv.Atoi(source); convErr == nil {
		capture, err = gocv.OpenVideoCapture(idx)
		live = true
	} else {
		capture, err = gocv.VideoCaptureFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, source)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = fallbackFPS
	}

	return &CaptureSource{
		capture: capture,
		live:    live,
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
		fps:     fps,
	}, nil
}

// Read pulls the next frame. File sources signal ErrEndOfStream when the
// container runs out; a read that succeeds but yields an empty buffer is a
// mid-stream failure for both kinds.
func (s *CaptureSource) Read() (Frame, error) {
	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		if s.live {
			return Frame{}, ErrStreamRead
		}
		return Frame{}, ErrEndOfStream
	}
	if mat.Empty() {
		mat.Close()
		return Frame{}, fmt.Errorf("%w: empty frame", ErrStreamRead)
	}

	s.seq++
	return Frame{Mat: mat, Seq: s.seq, Timestamp: time.Now()}, nil
}

func (s *CaptureSource) Width() int   { return s.width }
func (s *CaptureSource) Height() int  { return s.height }
func (s *CaptureSource) FPS() float64 { return s.fps }

// Close releases the capture handle. Safe to call more than once.
func (s *CaptureSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.capture.Close()
}
