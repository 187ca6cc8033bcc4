package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Sink writes annotated frames to an output artifact.
type Sink interface {
	Write(frame Frame) error
	// Close flushes and releases the artifact. Must be idempotent.
	Close() error
	// Written reports how many frames the sink has accepted.
	Written() int64
}

// FileSink muxes frames into a video container through a gocv VideoWriter.
type FileSink struct {
	writer  *gocv.VideoWriter
	path    string
	written int64
	closed  bool
}

// NewFileSink opens a video writer with the given fourcc codec, frame rate,
// and frame size.
func NewFileSink(path, codec string, fps float64, width, height int) (*FileSink, error) {
	writer, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("video: open writer %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video: writer %s: codec %q not available", path, codec)
	}
	return &FileSink{writer: writer, path: path}, nil
}

// Write muxes one frame.
func (s *FileSink) Write(frame Frame) error {
	if err := s.writer.Write(frame.Mat); err != nil {
		return fmt.Errorf("video: write frame %d to %s: %w", frame.Seq, s.path, err)
	}
	s.written++
	return nil
}

// Close releases the writer. Safe to call more than once.
func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}

// Written reports the number of frames muxed so far.
func (s *FileSink) Written() int64 { return s.written }
