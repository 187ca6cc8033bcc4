// Package preview serves annotated frames as an MJPEG stream over HTTP,
// standing in for a local display window.
package preview

import (
	"fmt"
	"net/http"

	"github.com/hybridgroup/mjpeg"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Stream pushes JPEG-encoded frames to connected HTTP clients.
type Stream struct {
	stream *mjpeg.Stream
	srv    *http.Server
	log    *zap.Logger
}

// Start serves the preview on /stream at the given port. A port of zero
// disables the preview.
func Start(port int, log *zap.Logger) *Stream {
	if port == 0 {
		return nil
	}

	s := &Stream{
		stream: mjpeg.NewStream(),
		log:    log,
	}

	mux := http.NewServeMux()
	mux.Handle("/stream", s.stream)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Info("preview stream starting", zap.Int("port", port), zap.String("path", "/stream"))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("preview server error", zap.Error(err))
		}
	}()

	return s
}

// Update encodes the frame and pushes it to every connected client. Encoding
// failures are logged and dropped; the preview never stalls the pipeline.
func (s *Stream) Update(frame gocv.Mat) {
	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		s.log.Warn("encode preview frame", zap.Error(err))
		return
	}
	defer buf.Close()
	s.stream.UpdateJPEG(buf.GetBytes())
}

// Server returns the underlying HTTP server for shutdown.
func (s *Stream) Server() *http.Server { return s.srv }
