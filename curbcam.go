// curbcam detects and tracks cars and pedestrians in a video stream, draws an
// annotated overlay, and optionally muxes the result to an output video.
//
// The heavy lifting lives in the pipeline package; this file is the thin CLI:
// flags, wiring, signal handling, and exit codes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"curbcam/command"
	"curbcam/config"
	"curbcam/detection"
	"curbcam/emitter"
	"curbcam/metrics"
	"curbcam/overlay"
	"curbcam/pipeline"
	"curbcam/pkg/logger"
	"curbcam/preview"
	"curbcam/stats"
	"curbcam/tracking"
	"curbcam/video"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	videoPath         = flag.String("video", "", "Path to the input video file (default: peds_and_cars.mp4)")
	useCamera         = flag.Bool("camera", false, "Use the default webcam instead of a video file")
	cameraIndex       = flag.Int("camera-index", 0, "Camera device index when -camera is set")
	outputPath        = flag.String("output", "", "Path to save the annotated output video (omit to disable)")
	carCascade        = flag.String("car-cascade", "", "Path to the car cascade file (default: cars.xml)")
	pedestrianCascade = flag.String("pedestrian-cascade", "", "Path to the pedestrian cascade file (default: haarcascade_fullbody.xml)")
	metricsPort       = flag.Int("metrics-port", 0, "Serve Prometheus metrics on this port (0 disables)")
	previewPort       = flag.Int("preview-port", 0, "Serve an MJPEG preview of annotated frames on this port (0 disables)")
	mqttBroker        = flag.String("mqtt-broker", "", "MQTT broker URL for per-frame detection events (empty disables)")
	verbose           = flag.Bool("verbose", false, "Enable debug logging")
)

const (
	exitOK       = 0
	exitResource = 1
	exitStream   = 2
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitResource
	}
	applyFlags(settings)

	cfg, err := config.Build(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitResource
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return exitResource
	}
	defer log.Sync()

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	log.Info("starting curbcam", zap.String("source", cfg.Source))

	code, err := runPipeline(cfg, runID, log)
	if err != nil {
		log.Error("run failed", zap.Error(err))
	}
	return code
}

// applyFlags overlays CLI flags onto the environment-backed settings before
// the config value is frozen.
func applyFlags(s *config.Settings) {
	if *useCamera {
		s.Source = fmt.Sprintf("%d", *cameraIndex)
	} else if *videoPath != "" {
		s.Source = *videoPath
	}
	if *outputPath != "" {
		s.OutputPath = *outputPath
	}
	if *carCascade != "" {
		s.CarCascade = *carCascade
	}
	if *pedestrianCascade != "" {
		s.PedestrianCascade = *pedestrianCascade
	}
	if *metricsPort != 0 {
		s.MetricsPort = *metricsPort
	}
	if *previewPort != 0 {
		s.PreviewPort = *previewPort
	}
	if *mqttBroker != "" {
		s.MQTTBroker = *mqttBroker
	}
	if *verbose {
		s.LogLevel = "debug"
	}
}

func runPipeline(cfg config.Pipeline, runID string, log *zap.Logger) (int, error) {
	// Fail fast on model files before touching the stream.
	detector, err := detection.NewCascadeDetector(cfg.Classes, log)
	if err != nil {
		return exitResource, err
	}
	defer detector.Close()

	source, err := video.Open(cfg.Source, cfg.FallbackFPS)
	if err != nil {
		return exitResource, err
	}
	log.Info("source opened",
		zap.Int("width", source.Width()),
		zap.Int("height", source.Height()),
		zap.Float64("fps", source.FPS()))

	var sink video.Sink
	if cfg.OutputPath != "" {
		fileSink, err := video.NewFileSink(cfg.OutputPath, cfg.Codec, source.FPS(), source.Width(), source.Height())
		if err != nil {
			source.Close()
			return exitResource, err
		}
		sink = fileSink
		log.Info("output video enabled", zap.String("path", cfg.OutputPath), zap.String("codec", cfg.Codec))
	}

	metricsSrv := metrics.StartServer(cfg.MetricsPort, log)
	previewStream := preview.Start(cfg.PreviewPort, log)

	deps := pipeline.Deps{
		Source:      source,
		Sink:        sink,
		Detector:    detector,
		Associator:  tracking.NewAssociator(cfg.MatchDistance, cfg.HistoryWindow),
		Stats:       stats.NewAggregator(cfg.TimingWindow),
		Renderer:    overlay.NewRenderer(cfg),
		Interpreter: command.NewInterpreter(),
		Poller:      command.NewReaderPoller(os.Stdin, time.Millisecond),
		Log:         log,
	}

	if previewStream != nil {
		deps.FrameObservers = append(deps.FrameObservers, previewStream.Update)
	}

	if cfg.MQTTBroker != "" {
		em, err := emitter.NewMQTTEmitter(cfg.MQTTBroker, cfg.MQTTTopic, "curbcam-"+runID, log)
		if err != nil {
			// Eventing is best effort; the pipeline runs without it.
			log.Warn("mqtt emitter unavailable", zap.Error(err))
		} else {
			defer func() {
				st := em.Stats()
				log.Info("emitter stats", zap.Int64("published", st.Published), zap.Int64("errors", st.Errors))
				em.Close()
			}()
			deps.EventObservers = append(deps.EventObservers, func(t pipeline.Tick) {
				counts := make(map[config.Class]int, len(t.Matched))
				for _, m := range t.Matched {
					counts[m.Detection.Class]++
				}
				em.Publish(emitter.Event{
					RunID:     runID,
					Seq:       t.Frame.Seq,
					Timestamp: t.Frame.Timestamp,
					Counts:    counts,
					Tracks:    len(t.Matched),
				})
			})
		}
	}

	ctrl := pipeline.NewController(cfg, deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal", zap.String("signal", sig.String()))
		cancel()
	}()

	runErr := ctrl.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	shutdownServer(shutdownCtx, metricsSrv)
	if previewStream != nil {
		shutdownServer(shutdownCtx, previewStream.Server())
	}

	if runErr != nil {
		if errors.Is(runErr, detection.ErrModelLoad) || errors.Is(runErr, video.ErrSourceUnavailable) {
			return exitResource, runErr
		}
		return exitStream, runErr
	}
	return exitOK, nil
}

func shutdownServer(ctx context.Context, srv *http.Server) {
	if srv != nil {
		srv.Shutdown(ctx)
	}
}
