// Package config holds the immutable pipeline configuration.
//
// Defaults come from the environment (CURBCAM_* variables); the CLI layer may
// override individual fields before freezing the value with Build. Once built,
// a Pipeline is never mutated — changed settings mean a new value.
package config

import (
	"fmt"
	"image"
	"image/color"

	"github.com/caarlos0/env/v11"
)

// Class identifies one detectable object class. The set of classes is closed
// per pipeline instance: it is exactly the set carried by the Pipeline value.
type Class string

const (
	ClassCar        Class = "car"
	ClassPedestrian Class = "pedestrian"
)

// ClassConfig carries the detector parameters and overlay styling for one class.
type ClassConfig struct {
	Tag          Class
	CascadePath  string
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
	MaxSize      image.Point // zero value means unbounded
	Color        color.RGBA
	ShadowColor  color.RGBA // drawn one unit offset beneath the box when Shadow is set
	Shadow       bool
}

// Settings is the raw environment-backed configuration. It exists only as an
// intermediate for Build; components receive the frozen Pipeline instead.
type Settings struct {
	Source     string `env:"CURBCAM_SOURCE"      envDefault:"peds_and_cars.mp4"`
	OutputPath string `env:"CURBCAM_OUTPUT"      envDefault:""`
	OutputDir  string `env:"CURBCAM_OUTPUT_DIR"  envDefault:"."`

	CarCascade        string `env:"CURBCAM_CAR_CASCADE"        envDefault:"cars.xml"`
	PedestrianCascade string `env:"CURBCAM_PEDESTRIAN_CASCADE" envDefault:"haarcascade_fullbody.xml"`

	Codec       string  `env:"CURBCAM_CODEC"        envDefault:"mp4v"`
	FallbackFPS float64 `env:"CURBCAM_FALLBACK_FPS" envDefault:"30"`

	MatchDistance float64 `env:"CURBCAM_MATCH_DISTANCE" envDefault:"100"`
	HistoryWindow int     `env:"CURBCAM_HISTORY_WINDOW" envDefault:"30"`
	TimingWindow  int     `env:"CURBCAM_TIMING_WINDOW"  envDefault:"10"`
	OverlayAlpha  float64 `env:"CURBCAM_OVERLAY_ALPHA"  envDefault:"0.7"`

	MetricsPort int    `env:"CURBCAM_METRICS_PORT" envDefault:"0"`
	PreviewPort int    `env:"CURBCAM_PREVIEW_PORT" envDefault:"0"`
	MQTTBroker  string `env:"CURBCAM_MQTT_BROKER"  envDefault:""`
	MQTTTopic   string `env:"CURBCAM_MQTT_TOPIC"   envDefault:"curbcam/detections"`

	LogLevel string `env:"CURBCAM_LOG_LEVEL" envDefault:"info"`
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (*Settings, error) {
	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return s, nil
}

// Pipeline is the immutable configuration value handed to every component.
type Pipeline struct {
	Source     string
	OutputPath string
	OutputDir  string

	Classes []ClassConfig

	Codec       string
	FallbackFPS float64

	MatchDistance float64
	HistoryWindow int
	TimingWindow  int
	OverlayAlpha  float64

	MetricsPort int
	PreviewPort int
	MQTTBroker  string
	MQTTTopic   string

	LogLevel string
}

// Build freezes Settings into a Pipeline, filling in the per-class detection
// parameters and colors the detector and overlay run with. Colors follow the
// original cascade tuning: cars blue with a red shadow cue, pedestrians yellow.
func Build(s *Settings) (Pipeline, error) {
	p := Pipeline{
		Source:     s.Source,
		OutputPath: s.OutputPath,
		OutputDir:  s.OutputDir,
		Classes: []ClassConfig{
			{
				Tag:          ClassCar,
				CascadePath:  s.CarCascade,
				ScaleFactor:  1.1,
				MinNeighbors: 3,
				MinSize:      image.Pt(30, 30),
				Color:        color.RGBA{B: 255, A: 255},
				ShadowColor:  color.RGBA{R: 255, A: 255},
				Shadow:       true,
			},
			{
				Tag:          ClassPedestrian,
				CascadePath:  s.PedestrianCascade,
				ScaleFactor:  1.1,
				MinNeighbors: 5,
				MinSize:      image.Pt(40, 80),
				Color:        color.RGBA{R: 255, G: 255, A: 255},
			},
		},
		Codec:         s.Codec,
		FallbackFPS:   s.FallbackFPS,
		MatchDistance: s.MatchDistance,
		HistoryWindow: s.HistoryWindow,
		TimingWindow:  s.TimingWindow,
		OverlayAlpha:  s.OverlayAlpha,
		MetricsPort:   s.MetricsPort,
		PreviewPort:   s.PreviewPort,
		MQTTBroker:    s.MQTTBroker,
		MQTTTopic:     s.MQTTTopic,
		LogLevel:      s.LogLevel,
	}
	if err := p.Validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

// Validate checks the invariants every component assumes.
func (p Pipeline) Validate() error {
	if len(p.Classes) == 0 {
		return fmt.Errorf("config: at least one detection class required")
	}
	for _, c := range p.Classes {
		if c.Tag == "" {
			return fmt.Errorf("config: class with empty tag")
		}
		if c.ScaleFactor <= 1.0 {
			return fmt.Errorf("config: class %s: scale factor must be > 1.0, got %v", c.Tag, c.ScaleFactor)
		}
		if c.MinNeighbors <= 0 {
			return fmt.Errorf("config: class %s: min neighbors must be > 0, got %d", c.Tag, c.MinNeighbors)
		}
		if c.MinSize.X <= 0 || c.MinSize.Y <= 0 {
			return fmt.Errorf("config: class %s: min size must be positive, got %v", c.Tag, c.MinSize)
		}
	}
	if p.MatchDistance <= 0 {
		return fmt.Errorf("config: match distance must be positive, got %v", p.MatchDistance)
	}
	if p.HistoryWindow < 1 {
		return fmt.Errorf("config: history window must be >= 1, got %d", p.HistoryWindow)
	}
	if p.TimingWindow < 1 {
		return fmt.Errorf("config: timing window must be >= 1, got %d", p.TimingWindow)
	}
	if p.OverlayAlpha <= 0 || p.OverlayAlpha > 1 {
		return fmt.Errorf("config: overlay alpha must be in (0,1], got %v", p.OverlayAlpha)
	}
	if p.FallbackFPS <= 0 {
		return fmt.Errorf("config: fallback fps must be positive, got %v", p.FallbackFPS)
	}
	return nil
}

// ClassFor returns the configuration for a tag, if the class is part of this
// pipeline's closed set.
func (p Pipeline) ClassFor(tag Class) (ClassConfig, bool) {
	for _, c := range p.Classes {
		if c.Tag == tag {
			return c, true
		}
	}
	return ClassConfig{}, false
}
