package detection

import (
	"os"

	"curbcam/config"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// CascadeDetector evaluates one pretrained Haar cascade per configured class.
type CascadeDetector struct {
	classifiers map[config.Class]*gocv.CascadeClassifier
	log         *zap.Logger
}

// NewCascadeDetector loads every class cascade up front so a bad model path
// fails the run before any frame is read.
func NewCascadeDetector(classes []config.ClassConfig, log *zap.Logger) (*CascadeDetector, error) {
	d := &CascadeDetector{
		classifiers: make(map[config.Class]*gocv.CascadeClassifier, len(classes)),
		log:         log,
	}

	for _, c := range classes {
		if _, err := os.Stat(c.CascadePath); err != nil {
			d.Close()
			return nil, loadError(c.Tag, c.CascadePath, "file not found")
		}

		classifier := gocv.NewCascadeClassifier()
		if !classifier.Load(c.CascadePath) {
			classifier.Close()
			d.Close()
			return nil, loadError(c.Tag, c.CascadePath, "cascade failed to load")
		}

		d.classifiers[c.Tag] = &classifier
		log.Info("cascade loaded",
			zap.String("class", string(c.Tag)),
			zap.String("path", c.CascadePath))
	}

	return d, nil
}

// Detect runs the class cascade over a grayscale frame. The input Mat is read
// but never written. Haar cascades report no confidence score, so Confidence
// stays zero.
func (d *CascadeDetector) Detect(gray gocv.Mat, class config.ClassConfig) ([]Detection, error) {
	classifier, ok := d.classifiers[class.Tag]
	if !ok {
		return nil, loadError(class.Tag, class.CascadePath, "class not loaded")
	}

	maxSize := class.MaxSize
	rects := classifier.DetectMultiScaleWithParams(
		gray,
		class.ScaleFactor,
		class.MinNeighbors,
		0,
		class.MinSize,
		maxSize,
	)

	return sanitize(rects, class.Tag), nil
}

// Close releases every loaded classifier. Safe to call more than once.
func (d *CascadeDetector) Close() error {
	for tag, classifier := range d.classifiers {
		classifier.Close()
		delete(d.classifiers, tag)
	}
	return nil
}
