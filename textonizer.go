// Package textonizer grows new texture images out of a single sample by cutting the
// sample into textons, learning which textons sit next to each other, and tiling
// them on a larger canvas so the learned neighbourhoods repeat.
package textonizer

import (
	"image"
	"math/rand/v2"

	"github.com/charmbracelet/log"
)

// Segmenter assigns every pixel of img one of k texture classes, row-major.
type Segmenter interface {
	Segment(img image.Image, k int) ([]int, error)
}

// EdgeDetector marks class boundaries with non-zero pixels.
type EdgeDetector interface {
	Detect(gray *image.Gray) *image.Gray
}

// Blurrer smooths an image without changing its size.
type Blurrer interface {
	Blur(img image.Image) *image.NRGBA
}

type Textonizer struct {
	InputImage   image.Image
	Segmenter    Segmenter
	EdgeDetector EdgeDetector
	Blurrer      Blurrer
	Rand         *rand.Rand
	Logger       *log.Logger

	Clusters []*Cluster
	Maps     *UnifiedMap
	opt      Options
}

func NewTextonizer(input image.Image, seg Segmenter, edges EdgeDetector, blur Blurrer) *Textonizer {
	return &Textonizer{
		InputImage:   input,
		Segmenter:    seg,
		EdgeDetector: edges,
		Blurrer:      blur,
	}
}

// Build extracts the textons of the input image and learns their co-occurrences.
func (tz *Textonizer) Build(opt Options) error {
	ex := &Extractor{
		Segmenter:    tz.Segmenter,
		EdgeDetector: tz.EdgeDetector,
		Blurrer:      tz.Blurrer,
		Logger:       tz.Logger,
	}
	res, err := ex.Extract(tz.InputImage, opt)
	if err != nil {
		return err
	}
	an := &Analyzer{Logger: tz.Logger}
	an.Analyze(res.Clusters, res.Maps, opt)

	tz.Clusters = res.Clusters
	tz.Maps = res.Maps
	tz.opt = opt
	return nil
}

// Synthesize grows a w x h image from the built clusters.
// It filters the clusters and updates texton appearance counts in place.
func (tz *Textonizer) Synthesize(w, h int) (*image.NRGBA, error) {
	s := &Synthesizer{
		Options: tz.opt,
		Blurrer: tz.Blurrer,
		Rand:    tz.Rand,
		Logger:  tz.Logger,
	}
	return s.Synthesize(tz.Clusters, w, h)
}

func loggerOr(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}
