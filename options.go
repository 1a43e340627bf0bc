package textonizer

import (
	"image"
)

type Options struct {
	// Number of texture classes handed to the Segmenter.
	// Ideal start: 3-6. Too many classes shatters one texture into several clusters.
	NumClusters int
	// A grown region must hold more than this many pixels to become a texton.
	// Smaller regions are treated as segmentation noise and repaired into their neighbours.
	MinTextonSize int
	// Optional source coordinate known to lie on the image background.
	// The cluster owning it gets an extra whole-cluster texton used as background.
	Background *image.Point

	// Radius of the square structuring element used per dilation step.
	DilationRadius int
	// Upper bound on dilation steps while looking for neighbours.
	MaxDilations int
	// Steps still allowed once the first neighbour was found.
	ExtraDilations int

	// A cluster whose mean dilation area exceeds this is considered sparse;
	// its crowded textons are dropped before synthesis.
	NoiseThreshold float64
	// Dilation area below which a texton of a sparse cluster counts as crowded.
	TooCloseDilation int
	// Opaque pixels a close texton may paint over existing content.
	MaxOverlap int
	// Extra canvas space on each side of the requested output.
	Margin int
	// First cluster index considered when seeding; slot 0 is reserved for the background class.
	SeedCluster int
}

func DefaultOptions() Options {
	return Options{
		NumClusters:      4,
		MinTextonSize:    20,
		DilationRadius:   1,
		MaxDilations:     20,
		ExtraDilations:   3,
		NoiseThreshold:   2,
		TooCloseDilation: 2,
		MaxOverlap:       10,
		Margin:           25,
		SeedCluster:      1,
	}
}

// OptionsFromSize scales the size dependent thresholds to the source image.
func OptionsFromSize(size image.Point) Options {
	opt := DefaultOptions()
	if size.X <= 0 || size.Y <= 0 {
		return opt
	}
	pixels := size.X * size.Y
	switch {
	case pixels <= 128*128:
		opt.MinTextonSize = 5
		opt.MaxDilations = 10
	case pixels > 1024*1024:
		opt.MinTextonSize = 60
		opt.MaxDilations = 30
		opt.Margin = 50
	}
	return opt
}

func (o Options) validate() error {
	if o.NumClusters < 1 {
		return NewError(ErrCodeInvalidInput, "number of clusters must be positive, got %d", o.NumClusters)
	}
	if o.MinTextonSize < 0 {
		return NewError(ErrCodeInvalidInput, "minimum texton size must not be negative, got %d", o.MinTextonSize)
	}
	if o.DilationRadius < 1 {
		return NewError(ErrCodeInvalidInput, "dilation radius must be positive, got %d", o.DilationRadius)
	}
	if o.MaxDilations < 1 {
		return NewError(ErrCodeInvalidInput, "max dilations must be positive, got %d", o.MaxDilations)
	}
	if o.ExtraDilations < 0 {
		return NewError(ErrCodeInvalidInput, "extra dilations must not be negative, got %d", o.ExtraDilations)
	}
	if o.Margin < 0 {
		return NewError(ErrCodeInvalidInput, "margin must not be negative, got %d", o.Margin)
	}
	return nil
}
