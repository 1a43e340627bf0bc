package utils

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/disintegration/gift"
	"github.com/setanarut/textonizer"
)

// BoxBlur averages every pixel over a Size x Size square.
type BoxBlur struct {
	Size int // 0 means 3
}

func (b BoxBlur) Blur(img image.Image) *image.NRGBA {
	size := b.Size
	if size <= 0 {
		size = 3
	}
	g := gift.New(gift.Mean(size, false))
	g.SetParallelization(false)
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// SobelEdges thresholds the Sobel gradient with hysteresis: pixels above High are
// edges, pixels above Low are edges when 8-connected to one.
type SobelEdges struct {
	Low, High uint8
}

func (s SobelEdges) Detect(gray *image.Gray) *image.Gray {
	g := gift.New(gift.Sobel())
	g.SetParallelization(false)
	grad := image.NewGray(g.Bounds(gray.Bounds()))
	g.Draw(grad, gray)
	return hysteresis(grad, s.Low, s.High, gray.Rect)
}

func hysteresis(grad *image.Gray, low, high uint8, rect image.Rectangle) *image.Gray {
	w, h := grad.Rect.Dx(), grad.Rect.Dy()
	out := image.NewGray(rect)
	var stack []image.Point
	for y := range h {
		for x := range w {
			if grad.Pix[grad.PixOffset(grad.Rect.Min.X+x, grad.Rect.Min.Y+y)] >= high {
				stack = append(stack, image.Pt(x, y))
			}
		}
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		o := out.PixOffset(rect.Min.X+p.X, rect.Min.Y+p.Y)
		if out.Pix[o] != 0 {
			continue
		}
		out.Pix[o] = 255
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if out.Pix[out.PixOffset(rect.Min.X+nx, rect.Min.Y+ny)] != 0 {
					continue
				}
				if grad.Pix[grad.PixOffset(grad.Rect.Min.X+nx, grad.Rect.Min.Y+ny)] >= low {
					stack = append(stack, image.Pt(nx, ny))
				}
			}
		}
	}
	return out
}

var (
	edgeDetectors = map[string]func(low, high float64) textonizer.EdgeDetector{
		"sobel": func(low, high float64) textonizer.EdgeDetector {
			return SobelEdges{Low: clampByte(low), High: clampByte(high)}
		},
	}
	blurrers = map[string]func(size int) textonizer.Blurrer{
		"box": func(size int) textonizer.Blurrer { return BoxBlur{Size: size} },
	}
)

func clampByte(v float64) uint8 {
	return uint8(min(max(v, 0), 255))
}

// NewEdgeDetector returns the detector registered under name. "none" yields nil.
func NewEdgeDetector(name string, low, high float64) (textonizer.EdgeDetector, error) {
	if name == "none" {
		return nil, nil
	}
	f, ok := edgeDetectors[name]
	if !ok {
		return nil, textonizer.NewError(textonizer.ErrCodeInvalidInput, "unknown edge detector %q (have %v)", name, names(edgeDetectors))
	}
	return f(low, high), nil
}

// NewBlurrer returns the blurrer registered under name. "none" yields nil.
func NewBlurrer(name string, size int) (textonizer.Blurrer, error) {
	if name == "none" {
		return nil, nil
	}
	f, ok := blurrers[name]
	if !ok {
		return nil, textonizer.NewError(textonizer.ErrCodeInvalidInput, "unknown blur %q (have %v)", name, names(blurrers))
	}
	return f(size), nil
}

// SegmenterConfig selects and tunes a Segmenter.
type SegmenterConfig struct {
	Method      string // features, superpixel, palette-dominantcolor or palette-kmeans
	Components  int    // PCA components kept by features
	Window      int    // local lightness window used by features
	Superpixels int    // SLIC regions used by superpixel
}

func NewSegmenter(cfg SegmenterConfig) (textonizer.Segmenter, error) {
	switch cfg.Method {
	case "features", "":
		return FeatureSegmenter{Components: cfg.Components, Window: cfg.Window}, nil
	case "superpixel":
		return SuperpixelSegmenter{Superpixels: cfg.Superpixels}, nil
	}
	if rest, ok := strings.CutPrefix(cfg.Method, "palette"); ok {
		if method, ok := ParsePaletteMethod(strings.TrimPrefix(rest, "-")); ok {
			return PaletteSegmenter{Method: method}, nil
		}
	}
	return nil, textonizer.NewError(textonizer.ErrCodeInvalidInput,
		"unknown segmenter %q (have features, superpixel, palette-dominantcolor, palette-kmeans)", cfg.Method)
}

func names[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprint(keys)
}
