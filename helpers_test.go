package textonizer

import (
	"image"
	"image/color"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/log"
)

type segmentFunc func(img image.Image, k int) ([]int, error)

func (f segmentFunc) Segment(img image.Image, k int) ([]int, error) {
	return f(img, k)
}

// classesOf builds a fixed segmentation from a per-pixel rule.
func classesOf(w, h int, class func(x, y int) int) segmentFunc {
	return func(img image.Image, k int) ([]int, error) {
		labels := make([]int, w*h)
		for y := range h {
			for x := range w {
				labels[labelOffset(w, x, y)] = class(x, y)
			}
		}
		return labels, nil
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

var (
	red  = color.NRGBA{200, 30, 30, 255}
	gray = color.NRGBA{120, 120, 120, 255}
)

func paint(w, h int, col func(x, y int) color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, col(x, y))
		}
	}
	return img
}

// solidTexton returns an interior texton with a fully opaque w x h patch.
func solidTexton(id, w, h int, c color.NRGBA) *Texton {
	patch := paint(w, h, func(int, int) color.NRGBA { return c })
	return newTexton(patch, image.Rect(0, 0, w, h), 0, id, Interior)
}

// mapFromRows parses a label map where '.' is OutOfClass, 'b' Boundary, 'u' Unassigned
// and digits are texton ids offset by FirstTextonID.
func mapFromRows(rows ...string) *LabelMap {
	m := NewLabelMap(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, r := range row {
			switch {
			case r == '.':
				m.Set(x, y, OutOfClass)
			case r == 'b':
				m.Set(x, y, Boundary)
			case r == 'u':
				m.Set(x, y, Unassigned)
			default:
				m.Set(x, y, FirstTextonID+int(r-'0'))
			}
		}
	}
	return m
}
