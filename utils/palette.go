package utils

import (
	"errors"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

type PaletteMethod int

const (
	PaletteMethodDominantColor PaletteMethod = iota
	PaletteMethodKMeans
)

func (m PaletteMethod) String() string {
	if m == PaletteMethodKMeans {
		return "kmeans"
	}
	return "dominantcolor"
}

// ParsePaletteMethod accepts the names produced by String.
func ParsePaletteMethod(name string) (PaletteMethod, bool) {
	switch name {
	case "kmeans":
		return PaletteMethodKMeans, true
	case "dominantcolor", "dominant", "":
		return PaletteMethodDominantColor, true
	}
	return 0, false
}

// candidate is a palette color with its share of the image.
type candidate struct {
	col    colorful.Color
	lab    [3]float64
	weight float64
}

func newCandidate(col colorful.Color, weight float64) candidate {
	col = col.Clamped()
	l, a, b := col.Lab()
	return candidate{col: col, lab: [3]float64{l, a, b}, weight: max(weight, 1e-6)}
}

func labDist2(a, b [3]float64) float64 {
	d0, d1, d2 := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return d0*d0 + d1*d1 + d2*d2
}

// pickDiverse starts from the heaviest candidate and keeps adding the one farthest
// in Lab from everything picked so far, favouring heavier candidates.
func pickDiverse(cands []candidate, k int) []colorful.Color {
	k = min(k, len(cands))
	if k <= 0 {
		return nil
	}
	heaviest, maxW := 0, 0.0
	for i, c := range cands {
		if c.weight > maxW {
			heaviest, maxW = i, c.weight
		}
	}
	picked := []int{heaviest}
	taken := make([]bool, len(cands))
	taken[heaviest] = true

	for len(picked) < k {
		best, bestScore := -1, -1.0
		for i, c := range cands {
			if taken[i] {
				continue
			}
			nearest := math.MaxFloat64
			for _, p := range picked {
				nearest = min(nearest, labDist2(c.lab, cands[p].lab))
			}
			score := math.Sqrt(nearest) * (0.55 + 0.45*math.Sqrt(c.weight/maxW))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		taken[best] = true
		picked = append(picked, best)
	}

	out := make([]colorful.Color, len(picked))
	for i, p := range picked {
		out[i] = cands[p].col
	}
	return out
}

func dominantCandidates(img image.Image, k int) []candidate {
	found := dominantcolor.FindWeight(img, max(24, k*8))
	cands := make([]candidate, 0, len(found))
	for _, c := range found {
		col, _ := colorful.MakeColor(c.RGBA)
		cands = append(cands, newCandidate(col, c.Weight))
	}
	return cands
}

// maxSamples bounds the number of pixels handed to kmeans.
const maxSamples = 12000

// sampleStep returns the pixel stride keeping w*h under maxSamples.
func sampleStep(w, h int) int {
	if w*h <= maxSamples {
		return 1
	}
	return int(math.Sqrt(float64(w*h)/maxSamples)) + 1
}

func kmeansCandidates(img image.Image, k int) []candidate {
	b := img.Bounds()
	step := sampleStep(b.Dx(), b.Dy())
	var data clusters.Observations
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			data = append(data, clusters.Coordinates{float64(r) / 0xffff, float64(g) / 0xffff, float64(bl) / 0xffff})
		}
	}
	if len(data) == 0 {
		return nil
	}
	cc, err := kmeans.New().Partition(data, min(max(k*4, k+2), len(data)))
	if err != nil {
		return nil
	}
	cands := make([]candidate, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		col := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}
		cands = append(cands, newCandidate(col, float64(len(c.Observations))))
	}
	return cands
}

// ExtractPalette returns at most k well separated colors of img.
// kmeans falls back to dominantcolor when it yields nothing.
func ExtractPalette(img image.Image, k int, method PaletteMethod) []colorful.Color {
	if k <= 0 || img.Bounds().Empty() {
		return nil
	}
	var cands []candidate
	if method == PaletteMethodKMeans {
		cands = kmeansCandidates(img, k)
		if len(cands) == 0 {
			log.Warn("kmeans returned an empty palette, falling back", "fallback", PaletteMethodDominantColor)
		}
	}
	if len(cands) == 0 {
		cands = dominantCandidates(img, k)
	}
	if len(cands) == 0 {
		cands = []candidate{newCandidate(colorful.Color{R: 0.5, G: 0.5, B: 0.5}, 1)}
	}
	return pickDiverse(cands, k)
}

func luminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// SortPaletteByBrightness orders colors from darkest to brightest, so the darkest
// color becomes class 0.
func SortPaletteByBrightness(palette []colorful.Color) {
	slices.SortStableFunc(palette, func(a, b colorful.Color) int {
		la, lb := luminance(a), luminance(b)
		switch {
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
		return 0
	})
}

// PaletteSegmenter labels every pixel with its nearest palette color in Lab.
// Classes are ordered from dark to bright.
type PaletteSegmenter struct {
	Method PaletteMethod
}

func (s PaletteSegmenter) Segment(img image.Image, k int) ([]int, error) {
	palette := ExtractPalette(img, k, s.Method)
	if len(palette) == 0 {
		return nil, errors.New("empty palette")
	}
	SortPaletteByBrightness(palette)
	return nearestLabels(img, palette), nil
}

func nearestLabels(img image.Image, palette []colorful.Color) []int {
	b := img.Bounds()
	labels := make([]int, b.Dx()*b.Dy())
	cache := make(map[color.NRGBA]int)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 255
			label, ok := cache[c]
			if !ok {
				col, _ := colorful.MakeColor(c)
				best := math.MaxFloat64
				for p, pc := range palette {
					if d := col.DistanceLab(pc); d < best {
						best, label = d, p
					}
				}
				cache[c] = label
			}
			labels[i] = label
			i++
		}
	}
	return labels
}
