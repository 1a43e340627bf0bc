package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"gonum.org/v1/gonum/mat"
)

// SuperpixelSegmenter groups pixels into SLIC superpixels and clusters the
// superpixel mean colors into texture classes. Classes follow superpixel borders,
// which keeps them free of single-pixel noise.
type SuperpixelSegmenter struct {
	// Number of SLIC regions; 0 derives it from the image size.
	Superpixels int
	// Color distance, in go-colorful Lab units, weighing as much as one grid step; 0 means 0.1.
	Compactness float64
	// SLIC refinement rounds; 0 means 10.
	Iterations int
}

// SuperpixelsFromSize targets one superpixel per 32-48 pixel square.
func SuperpixelsFromSize(size image.Point) int {
	pixels := size.X * size.Y
	if pixels <= 0 {
		return 500
	}
	side := 40.0
	switch {
	case pixels <= 512*512:
		side = 32
	case pixels > 1920*1080:
		side = 48
	}
	return max(150, min(2000, int(float64(pixels)/(side*side))))
}

func (s SuperpixelSegmenter) Segment(img image.Image, k int) ([]int, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty image")
	}
	n := s.Superpixels
	if n <= 0 {
		n = SuperpixelsFromSize(b.Size())
	}
	lab := newLabImage(img)
	regions := lab.slic(n, orDefault(s.Compactness, 0.1), max(s.Iterations, 0))
	means := lab.regionMeans(regions)

	data := make(clusters.Observations, 0, len(means))
	index := make([]int, len(means))
	for r, m := range means {
		index[r] = -1
		if m.count == 0 {
			continue
		}
		index[r] = len(data)
		data = append(data, clusters.Coordinates{m.l, m.a, m.b})
	}
	if len(data) < k {
		return nil, fmt.Errorf("%d superpixels for %d classes", len(data), k)
	}
	cc, err := kmeans.New().Partition(data, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans: %w", err)
	}

	classOf := make([]int, len(means))
	for r := range means {
		if index[r] >= 0 {
			classOf[r] = cc.Nearest(data[index[r]])
		}
	}
	labels := make([]int, len(regions))
	for i, r := range regions {
		labels[i] = classOf[r]
	}
	orderByLightness(labels, lab.lightness(), len(cc))
	return labels, nil
}

func orDefault(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

// labImage holds interleaved L, a, b per pixel.
type labImage struct {
	W, H int
	Pix  []float64
}

func labOffset(w, x, y int) int {
	return (y*w + x) * 3
}

func newLabImage(img image.Image) *labImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &labImage{W: w, H: h, Pix: make([]float64, w*h*3)}
	for y := range h {
		for x := range w {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.A = 255
			col, _ := colorful.MakeColor(c)
			off := labOffset(w, x, y)
			out.Pix[off], out.Pix[off+1], out.Pix[off+2] = col.Lab()
		}
	}
	return out
}

// lightness returns a one column matrix of L values, the layout orderByLightness reads.
func (li *labImage) lightness() *mat.Dense {
	l := mat.NewDense(li.W*li.H, 1, nil)
	for i := range li.W * li.H {
		l.Set(i, 0, li.Pix[i*3])
	}
	return l
}

type slicCenter struct {
	l, a, b, x, y float64
}

func (li *labImage) center(x, y int) slicCenter {
	off := labOffset(li.W, x, y)
	return slicCenter{li.Pix[off], li.Pix[off+1], li.Pix[off+2], float64(x), float64(y)}
}

// seedCenters places one center per grid cell, nudged to the lowest gradient
// in its 3x3 neighbourhood.
func (li *labImage) seedCenters(step int) []slicCenter {
	w, h := li.W, li.H
	var centers []slicCenter
	for cy := step; cy < h-step/2; cy += step {
		for cx := step; cx < w-step/2; cx += step {
			bx, by, best := cx, cy, math.MaxFloat64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					x, y := cx+dx, cy+dy
					if x < 0 || y < 0 || x >= w-1 || y >= h-1 {
						continue
					}
					here := li.Pix[labOffset(w, x, y)]
					grad := math.Abs(li.Pix[labOffset(w, x, y+1)]-here) + math.Abs(li.Pix[labOffset(w, x+1, y)]-here)
					if grad < best {
						bx, by, best = x, y, grad
					}
				}
			}
			centers = append(centers, li.center(bx, by))
		}
	}
	if len(centers) == 0 {
		centers = append(centers, li.center(w/2, h/2))
	}
	return centers
}

// slic returns a region index per pixel. Every region is 4-connected; pixels out of
// reach of every center form regions of their own.
func (li *labImage) slic(n int, compactness float64, iterations int) []int {
	w, h := li.W, li.H
	if iterations == 0 {
		iterations = 10
	}
	step := max(int(math.Sqrt(float64(w*h)/float64(max(n, 1)))), 1)
	centers := li.seedCenters(step)

	assign := make([]int, w*h)
	dist := make([]float64, w*h)
	for range iterations {
		for i := range dist {
			dist[i] = math.MaxFloat64
			assign[i] = -1
		}
		for ci, c := range centers {
			x0, x1 := max(int(c.x)-step, 0), min(int(c.x)+step, w)
			y0, y1 := max(int(c.y)-step, 0), min(int(c.y)+step, h)
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					off := labOffset(w, x, y)
					dl, da, db := li.Pix[off]-c.l, li.Pix[off+1]-c.a, li.Pix[off+2]-c.b
					dx, dy := float64(x)-c.x, float64(y)-c.y
					dc2 := (dl*dl + da*da + db*db) / (compactness * compactness)
					ds2 := (dx*dx + dy*dy) / float64(step*step)
					if d := dc2 + ds2; d < dist[y*w+x] {
						dist[y*w+x] = d
						assign[y*w+x] = ci
					}
				}
			}
		}
		sums := make([]slicCenter, len(centers))
		counts := make([]int, len(centers))
		for y := range h {
			for x := range w {
				ci := assign[y*w+x]
				if ci < 0 {
					continue
				}
				off := labOffset(w, x, y)
				s := &sums[ci]
				s.l += li.Pix[off]
				s.a += li.Pix[off+1]
				s.b += li.Pix[off+2]
				s.x += float64(x)
				s.y += float64(y)
				counts[ci]++
			}
		}
		for ci, s := range sums {
			if n := float64(counts[ci]); n > 0 {
				centers[ci] = slicCenter{s.l / n, s.a / n, s.b / n, s.x / n, s.y / n}
			}
		}
	}
	return enforceConnectivity(assign, w, h, max(w*h/len(centers), 1)/4)
}

// enforceConnectivity relabels 4-connected components and merges those not larger
// than minSize into the component met just before them.
func enforceConnectivity(assign []int, w, h, minSize int) []int {
	out := make([]int, w*h)
	for i := range out {
		out[i] = -1
	}
	next := 0
	elems := make([]int, 0, 64)
	for y := range h {
		for x := range w {
			start := y*w + x
			if out[start] != -1 {
				continue
			}
			adjacent := next
			for k := range 4 {
				nx, ny := x+dx4[k], y+dy4[k]
				if nx >= 0 && ny >= 0 && nx < w && ny < h && out[ny*w+nx] >= 0 {
					adjacent = out[ny*w+nx]
					break
				}
			}
			elems = append(elems[:0], start)
			out[start] = next
			for c := 0; c < len(elems); c++ {
				cx, cy := elems[c]%w, elems[c]/w
				for k := range 4 {
					nx, ny := cx+dx4[k], cy+dy4[k]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ni := ny*w + nx
					if out[ni] == -1 && assign[ni] == assign[start] {
						out[ni] = next
						elems = append(elems, ni)
					}
				}
			}
			if len(elems) <= minSize && adjacent != next {
				for _, e := range elems {
					out[e] = adjacent
				}
				continue
			}
			next++
		}
	}
	return out
}

var (
	dx4 = [4]int{-1, 0, 1, 0}
	dy4 = [4]int{0, -1, 0, 1}
)

type regionMean struct {
	l, a, b float64
	count   int
}

func (li *labImage) regionMeans(regions []int) []regionMean {
	n := 0
	for _, r := range regions {
		n = max(n, r+1)
	}
	means := make([]regionMean, n)
	for i, r := range regions {
		m := &means[r]
		m.l += li.Pix[i*3]
		m.a += li.Pix[i*3+1]
		m.b += li.Pix[i*3+2]
		m.count++
	}
	for i := range means {
		if c := float64(means[i].count); c > 0 {
			means[i].l /= c
			means[i].a /= c
			means[i].b /= c
		}
	}
	return means
}
