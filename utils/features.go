package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/disintegration/gift"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FeatureSegmenter clusters pixels in a decorrelated feature space: Lab color plus
// the distance of L from its local mean, projected on the principal components and
// scaled so the longest feature vector has unit norm.
type FeatureSegmenter struct {
	// Components kept after PCA; 0 keeps all.
	Components int
	// Window of the local lightness mean; 0 means 5.
	Window int
}

const numFeatures = 4

func (s FeatureSegmenter) Segment(img image.Image, k int) ([]int, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("empty image")
	}
	feats := pixelFeatures(img, s.Window)
	proj := project(feats, w*h, s.Components)
	normalizeRows(proj)

	rows, cols := proj.Dims()
	step := sampleStep(w, h)
	var data clusters.Observations
	for y := 0; y < h; y += step {
		for x := 0; x < w; x += step {
			data = append(data, clusters.Coordinates(slices.Clone(proj.RawRowView(y*w+x))))
		}
	}
	if len(data) < k {
		return nil, fmt.Errorf("%d samples for %d classes", len(data), k)
	}
	cc, err := kmeans.New().Partition(data, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans: %w", err)
	}

	labels := make([]int, rows)
	point := make(clusters.Coordinates, cols)
	for i := range rows {
		copy(point, proj.RawRowView(i))
		labels[i] = cc.Nearest(point)
	}
	orderByLightness(labels, feats, len(cc))
	return labels, nil
}

// pixelFeatures returns a row per pixel: L, a, b and |L - local mean of L|.
func pixelFeatures(img image.Image, window int) *mat.Dense {
	if window <= 0 {
		window = 5
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	light := image.NewGray(image.Rect(0, 0, w, h))
	feats := mat.NewDense(w*h, numFeatures, nil)
	for y := range h {
		for x := range w {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.A = 255
			col, _ := colorful.MakeColor(c)
			l, a, bb := col.Lab()
			row := feats.RawRowView(y*w + x)
			row[0], row[1], row[2] = l, a, bb
			light.Pix[light.PixOffset(x, y)] = uint8(math.Round(min(max(l, 0), 1) * 255))
		}
	}

	g := gift.New(gift.Mean(window, false))
	g.SetParallelization(false)
	local := image.NewGray(g.Bounds(light.Bounds()))
	g.Draw(local, light)
	for i := range w * h {
		row := feats.RawRowView(i)
		row[3] = math.Abs(row[0] - float64(local.Pix[i])/255)
	}
	return feats
}

// project centers feats and maps them on their principal components. It returns the
// centered features unchanged when the decomposition fails.
func project(feats *mat.Dense, n, components int) *mat.Dense {
	_, cols := feats.Dims()
	centered := mat.DenseCopyOf(feats)
	for j := range cols {
		col := mat.Col(nil, j, feats)
		mean := stat.Mean(col, nil)
		for i := range n {
			centered.Set(i, j, col[i]-mean)
		}
	}

	var pc stat.PC
	if !pc.PrincipalComponents(feats, nil) {
		return centered
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	// Fewer samples than features yield fewer than cols vectors.
	_, available := vecs.Dims()
	if components <= 0 || components > available {
		components = available
	}
	basis := vecs.Slice(0, cols, 0, components)
	var out mat.Dense
	out.Mul(centered, basis)
	return &out
}

func normalizeRows(m *mat.Dense) {
	rows, _ := m.Dims()
	longest := 0.0
	for i := range rows {
		longest = max(longest, mat.Norm(m.RowView(i), 2))
	}
	if longest == 0 {
		return
	}
	m.Scale(1/longest, m)
}

// orderByLightness renumbers labels so class 0 has the lowest mean lightness.
func orderByLightness(labels []int, feats *mat.Dense, k int) {
	sum := make([]float64, k)
	count := make([]int, k)
	for i, l := range labels {
		sum[l] += feats.At(i, 0)
		count[l]++
	}
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	mean := func(c int) float64 {
		if count[c] == 0 {
			return math.Inf(1)
		}
		return sum[c] / float64(count[c])
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch ma, mb := mean(a), mean(b); {
		case ma < mb:
			return -1
		case ma > mb:
			return 1
		}
		return 0
	})
	rank := make([]int, k)
	for r, c := range order {
		rank[c] = r
	}
	for i, l := range labels {
		labels[i] = rank[l]
	}
}
