package textonizer

import (
	"image"
	"image/color"

	"github.com/charmbracelet/log"
)

// Extraction is the result of texton extraction.
type Extraction struct {
	Clusters []*Cluster
	Maps     *UnifiedMap
}

// Extractor cuts a source image into textons, one cluster per texture class.
type Extractor struct {
	Segmenter    Segmenter
	EdgeDetector EdgeDetector // nil: no class boundaries
	Blurrer      Blurrer      // nil: segment the unsmoothed source
	Logger       *log.Logger
}

func (e *Extractor) Extract(img image.Image, opt Options) (*Extraction, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if e.Segmenter == nil {
		return nil, NewError(ErrCodeInvalidInput, "no segmenter configured")
	}
	src := toNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, NewError(ErrCodeInvalidInput, "empty source image")
	}
	if bg := opt.Background; bg != nil && !bg.In(src.Rect) {
		return nil, NewError(ErrCodeInvalidInput, "background pixel %v outside image %dx%d", *bg, w, h)
	}
	logger := loggerOr(e.Logger)

	var smooth image.Image = src
	if e.Blurrer != nil {
		smooth = e.Blurrer.Blur(src)
	}
	classes, err := e.Segmenter.Segment(smooth, opt.NumClusters)
	if err != nil {
		return nil, WrapError(ErrCodeSegmentation, err, "segmenting %dx%d image", w, h)
	}
	if len(classes) != w*h {
		return nil, NewError(ErrCodeSegmentation, "segmenter returned %d labels for %d pixels", len(classes), w*h)
	}
	for i, c := range classes {
		if c < 0 || c >= opt.NumClusters {
			return nil, NewError(ErrCodeSegmentation, "label %d at pixel %d outside [0,%d)", c, i, opt.NumClusters)
		}
	}

	out := &Extraction{Maps: NewUnifiedMap(w, h)}
	for c := range opt.NumClusters {
		var edges *image.Gray
		if e.EdgeDetector != nil {
			edges = e.EdgeDetector.Detect(isolateClass(src, classes, c))
		}
		m := seedLabels(classes, c, edges, w, h)
		background := false
		if bg := opt.Background; bg != nil {
			if v := m.At(bg.X, bg.Y); v == Unassigned || v == Boundary {
				background = true
			}
		}

		n := growRegions(m, opt.MinTextonSize)
		passes := repairRemaining(m)
		strays := correctStrays(m)
		cluster := sliceTextons(src, m, c, n, background)

		out.Maps.add(m)
		out.Clusters = append(out.Clusters, cluster)
		if cluster.Count() == 0 {
			logger.Debug("cluster yielded no textons", "cluster", c)
			continue
		}
		logger.Debug("extracted cluster", "cluster", c, "textons", cluster.Count(),
			"repair_passes", passes, "strays", strays, "background", cluster.Background)
	}
	logger.Info("texton extraction complete", "clusters", len(out.Clusters), "textons", TextonCount(out.Clusters))
	return out, nil
}

// toNRGBA copies img into an opaque NRGBA anchored at the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		for x := range b.Dx() {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.A = 255
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

// isolateClass renders the grayscale source with every pixel of another class blacked out.
func isolateClass(src *image.NRGBA, classes []int, c int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	gray := image.NewGray(src.Rect)
	for y := range h {
		for x := range w {
			if classes[labelOffset(w, x, y)] != c {
				continue
			}
			gray.SetGray(x, y, color.GrayModel.Convert(src.NRGBAAt(x, y)).(color.Gray))
		}
	}
	return gray
}

// ============ LABEL SEEDING ============

func seedLabels(classes []int, c int, edges *image.Gray, w, h int) *LabelMap {
	m := NewLabelMap(w, h)
	for y := range h {
		for x := range w {
			off := labelOffset(w, x, y)
			switch {
			case classes[off] != c:
				m.Labels[off] = OutOfClass
			case edges != nil && edges.GrayAt(edges.Rect.Min.X+x, edges.Rect.Min.Y+y).Y != 0:
				m.Labels[off] = Boundary
			default:
				m.Labels[off] = Unassigned
			}
		}
	}
	return m
}

// ============ REGION GROWING ============

// growRegions floods every unassigned pixel in raster order and returns the number of
// committed textons. Regions not larger than minSize go back to the unassigned pool.
func growRegions(m *LabelMap, minSize int) int {
	id := FirstTextonID
	stack := make([]int, 0, 64)
	region := make([]int, 0, 64)
	for y := range m.H {
		for x := range m.W {
			start := labelOffset(m.W, x, y)
			if m.Labels[start] != Unassigned {
				continue
			}
			stack, region = m.fill(start, id, stack, region)
			if len(region) > minSize {
				id++
				continue
			}
			for _, p := range region {
				m.Labels[p] = Unassigned
			}
		}
	}
	return id - FirstTextonID
}

// fill assigns id to the 4-connected unassigned pixels reachable from start.
// Boundary pixels are taken but never spread from.
func (m *LabelMap) fill(start, id int, stack, region []int) ([]int, []int) {
	stack = append(stack[:0], start)
	region = region[:0]
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		v := m.Labels[p]
		if v != Unassigned && v != Boundary {
			continue
		}
		m.Labels[p] = id
		region = append(region, p)
		if v == Boundary {
			continue
		}
		x, y := p%m.W, p/m.W
		for k := range 4 {
			nx, ny := x+dx4[k], y+dy4[k]
			if !m.inside(nx, ny) {
				continue
			}
			n := labelOffset(m.W, nx, ny)
			if l := m.Labels[n]; l == Unassigned || l == Boundary {
				stack = append(stack, n)
			}
		}
	}
	return stack, region
}

// ============ REPAIR ============

// uniqueTexton returns the only texton id among the labels, or Undefined when
// there is none or more than one.
func uniqueTexton(labels [8]int) int {
	id := Undefined
	for _, v := range labels {
		if v < FirstTextonID {
			continue
		}
		if id == Undefined {
			id = v
		} else if v != id {
			return Undefined
		}
	}
	return id
}

// repairRemaining hands every unassigned pixel to the single texton bordering it,
// repeating full passes until one changes nothing. It returns the number of passes.
func repairRemaining(m *LabelMap) int {
	passes := 0
	for {
		passes++
		changes := 0
		for y := range m.H {
			for x := range m.W {
				if m.At(x, y) != Unassigned {
					continue
				}
				if id := uniqueTexton(m.neighbors8(x, y)); id != Undefined {
					m.Set(x, y, id)
					changes++
				}
			}
		}
		if changes == 0 {
			return passes
		}
	}
}

// correctStrays gives an out-of-class pixel to the texton holding at least 7 of its
// 8 neighbour slots. Decisions read the map as it was before the pass.
func correctStrays(m *LabelMap) int {
	out := m.Clone()
	fixed := 0
	for y := range m.H {
		for x := range m.W {
			if m.At(x, y) != OutOfClass {
				continue
			}
			nb := m.neighbors8(x, y)
			for _, v := range nb {
				if v < FirstTextonID {
					continue
				}
				agree := 0
				for _, u := range nb {
					if u == v {
						agree++
					}
				}
				if agree >= 7 {
					out.Set(x, y, v)
					fixed++
					break
				}
			}
		}
	}
	copy(m.Labels, out.Labels)
	return fixed
}

// ============ SLICING ============

type extent struct {
	minX, minY, maxX, maxY int
	empty                  bool
}

func newExtent() extent {
	return extent{empty: true}
}

func (e *extent) add(x, y int) {
	if e.empty {
		*e = extent{minX: x, minY: y, maxX: x, maxY: y}
		return
	}
	e.minX = min(e.minX, x)
	e.minY = min(e.minY, y)
	e.maxX = max(e.maxX, x)
	e.maxY = max(e.maxY, y)
}

func (e extent) rect() image.Rectangle {
	if e.empty {
		return image.Rectangle{}
	}
	return image.Rect(e.minX, e.minY, e.maxX+1, e.maxY+1)
}

// sliceTextons cuts n textons (ids FirstTextonID..FirstTextonID+n-1) out of src.
// A background cluster starts with one texton spanning all its resolved pixels.
func sliceTextons(src *image.NRGBA, m *LabelMap, c, n int, background bool) *Cluster {
	boxes := make([]extent, n)
	for i := range boxes {
		boxes[i] = newExtent()
	}
	whole := newExtent()
	for y := range m.H {
		for x := range m.W {
			id := m.At(x, y)
			if id < FirstTextonID {
				continue
			}
			whole.add(x, y)
			if idx := id - FirstTextonID; idx < n {
				boxes[idx].add(x, y)
			}
		}
	}

	cluster := NewCluster(c)
	if background && !whole.empty {
		t := cutTexton(src, m, whole.rect(), c, WholeClusterID, func(id int) bool { return id >= FirstTextonID })
		t.ImageFilling = true
		cluster.Add(t)
	}
	for idx, box := range boxes {
		if box.empty {
			continue
		}
		id := FirstTextonID + idx
		t := cutTexton(src, m, box.rect(), c, id, func(v int) bool { return v == id })
		t.ImageFilling = box.rect().Dx() >= m.W-fillingSlack && box.rect().Dy() >= m.H-fillingSlack
		cluster.Add(t)
	}
	return cluster
}

func cutTexton(src *image.NRGBA, m *LabelMap, box image.Rectangle, c, id int, member func(int) bool) *Texton {
	// A fresh NRGBA is all TextonBackground.
	patch := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if member(m.At(x, y)) {
				patch.SetNRGBA(x-box.Min.X, y-box.Min.Y, src.NRGBAAt(x, y))
			}
		}
	}
	pos := Interior
	if box.Min.X == 0 || box.Min.Y == 0 || box.Max.X == m.W || box.Max.Y == m.H {
		pos = Border
	}
	return newTexton(patch, box, c, id, pos)
}
