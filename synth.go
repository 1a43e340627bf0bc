package textonizer

import (
	"image"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"
)

// Synthesizer tiles analyzed textons onto a new canvas.
type Synthesizer struct {
	Options Options
	Blurrer Blurrer    // smooths the background plate; nil leaves it raw
	Rand    *rand.Rand // nil: randomly seeded
	Logger  *log.Logger
}

// placement is a committed texton position whose co-occurrences still have to be expanded.
type placement struct {
	X, Y  int
	Edges []CoOccurrence
}

// Synthesize grows a w x h image out of clusters. The clusters are filtered and
// their appearance counts updated in place.
func (s *Synthesizer) Synthesize(clusters []*Cluster, w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, NewError(ErrCodeInvalidInput, "output size must be positive, got %dx%d", w, h)
	}
	logger := loggerOr(s.Logger)
	rng := s.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	margin := max(s.Options.Margin, 0)
	canvas := newCanvas(w+2*margin, h+2*margin)

	plateSource := backgroundTexton(clusters)
	if plateSource == nil {
		return nil, ErrNoTextons
	}
	plate := backgroundPlate(plateSource, canvas.Rect, rng)
	if s.Blurrer != nil {
		plate = s.Blurrer.Blur(plate)
	}

	noisy := dropNoisy(clusters, s.Options.NoiseThreshold, s.Options.TooCloseDilation)
	edged := dropBorder(clusters)
	logger.Debug("filtered textons", "noisy", noisy, "border_or_filling", edged, "remaining", TextonCount(clusters))

	seed := chooseSeed(clusters, s.Options.SeedCluster, rng)
	if seed == nil {
		return nil, ErrUnseedable
	}
	placed := s.grow(canvas, clusters, seed)
	logger.Info("synthesis complete", "width", w, "height", h, "placements", placed)

	composite(plate, canvas)
	return cropMargin(plate, margin), nil
}

// ============ BACKGROUND ============

// backgroundTexton picks the first image-filling texton, falling back to the first
// texton with any pixel.
func backgroundTexton(clusters []*Cluster) *Texton {
	var fallback *Texton
	for _, c := range clusters {
		for _, t := range c.Textons {
			if t.Pixels() == 0 {
				continue
			}
			if t.ImageFilling {
				return t
			}
			if fallback == nil {
				fallback = t
			}
		}
	}
	return fallback
}

// backgroundPlate fills bounds with colors drawn uniformly from the opaque pixels of t.
func backgroundPlate(t *Texton, bounds image.Rectangle, rng *rand.Rand) *image.NRGBA {
	pb := t.Patch.Rect
	var opaque []image.Point
	for y := pb.Min.Y; y < pb.Max.Y; y++ {
		for x := pb.Min.X; x < pb.Max.X; x++ {
			if !isTextonBackground(t.Patch.NRGBAAt(x, y)) {
				opaque = append(opaque, image.Pt(x, y))
			}
		}
	}
	plate := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			p := opaque[rng.IntN(len(opaque))]
			plate.SetNRGBA(x, y, t.Patch.NRGBAAt(p.X, p.Y))
		}
	}
	return plate
}

// ============ FILTERS ============

// dropNoisy removes crowded textons from clusters whose textons are mostly far apart.
// Textons never analyzed keep their place.
func dropNoisy(clusters []*Cluster, threshold float64, tooClose int) int {
	dropped := 0
	for _, c := range clusters {
		var areas []float64
		for _, t := range c.Textons {
			if t.DilationArea != UndefinedDilation {
				areas = append(areas, float64(t.DilationArea))
			}
		}
		if len(areas) == 0 || stat.Mean(areas, nil) <= threshold {
			continue
		}
		dropped += c.Filter(func(t *Texton) bool {
			return t.DilationArea == UndefinedDilation || t.DilationArea >= tooClose
		})
	}
	return dropped
}

// dropBorder removes textons cut by the image edge and image-filling textons.
func dropBorder(clusters []*Cluster) int {
	dropped := 0
	for _, c := range clusters {
		dropped += c.Filter(func(t *Texton) bool {
			return t.Position == Interior && !t.ImageFilling
		})
	}
	return dropped
}

// ============ GROWTH ============

func chooseSeed(clusters []*Cluster, from int, rng *rand.Rand) *Texton {
	for i := max(from, 0); i < len(clusters); i++ {
		if n := clusters[i].Count(); n > 0 {
			return clusters[i].Textons[rng.IntN(n)]
		}
	}
	return nil
}

// grow places seed at the canvas center and expands co-occurrences breadth first.
// It returns the number of committed placements, the seed included when it fit.
func (s *Synthesizer) grow(canvas *image.NRGBA, clusters []*Cluster, seed *Texton) int {
	logger := loggerOr(s.Logger)
	x, y := canvas.Rect.Dx()/2, canvas.Rect.Dy()/2
	placed := 0
	if insertTexton(canvas, x, y, seed.Patch) {
		placed++
	} else {
		logger.Warn("seed texton does not fit the canvas", "cluster", seed.Cluster, "size", seed.Patch.Rect.Size())
	}

	queue := []placement{{X: x, Y: y, Edges: seed.CoOccurrences}}
	for head := 0; head < len(queue); head++ {
		item := queue[head]
		for _, e := range item.Edges {
			nx, ny := item.X+e.DX, item.Y+e.DY
			if !image.Pt(nx, ny).In(canvas.Rect) || e.Cluster < 0 || e.Cluster >= len(clusters) {
				continue
			}
			cl := clusters[e.Cluster]
			for i, t := range cl.Textons {
				if !checkSurrounding(canvas, nx, ny, t, s.Options.MaxOverlap) {
					continue
				}
				if !insertTexton(canvas, nx, ny, t.Patch) {
					continue
				}
				queue = append(queue, placement{X: nx, Y: ny, Edges: t.CoOccurrences})
				cl.use(i)
				placed++
				break
			}
		}
		queue[head] = placement{}
	}
	return placed
}
