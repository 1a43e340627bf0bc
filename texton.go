package textonizer

import (
	"image"
	"image/color"
)

var (
	// TextonBackground marks patch pixels that do not belong to the texton.
	TextonBackground = color.NRGBA{0, 0, 0, 0}
	// ResultBackground marks canvas pixels nothing was painted on.
	ResultBackground = color.NRGBA{5, 5, 5, 0}
)

const (
	// WholeClusterID is the label id of the synthesized background texton.
	WholeClusterID = -1
	// UndefinedDilation is the dilation area of a texton never analyzed.
	UndefinedDilation = -1
	// fillingSlack is how close to the source size a box must come to count as image-filling.
	fillingSlack = 10
)

type Position int

const (
	Interior Position = iota
	Border
)

func (p Position) String() string {
	if p == Border {
		return "border"
	}
	return "interior"
}

// CoOccurrence is a learned offset from a texton's box origin to a neighbour's box origin.
type CoOccurrence struct {
	DX, DY  int
	Cluster int
}

// Texton is a background-masked patch of source pixels.
type Texton struct {
	Patch         *image.NRGBA
	Box           image.Rectangle // source coordinates, Max exclusive
	Cluster       int
	ID            int
	Position      Position
	ImageFilling  bool
	DilationArea  int
	CoOccurrences []CoOccurrence
	Appearances   int

	seq int
}

func newTexton(patch *image.NRGBA, box image.Rectangle, cluster, id int, pos Position) *Texton {
	return &Texton{
		Patch:        patch,
		Box:          box,
		Cluster:      cluster,
		ID:           id,
		Position:     pos,
		DilationArea: UndefinedDilation,
	}
}

func isTextonBackground(c color.NRGBA) bool {
	return c == TextonBackground
}

// Pixels counts the non-background pixels of the patch.
func (t *Texton) Pixels() int {
	n := 0
	b := t.Patch.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !isTextonBackground(t.Patch.NRGBAAt(x, y)) {
				n++
			}
		}
	}
	return n
}

// Cluster groups the textons of one texture class.
type Cluster struct {
	ID         int
	Textons    []*Texton
	Background bool

	byID map[int]*Texton
}

func NewCluster(id int) *Cluster {
	return &Cluster{ID: id, byID: make(map[int]*Texton)}
}

func (c *Cluster) Count() int {
	return len(c.Textons)
}

// Add appends t, records its insertion sequence and raises the background flag for image-filling textons.
func (c *Cluster) Add(t *Texton) {
	if c.byID == nil {
		c.byID = make(map[int]*Texton)
	}
	t.Cluster = c.ID
	t.seq = len(c.byID)
	c.byID[t.ID] = t
	c.Textons = append(c.Textons, t)
	if t.ImageFilling {
		c.Background = true
	}
}

// Lookup finds a texton by label id, including textons already filtered out of Textons.
func (c *Cluster) Lookup(id int) *Texton {
	return c.byID[id]
}

// Filter keeps the textons for which keep returns true and reports how many were dropped.
// The background flag is recomputed from the survivors.
func (c *Cluster) Filter(keep func(*Texton) bool) int {
	kept := c.Textons[:0]
	for _, t := range c.Textons {
		if keep(t) {
			kept = append(kept, t)
		}
	}
	dropped := len(c.Textons) - len(kept)
	clear(c.Textons[len(kept):])
	c.Textons = kept
	if dropped > 0 && c.Background {
		c.Background = false
		for _, t := range c.Textons {
			if t.ImageFilling {
				c.Background = true
				break
			}
		}
	}
	return dropped
}

func lessUsed(a, b *Texton) bool {
	if a.Appearances != b.Appearances {
		return a.Appearances < b.Appearances
	}
	return a.seq < b.seq
}

// use records one more appearance of the texton at index i and moves it back
// so the ordering stays sorted by (appearances, insertion sequence).
func (c *Cluster) use(i int) {
	t := c.Textons[i]
	t.Appearances++
	for i+1 < len(c.Textons) && lessUsed(c.Textons[i+1], t) {
		c.Textons[i] = c.Textons[i+1]
		i++
	}
	c.Textons[i] = t
}

// TextonCount sums the textons over all clusters.
func TextonCount(clusters []*Cluster) int {
	n := 0
	for _, c := range clusters {
		n += c.Count()
	}
	return n
}
