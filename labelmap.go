package textonizer

// Label map states. Values >= FirstTextonID are texton ids.
const (
	Undefined     = -1 // returned for lookups outside the map
	OutOfClass    = 0
	Boundary      = 1
	Unassigned    = 2
	FirstTextonID = 3
)

// LabelMap holds one extraction state per source pixel for a single cluster.
type LabelMap struct {
	W, H   int
	Labels []int // len = W*H
}

func NewLabelMap(w, h int) *LabelMap {
	return &LabelMap{W: w, H: h, Labels: make([]int, w*h)}
}

func labelOffset(w, x, y int) int {
	return y*w + x
}

func (m *LabelMap) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.W && y < m.H
}

// At returns the label at (x, y) or Undefined outside the map.
func (m *LabelMap) At(x, y int) int {
	if !m.inside(x, y) {
		return Undefined
	}
	return m.Labels[labelOffset(m.W, x, y)]
}

func (m *LabelMap) Set(x, y, label int) {
	m.Labels[labelOffset(m.W, x, y)] = label
}

func (m *LabelMap) Clone() *LabelMap {
	return &LabelMap{W: m.W, H: m.H, Labels: append([]int(nil), m.Labels...)}
}

// Count returns how many pixels carry label.
func (m *LabelMap) Count(label int) int {
	n := 0
	for _, v := range m.Labels {
		if v == label {
			n++
		}
	}
	return n
}

var (
	dx8 = [8]int{-1, 1, 0, 0, 1, -1, 1, -1}
	dy8 = [8]int{0, 0, -1, 1, 1, 1, -1, -1}
	dx4 = [4]int{1, -1, 0, 0}
	dy4 = [4]int{0, 0, 1, -1}
)

// neighbors8 returns the eight surrounding labels; slots outside the map hold Undefined.
func (m *LabelMap) neighbors8(x, y int) [8]int {
	var out [8]int
	for k := range 8 {
		out[k] = m.At(x+dx8[k], y+dy8[k])
	}
	return out
}

// UnifiedMap stacks the label maps of every cluster, indexed by cluster id.
// It is written once per cluster during extraction and read-only afterwards.
type UnifiedMap struct {
	W, H   int
	Layers []*LabelMap
}

func NewUnifiedMap(w, h int) *UnifiedMap {
	return &UnifiedMap{W: w, H: h}
}

func (u *UnifiedMap) add(m *LabelMap) {
	u.Layers = append(u.Layers, m)
}

// Lookup returns the label of cluster c at (x, y).
func (u *UnifiedMap) Lookup(c, x, y int) int {
	if c < 0 || c >= len(u.Layers) {
		return Undefined
	}
	return u.Layers[c].At(x, y)
}

// Owner returns the cluster whose texton covers (x, y), the last one winning,
// or -1 when no texton covers it.
func (u *UnifiedMap) Owner(x, y int) int {
	owner := -1
	for c, m := range u.Layers {
		if m.At(x, y) >= FirstTextonID {
			owner = c
		}
	}
	return owner
}
