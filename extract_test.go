package textonizer

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestSeedLabels(t *testing.T) {
	classes := []int{0, 1, 1, 0}
	edges := image.NewGray(image.Rect(0, 0, 2, 2))
	edges.SetGray(1, 0, color.Gray{Y: 255})

	m := seedLabels(classes, 1, edges, 2, 2)
	want := []int{OutOfClass, Boundary, Unassigned, OutOfClass}
	for i, v := range want {
		if m.Labels[i] != v {
			t.Errorf("Labels[%d] = %d, want %d", i, m.Labels[i], v)
		}
	}
}

func TestFillConsumesBoundaryWithoutSpreading(t *testing.T) {
	m := mapFromRows("uubuu")
	n := growRegions(m, 0)
	if n != 2 {
		t.Fatalf("growRegions = %d, want 2", n)
	}
	want := []int{FirstTextonID, FirstTextonID, FirstTextonID, FirstTextonID + 1, FirstTextonID + 1}
	for i, v := range want {
		if m.Labels[i] != v {
			t.Errorf("Labels[%d] = %d, want %d", i, m.Labels[i], v)
		}
	}
}

func TestGrowRegionsDiscardsSmallRegions(t *testing.T) {
	m := mapFromRows(
		"uuuu....",
		"uuuu..u.",
		"uuuu....",
	)
	n := growRegions(m, 5)
	if n != 1 {
		t.Fatalf("growRegions = %d, want 1", n)
	}
	if got := m.At(6, 1); got != Unassigned {
		t.Errorf("speck label = %d, want Unassigned", got)
	}
	if got := m.Count(FirstTextonID); got != 12 {
		t.Errorf("texton pixels = %d, want 12", got)
	}
}

func TestGrowRegionsLargeRegionIterative(t *testing.T) {
	// Large enough that a recursive fill would be deep.
	m := NewLabelMap(600, 600)
	for i := range m.Labels {
		m.Labels[i] = Unassigned
	}
	if n := growRegions(m, 10); n != 1 {
		t.Fatalf("growRegions = %d, want 1", n)
	}
	if got := m.Count(FirstTextonID); got != 600*600 {
		t.Errorf("texton pixels = %d, want %d", got, 600*600)
	}
}

func TestRepairRemaining(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want []string
	}{
		{
			name: "single neighbour adopted",
			rows: []string{"00u", "00u", "uuu"},
			want: []string{"000", "000", "000"},
		},
		{
			name: "ambiguous pixel deferred",
			rows: []string{"0u1"},
			want: []string{"0u1"},
		},
		{
			name: "isolated pixel stays",
			rows: []string{"u..", "...", "..0"},
			want: []string{"u..", "...", "..0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mapFromRows(tt.rows...)
			repairRemaining(m)
			want := mapFromRows(tt.want...)
			for i := range want.Labels {
				if m.Labels[i] != want.Labels[i] {
					t.Errorf("Labels[%d] = %d, want %d", i, m.Labels[i], want.Labels[i])
				}
			}
		})
	}
}

func TestRepairRemainingIsFixpoint(t *testing.T) {
	m := mapFromRows(
		"000uuu111",
		"0u0uuuu11",
		"uuuu.uuuu",
		"22uuuuuu.",
	)
	repairRemaining(m)
	for y := range m.H {
		for x := range m.W {
			if m.At(x, y) != Unassigned {
				continue
			}
			if id := uniqueTexton(m.neighbors8(x, y)); id != Undefined {
				t.Errorf("pixel (%d,%d) still unassigned next to unique texton %d", x, y, id)
			}
		}
	}
	before := m.Clone()
	if passes := repairRemaining(m); passes != 1 {
		t.Errorf("second repair took %d passes, want 1", passes)
	}
	for i := range m.Labels {
		if m.Labels[i] != before.Labels[i] {
			t.Fatalf("second repair changed pixel %d", i)
		}
	}
}

func TestCorrectStrays(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want int
	}{
		{"surrounded", []string{"000", "0.0", "000"}, FirstTextonID},
		{"seven of eight", []string{"100", "0.0", "000"}, FirstTextonID},
		{"six of eight", []string{"110", "0.0", "000"}, OutOfClass},
		{"image corner", []string{".0", "00"}, OutOfClass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mapFromRows(tt.rows...)
			x, y := 1, 1
			if m.W == 2 {
				x, y = 0, 0
			}
			correctStrays(m)
			if got := m.At(x, y); got != tt.want {
				t.Errorf("label = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCorrectStraysDoesNotCascade(t *testing.T) {
	// The right pixel only reaches seven once the left one is corrected.
	m := mapFromRows(
		"0000",
		"0..0",
		"0001",
	)
	if fixed := correctStrays(m); fixed != 1 {
		t.Errorf("correctStrays = %d, want 1", fixed)
	}
	if got := m.At(1, 1); got != FirstTextonID {
		t.Errorf("left pixel = %d, want %d", got, FirstTextonID)
	}
	if got := m.At(2, 1); got != OutOfClass {
		t.Errorf("right pixel = %d, want OutOfClass", got)
	}
}

func TestSliceTextonsBoxesAreTight(t *testing.T) {
	src := paint(8, 6, func(x, y int) color.NRGBA { return color.NRGBA{uint8(x * 20), uint8(y * 20), 0, 255} })
	m := mapFromRows(
		"........",
		".00.....",
		"..0..11.",
		"..0...1.",
		"......1.",
		"........",
	)
	c := sliceTextons(src, m, 2, 2, false)
	if c.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", c.Count())
	}
	wantBoxes := []image.Rectangle{image.Rect(1, 1, 3, 4), image.Rect(5, 2, 7, 5)}
	for i, tx := range c.Textons {
		if tx.Box != wantBoxes[i] {
			t.Errorf("texton %d Box = %v, want %v", i, tx.Box, wantBoxes[i])
		}
		if tx.Cluster != 2 {
			t.Errorf("texton %d Cluster = %d, want 2", i, tx.Cluster)
		}
		if tx.Position != Interior {
			t.Errorf("texton %d Position = %v, want interior", i, tx.Position)
		}
		assertTight(t, tx)
		for y := tx.Box.Min.Y; y < tx.Box.Max.Y; y++ {
			for x := tx.Box.Min.X; x < tx.Box.Max.X; x++ {
				got := tx.Patch.NRGBAAt(x-tx.Box.Min.X, y-tx.Box.Min.Y)
				if m.At(x, y) == tx.ID {
					if got != src.NRGBAAt(x, y) {
						t.Errorf("texton %d pixel (%d,%d) = %v, want source color", i, x, y, got)
					}
				} else if got != TextonBackground {
					t.Errorf("texton %d pixel (%d,%d) = %v, want background", i, x, y, got)
				}
			}
		}
	}
}

// assertTight checks that every edge row and column of the patch holds an opaque pixel.
func assertTight(t *testing.T, tx *Texton) {
	t.Helper()
	w, h := tx.Patch.Rect.Dx(), tx.Patch.Rect.Dy()
	opaqueRow := func(y int) bool {
		for x := range w {
			if !isTextonBackground(tx.Patch.NRGBAAt(x, y)) {
				return true
			}
		}
		return false
	}
	opaqueCol := func(x int) bool {
		for y := range h {
			if !isTextonBackground(tx.Patch.NRGBAAt(x, y)) {
				return true
			}
		}
		return false
	}
	if !opaqueRow(0) || !opaqueRow(h-1) || !opaqueCol(0) || !opaqueCol(w-1) {
		t.Errorf("texton %d box %v is not tight", tx.ID, tx.Box)
	}
}

func TestSliceTextonsBackgroundCluster(t *testing.T) {
	src := paint(20, 20, func(int, int) color.NRGBA { return gray })
	m := NewLabelMap(20, 20)
	for y := range 20 {
		for x := range 20 {
			id := FirstTextonID
			if x >= 10 {
				id = FirstTextonID + 1
			}
			m.Set(x, y, id)
		}
	}
	c := sliceTextons(src, m, 0, 2, true)
	if c.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", c.Count())
	}
	whole := c.Textons[0]
	if whole.ID != WholeClusterID || !whole.ImageFilling {
		t.Errorf("first texton = id %d filling %v, want whole-cluster image-filling texton", whole.ID, whole.ImageFilling)
	}
	if whole.Box != image.Rect(0, 0, 20, 20) {
		t.Errorf("whole Box = %v, want full image", whole.Box)
	}
	if !c.Background {
		t.Error("Background = false, want true")
	}
	// Each half is 10 wide: within 10 pixels of the 20 pixel source in both directions.
	for _, tx := range c.Textons[1:] {
		if !tx.ImageFilling {
			t.Errorf("texton %d ImageFilling = false, want true", tx.ID)
		}
		if tx.Position != Border {
			t.Errorf("texton %d Position = %v, want border", tx.ID, tx.Position)
		}
	}
	if c.Lookup(FirstTextonID+1) != c.Textons[2] {
		t.Error("Lookup did not return the texton with that id")
	}
}

// sceneClass is a 50x50 three-class scene: class 0 is a 25x25 square plus a 3 pixel
// speck touching it diagonally, class 1 the rest of the top half, class 2 the bottom.
func sceneClass(x, y int) int {
	switch {
	case x < 25 && y < 25:
		return 0
	case y == 25 && x >= 25 && x <= 27:
		return 0
	case y < 25:
		return 1
	default:
		return 2
	}
}

func TestExtractDiscardsSpeck(t *testing.T) {
	src := paint(50, 50, func(x, y int) color.NRGBA {
		return color.NRGBA{uint8(80 * sceneClass(x, y)), 90, 90, 255}
	})
	opt := DefaultOptions()
	opt.NumClusters = 3
	opt.MinTextonSize = 5
	ex := &Extractor{Segmenter: classesOf(50, 50, sceneClass), Logger: quietLogger()}

	res, err := ex.Extract(src, opt)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Clusters) != 3 {
		t.Fatalf("clusters = %d, want 3", len(res.Clusters))
	}
	c0 := res.Clusters[0]
	if c0.Count() != 1 {
		t.Fatalf("cluster 0 Count() = %d, want 1", c0.Count())
	}
	tx := c0.Textons[0]
	if got := tx.Pixels(); got != 25*25+3 {
		t.Errorf("Pixels() = %d, want %d", got, 25*25+3)
	}
	if tx.Box != image.Rect(0, 0, 28, 26) {
		t.Errorf("Box = %v, want %v", tx.Box, image.Rect(0, 0, 28, 26))
	}
	if n := res.Maps.Layers[0].Count(Unassigned); n != 0 {
		t.Errorf("unassigned pixels = %d, want 0", n)
	}
	if tx.Position != Border {
		t.Errorf("Position = %v, want border", tx.Position)
	}
	for c, cl := range res.Clusters {
		for _, tx := range cl.Textons {
			assertTight(t, tx)
			if tx.DilationArea != UndefinedDilation {
				t.Errorf("cluster %d texton %d DilationArea = %d before analysis", c, tx.ID, tx.DilationArea)
			}
		}
	}
}

func TestExtractBackgroundPixel(t *testing.T) {
	class := func(x, y int) int {
		if x >= 10 && x < 20 && y >= 10 && y < 20 {
			return 1
		}
		return 0
	}
	src := paint(30, 30, func(x, y int) color.NRGBA {
		if class(x, y) == 1 {
			return red
		}
		return gray
	})
	opt := DefaultOptions()
	opt.NumClusters = 2
	opt.MinTextonSize = 5
	opt.Background = &image.Point{X: 1, Y: 1}
	ex := &Extractor{Segmenter: classesOf(30, 30, class), Logger: quietLogger()}

	res, err := ex.Extract(src, opt)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	bg := res.Clusters[0]
	if !bg.Background {
		t.Error("cluster 0 Background = false, want true")
	}
	if bg.Count() != 2 || bg.Textons[0].ID != WholeClusterID {
		t.Errorf("cluster 0 = %d textons (first id %d), want whole-cluster texton first", bg.Count(), bg.Textons[0].ID)
	}
	dots := res.Clusters[1]
	if dots.Background || dots.Count() != 1 {
		t.Fatalf("cluster 1 = %d textons background %v, want 1 regular texton", dots.Count(), dots.Background)
	}
	if dots.Textons[0].Position != Interior {
		t.Errorf("square Position = %v, want interior", dots.Textons[0].Position)
	}
	if owner := res.Maps.Owner(15, 15); owner != 1 {
		t.Errorf("Owner(15,15) = %d, want 1", owner)
	}
}

func TestExtractBoundarySplitsTextons(t *testing.T) {
	// A vertical edge at x == 5 splits one class into two textons; the edge column
	// joins the texton grown first.
	edges := edgeFunc(func(g *image.Gray) *image.Gray {
		out := image.NewGray(g.Rect)
		for y := range g.Rect.Dy() {
			out.SetGray(5, y, color.Gray{Y: 255})
		}
		return out
	})
	src := paint(11, 4, func(int, int) color.NRGBA { return gray })
	opt := DefaultOptions()
	opt.NumClusters = 1
	opt.MinTextonSize = 3
	ex := &Extractor{
		Segmenter:    classesOf(11, 4, func(int, int) int { return 0 }),
		EdgeDetector: edges,
		Logger:       quietLogger(),
	}
	res, err := ex.Extract(src, opt)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	c := res.Clusters[0]
	if c.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", c.Count())
	}
	if got := c.Textons[0].Box; got != image.Rect(0, 0, 6, 4) {
		t.Errorf("first Box = %v, want %v", got, image.Rect(0, 0, 6, 4))
	}
	if got := c.Textons[1].Box; got != image.Rect(6, 0, 11, 4) {
		t.Errorf("second Box = %v, want %v", got, image.Rect(6, 0, 11, 4))
	}
}

type edgeFunc func(*image.Gray) *image.Gray

func (f edgeFunc) Detect(g *image.Gray) *image.Gray { return f(g) }

func TestExtractValidation(t *testing.T) {
	src := paint(4, 4, func(int, int) color.NRGBA { return gray })
	good := classesOf(4, 4, func(int, int) int { return 0 })
	tests := []struct {
		name string
		seg  Segmenter
		opt  func(*Options)
		code Code
	}{
		{"no segmenter", nil, nil, ErrCodeInvalidInput},
		{"zero clusters", good, func(o *Options) { o.NumClusters = 0 }, ErrCodeInvalidInput},
		{"background outside", good, func(o *Options) { o.Background = &image.Point{X: 9, Y: 0} }, ErrCodeInvalidInput},
		{"short labels", segmentFunc(func(image.Image, int) ([]int, error) { return []int{0}, nil }), nil, ErrCodeSegmentation},
		{"label out of range", classesOf(4, 4, func(int, int) int { return 7 }), nil, ErrCodeSegmentation},
		{"segmenter error", segmentFunc(func(image.Image, int) ([]int, error) { return nil, errors.New("boom") }), nil, ErrCodeSegmentation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := DefaultOptions()
			opt.NumClusters = 1
			if tt.opt != nil {
				tt.opt(&opt)
			}
			ex := &Extractor{Segmenter: tt.seg, Logger: quietLogger()}
			_, err := ex.Extract(src, opt)
			if !IsCode(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}
