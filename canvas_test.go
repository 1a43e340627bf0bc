package textonizer

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func TestNewCanvasIsUnpainted(t *testing.T) {
	c := newCanvas(3, 2)
	for y := range 2 {
		for x := range 3 {
			if painted(c, x, y) {
				t.Fatalf("pixel (%d,%d) painted on a fresh canvas", x, y)
			}
		}
	}
}

func TestInsertTextonOutOfBoundsLeavesCanvas(t *testing.T) {
	patch := paint(3, 3, func(int, int) color.NRGBA { return red })
	for _, p := range []image.Point{{8, 8}, {-1, 0}, {0, -1}, {10, 0}, {7, 8}} {
		canvas := newCanvas(10, 10)
		before := bytes.Clone(canvas.Pix)
		if insertTexton(canvas, p.X, p.Y, patch) {
			t.Errorf("insertTexton at %v = true, want false", p)
		}
		if !bytes.Equal(before, canvas.Pix) {
			t.Errorf("insertTexton at %v modified the canvas", p)
		}
	}
}

func TestInsertTextonSkipsTextonBackground(t *testing.T) {
	patch := paint(2, 2, func(x, y int) color.NRGBA {
		if x == 1 && y == 1 {
			return TextonBackground
		}
		return red
	})
	canvas := newCanvas(10, 10)
	if !insertTexton(canvas, 8, 8, patch) {
		t.Fatal("insertTexton at the far corner = false, want true")
	}
	for _, p := range []image.Point{{8, 8}, {9, 8}, {8, 9}} {
		if got := canvas.NRGBAAt(p.X, p.Y); got != red {
			t.Errorf("pixel %v = %v, want %v", p, got, red)
		}
	}
	if painted(canvas, 9, 9) {
		t.Error("masked pixel was painted")
	}
}

func TestCheckSurroundingOverlap(t *testing.T) {
	canvas := newCanvas(10, 10)
	insertTexton(canvas, 0, 0, paint(2, 2, func(int, int) color.NRGBA { return red }))

	tests := []struct {
		name       string
		x, y       int
		size       int
		maxOverlap int
		want       bool
	}{
		{"within tolerance", 0, 0, 3, 10, true},
		{"too much overlap", 0, 0, 3, 3, false},
		{"nothing new", 0, 0, 2, 10, false},
		{"untouched area", 5, 5, 3, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := solidTexton(FirstTextonID, tt.size, tt.size, red)
			tx.DilationArea = 1
			if got := checkSurrounding(canvas, tt.x, tt.y, tx, tt.maxOverlap); got != tt.want {
				t.Errorf("checkSurrounding = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckSurroundingClearance(t *testing.T) {
	canvas := newCanvas(20, 20)
	canvas.SetNRGBA(0, 0, red)
	tx := solidTexton(FirstTextonID, 2, 2, red)
	tx.DilationArea = 3

	if !checkSurrounding(canvas, 4, 4, tx, 0) {
		t.Error("checkSurrounding at (4,4) = false, want true")
	}
	if checkSurrounding(canvas, 3, 3, tx, 100) {
		t.Error("checkSurrounding at (3,3) = true, want false")
	}
	// The grown box may leave the canvas.
	if !checkSurrounding(canvas, 17, 17, tx, 0) {
		t.Error("checkSurrounding near the far corner = false, want true")
	}
}

func TestCropMarginRoundTrip(t *testing.T) {
	for _, tc := range []struct{ w, h, margin int }{{5, 7, 0}, {5, 7, 3}, {1, 1, 10}, {12, 4, 1}} {
		src := paint(tc.w+2*tc.margin, tc.h+2*tc.margin, func(x, y int) color.NRGBA {
			return color.NRGBA{uint8(x), uint8(y), 7, 255}
		})
		out := cropMargin(src, tc.margin)
		if got := out.Bounds().Size(); got != image.Pt(tc.w, tc.h) {
			t.Fatalf("%+v: size = %v, want %dx%d", tc, got, tc.w, tc.h)
		}
		for y := range tc.h {
			for x := range tc.w {
				if got, want := out.NRGBAAt(x, y), src.NRGBAAt(x+tc.margin, y+tc.margin); got != want {
					t.Fatalf("%+v: pixel (%d,%d) = %v, want %v", tc, x, y, got, want)
				}
			}
		}
	}
}

func TestComposite(t *testing.T) {
	plate := paint(3, 1, func(int, int) color.NRGBA { return gray })
	canvas := newCanvas(3, 1)
	canvas.SetNRGBA(1, 0, red)
	composite(plate, canvas)
	want := []color.NRGBA{gray, red, gray}
	for x, w := range want {
		if got := plate.NRGBAAt(x, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
}
