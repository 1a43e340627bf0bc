package textonizer

import (
	"image"
	"image/draw"
)

// newCanvas returns a w x h canvas where every pixel is ResultBackground.
func newCanvas(w, h int) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(canvas.Pix); i += 4 {
		canvas.Pix[i+0] = ResultBackground.R
		canvas.Pix[i+1] = ResultBackground.G
		canvas.Pix[i+2] = ResultBackground.B
		canvas.Pix[i+3] = ResultBackground.A
	}
	return canvas
}

func painted(canvas *image.NRGBA, x, y int) bool {
	return canvas.NRGBAAt(x, y) != ResultBackground
}

// insertTexton copies the non-background pixels of patch onto canvas with the patch
// origin at (x, y). Nothing is written unless the whole patch fits.
func insertTexton(canvas *image.NRGBA, x, y int, patch *image.NRGBA) bool {
	pb := patch.Rect
	dst := image.Rect(x, y, x+pb.Dx(), y+pb.Dy())
	if x < 0 || y < 0 || !dst.In(canvas.Rect) {
		return false
	}
	for j := range pb.Dy() {
		for i := range pb.Dx() {
			c := patch.NRGBAAt(pb.Min.X+i, pb.Min.Y+j)
			if isTextonBackground(c) {
				continue
			}
			canvas.SetNRGBA(x+i, y+j, c)
		}
	}
	return true
}

// overlap counts, for the opaque patch pixels landing inside the canvas, how many
// hit painted content and how many would be newly painted.
func overlap(canvas *image.NRGBA, x, y int, patch *image.NRGBA) (hits, fresh int) {
	pb := patch.Rect
	for j := range pb.Dy() {
		for i := range pb.Dx() {
			if isTextonBackground(patch.NRGBAAt(pb.Min.X+i, pb.Min.Y+j)) {
				continue
			}
			p := image.Pt(x+i, y+j)
			if !p.In(canvas.Rect) {
				continue
			}
			if painted(canvas, p.X, p.Y) {
				hits++
			} else {
				fresh++
			}
		}
	}
	return hits, fresh
}

// clearArea reports whether nothing has been painted inside r.
func clearArea(canvas *image.NRGBA, r image.Rectangle) bool {
	r = r.Intersect(canvas.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if painted(canvas, x, y) {
				return false
			}
		}
	}
	return true
}

// checkSurrounding decides whether t may go to (x, y). Textons learned as touching
// their neighbours may overlap painted content by at most maxOverlap pixels; the others
// need their box grown by the dilation area to be empty.
func checkSurrounding(canvas *image.NRGBA, x, y int, t *Texton, maxOverlap int) bool {
	if t.DilationArea < 2 {
		hits, fresh := overlap(canvas, x, y, t.Patch)
		return hits <= maxOverlap && fresh > 0
	}
	a := t.DilationArea
	r := image.Rect(x-a, y-a, x+t.Patch.Rect.Dx()+a, y+t.Patch.Rect.Dy()+a)
	return clearArea(canvas, r)
}

// composite copies every painted canvas pixel onto plate.
func composite(plate, canvas *image.NRGBA) {
	b := canvas.Rect.Intersect(plate.Rect)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if painted(canvas, x, y) {
				plate.SetNRGBA(x, y, canvas.NRGBAAt(x, y))
			}
		}
	}
}

// cropMargin drops margin pixels from every side of img.
func cropMargin(img *image.NRGBA, margin int) *image.NRGBA {
	b := img.Rect
	w := max(b.Dx()-2*margin, 0)
	h := max(b.Dy()-2*margin, 0)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Rect, img, b.Min.Add(image.Pt(margin, margin)), draw.Src)
	return out
}
