//go:build gocv

package utils

import (
	"image"
	"image/draw"

	"github.com/charmbracelet/log"
	"github.com/setanarut/textonizer"
	"gocv.io/x/gocv"
)

func init() {
	edgeDetectors["canny"] = func(low, high float64) textonizer.EdgeDetector {
		return CannyEdges{Low: float32(low), High: float32(high)}
	}
	blurrers["cv"] = func(size int) textonizer.Blurrer { return CVBlur{Size: size} }
}

// CannyEdges runs OpenCV's Canny detector.
type CannyEdges struct {
	Low, High float32
}

func (c CannyEdges) Detect(gray *image.Gray) *image.Gray {
	out := image.NewGray(gray.Rect)
	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		log.Warn("canny: converting input", "err", err)
		return out
	}
	defer src.Close()
	edges := gocv.NewMat()
	defer edges.Close()
	if err := gocv.Canny(src, &edges, c.Low, c.High); err != nil {
		log.Warn("canny: detecting edges", "err", err)
		return out
	}

	img, err := edges.ToImage()
	if err != nil {
		log.Warn("canny: converting result", "err", err)
		return out
	}
	draw.Draw(out, out.Rect, img, img.Bounds().Min, draw.Src)
	return out
}

// CVBlur is OpenCV's normalized box filter.
type CVBlur struct {
	Size int // 0 means 3
}

func (b CVBlur) Blur(img image.Image) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Rect, img, img.Bounds().Min, draw.Src)
	size := b.Size
	if size <= 0 {
		size = 3
	}
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		log.Warn("blur: converting input", "err", err)
		return out
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	if err := gocv.Blur(src, &dst, image.Pt(size, size)); err != nil {
		log.Warn("blur: filtering", "err", err)
		return out
	}

	res, err := dst.ToImage()
	if err != nil {
		log.Warn("blur: converting result", "err", err)
		return out
	}
	draw.Draw(out, out.Rect, res, res.Bounds().Min, draw.Src)
	return out
}
