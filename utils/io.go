package utils

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/setanarut/textonizer"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ReadImage decodes a PNG, JPEG, GIF, BMP, TIFF or WebP file.
func ReadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, textonizer.WrapError(textonizer.ErrCodeIO, err, "opening %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, textonizer.WrapError(textonizer.ErrCodeIO, err, "decoding %s", path)
	}
	return img, nil
}

// SaveImage writes img as PNG, creating missing parent directories.
func SaveImage(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return textonizer.WrapError(textonizer.ErrCodeIO, err, "creating directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return textonizer.WrapError(textonizer.ErrCodeIO, err, "creating %s", path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return textonizer.WrapError(textonizer.ErrCodeIO, err, "encoding %s", path)
	}
	if err := f.Close(); err != nil {
		return textonizer.WrapError(textonizer.ErrCodeIO, err, "closing %s", path)
	}
	return nil
}

// SaveTextons writes every texton patch to dir/cluster_NN/texton_IIII.png and returns
// the number of files written.
func SaveTextons(clusters []*textonizer.Cluster, dir string) (int, error) {
	n := 0
	for _, c := range clusters {
		for i, t := range c.Textons {
			name := filepath.Join(dir, fmt.Sprintf("cluster_%02d", c.ID), fmt.Sprintf("texton_%04d.png", i))
			if err := SaveImage(t.Patch, name); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// SaveLabelMaps writes one false-color image per cluster layer to dir/labels_NN.png
// and the cluster ownership of every pixel to dir/owners.png.
func SaveLabelMaps(u *textonizer.UnifiedMap, dir string) error {
	for c, m := range u.Layers {
		if err := SaveImage(LabelMapImage(m), filepath.Join(dir, fmt.Sprintf("labels_%02d.png", c))); err != nil {
			return err
		}
	}
	return SaveImage(OwnerImage(u), filepath.Join(dir, "owners.png"))
}

// OwnerImage paints each pixel in the hue of the cluster whose texton covers it,
// black where no texton does.
func OwnerImage(u *textonizer.UnifiedMap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, u.W, u.H))
	for y := range u.H {
		for x := range u.W {
			c := outOfClassColor
			if owner := u.Owner(x, y); owner >= 0 {
				c = textonColor(textonizer.FirstTextonID + owner)
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

var (
	outOfClassColor = color.NRGBA{0, 0, 0, 255}
	boundaryColor   = color.NRGBA{255, 255, 255, 255}
	unassignedColor = color.NRGBA{128, 128, 128, 255}
)

// LabelMapImage renders a label map: out-of-class black, boundaries white,
// unassigned gray and each texton in its own hue.
func LabelMapImage(m *textonizer.LabelMap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.W, m.H))
	hues := make(map[int]color.NRGBA)
	for y := range m.H {
		for x := range m.W {
			var c color.NRGBA
			switch v := m.At(x, y); v {
			case textonizer.OutOfClass:
				c = outOfClassColor
			case textonizer.Boundary:
				c = boundaryColor
			case textonizer.Unassigned:
				c = unassignedColor
			default:
				var ok bool
				if c, ok = hues[v]; !ok {
					c = textonColor(v)
					hues[v] = c
				}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// textonColor spreads ids around the hue circle by the golden angle.
func textonColor(id int) color.NRGBA {
	hue := math.Mod(float64(id-textonizer.FirstTextonID)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.75, 0.95).Clamped().RGB255()
	return color.NRGBA{r, g, b, 255}
}
