package textonizer

import (
	"image"

	"github.com/charmbracelet/log"
	"github.com/disintegration/gift"
)

// Analyzer learns, for every interior texton, which textons lie around it.
type Analyzer struct {
	Logger *log.Logger
}

type occurrence struct {
	texton   *Texton
	distance int // dilation step of first contact
}

// Analyze sets DilationArea and CoOccurrences on every interior, non image-filling texton.
// maps must hold one layer per cluster, in cluster order.
func (a *Analyzer) Analyze(clusters []*Cluster, maps *UnifiedMap, opt Options) {
	logger := loggerOr(a.Logger)
	dilate := gift.New(gift.Maximum(2*max(opt.DilationRadius, 1)+1, false))
	dilate.SetParallelization(false)

	analyzed, edges := 0, 0
	for _, cl := range clusters {
		for _, t := range cl.Textons {
			if t.Position != Interior || t.ImageFilling {
				continue
			}
			occ := findNeighbours(t, clusters, maps, dilate, opt)
			applyOccurrences(t, occ)
			analyzed++
			edges += len(t.CoOccurrences)
		}
	}
	logger.Info("co-occurrence analysis complete", "textons", analyzed, "edges", edges)
}

// silhouette renders t's own pixels inside roi as 255 on black.
func silhouette(t *Texton, maps *UnifiedMap, roi image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, roi.Dx(), roi.Dy()))
	for y := t.Box.Min.Y; y < t.Box.Max.Y; y++ {
		for x := t.Box.Min.X; x < t.Box.Max.X; x++ {
			if maps.Lookup(t.Cluster, x, y) == t.ID {
				img.Pix[img.PixOffset(x-roi.Min.X, y-roi.Min.Y)] = 255
			}
		}
	}
	return img
}

// findNeighbours grows t's silhouette one dilation step at a time and records every
// texton it touches together with the step of first contact.
func findNeighbours(t *Texton, clusters []*Cluster, maps *UnifiedMap, dilate *gift.GIFT, opt Options) []occurrence {
	margin := opt.MaxDilations * max(opt.DilationRadius, 1)
	roi := t.Box.Inset(-margin).Intersect(image.Rect(0, 0, maps.W, maps.H))
	cur := silhouette(t, maps, roi)

	var occ []occurrence
	seen := make(map[*Texton]bool)
	limit := opt.MaxDilations
	for step := 0; step < limit; step++ {
		next := image.NewGray(dilate.Bounds(cur.Bounds()))
		dilate.Draw(next, cur)
		cur = next

		for y := range roi.Dy() {
			for x := range roi.Dx() {
				if cur.Pix[cur.PixOffset(x, y)] == 0 {
					continue
				}
				sx, sy := x+roi.Min.X, y+roi.Min.Y
				for c, cl := range clusters {
					if cl.Background {
						continue
					}
					id := maps.Lookup(c, sx, sy)
					if id < FirstTextonID || (c == t.Cluster && id == t.ID) {
						continue
					}
					nb := cl.Lookup(id)
					if nb == nil || nb.ImageFilling || seen[nb] {
						continue
					}
					if len(occ) == 0 {
						limit = min(limit, step+1+opt.ExtraDilations)
					}
					seen[nb] = true
					occ = append(occ, occurrence{texton: nb, distance: step})
				}
			}
		}
	}
	return occ
}

func applyOccurrences(t *Texton, occ []occurrence) {
	minDist := UndefinedDilation
	var edges []CoOccurrence
	for _, o := range occ {
		if minDist == UndefinedDilation || o.distance < minDist {
			minDist = o.distance
		}
		// Neighbours cut by the image edge give skewed offsets.
		if o.texton.Position != Interior {
			continue
		}
		edges = append(edges, CoOccurrence{
			DX:      o.texton.Box.Min.X - t.Box.Min.X,
			DY:      o.texton.Box.Min.Y - t.Box.Min.Y,
			Cluster: o.texton.Cluster,
		})
	}
	t.DilationArea = minDist + 1
	t.CoOccurrences = completeQuadrants(edges)
}

// ============ QUADRANT COMPLETION ============

// Sign pattern of each quadrant bucket. Buckets 0/1 and 2/3 are opposite.
var quadrantSigns = [4][2]int{{1, 1}, {-1, -1}, {-1, 1}, {1, -1}}

func inQuadrant(e CoOccurrence, q int) bool {
	return e.DX*quadrantSigns[q][0] >= 0 && e.DY*quadrantSigns[q][1] >= 0
}

func quadrantEdge(edges []CoOccurrence, q int) (CoOccurrence, bool) {
	for _, e := range edges {
		if inQuadrant(e, q) {
			return e, true
		}
	}
	return CoOccurrence{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// completeQuadrants mirrors existing edges into every empty quadrant, taking the
// opposite quadrant first and an adjacent one otherwise.
func completeQuadrants(edges []CoOccurrence) []CoOccurrence {
	if len(edges) == 0 {
		return edges
	}
	for q := range 4 {
		if _, ok := quadrantEdge(edges, q); ok {
			continue
		}
		opposite := q ^ 1
		adjacent := (q + 2) % 4
		candidates := [3]int{opposite, adjacent, adjacent ^ 1}
		for _, p := range candidates {
			e, ok := quadrantEdge(edges, p)
			if !ok {
				continue
			}
			edges = append(edges, CoOccurrence{
				DX:      abs(e.DX) * quadrantSigns[q][0],
				DY:      abs(e.DY) * quadrantSigns[q][1],
				Cluster: e.Cluster,
			})
			break
		}
	}
	return edges
}
