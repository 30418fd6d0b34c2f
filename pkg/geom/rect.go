// Package geom provides axis-aligned rectangle primitives for detected
// layout elements.
//
// A [Rect] is anchored at its top-left corner (X, Y) and extends W to the
// right and H downward, matching the image coordinate convention used by
// vision detectors. All values are float64 so that integer detector output
// and derived geometry share one representation.
package geom

import "math"

// Rect is an axis-aligned rectangle in image coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Area returns W*H. Degenerate rectangles have zero or negative area.
func (r Rect) Area() float64 { return r.W * r.H }

// Center returns the centroid of the rectangle.
func (r Rect) Center() (float64, float64) { return r.X + r.W/2, r.Y + r.H/2 }

// Degenerate reports whether the rectangle has no positive extent on one
// of its axes.
func (r Rect) Degenerate() bool { return r.W <= 0 || r.H <= 0 }

// Finite reports whether the coordinates, the far edges and the area of r
// are all finite.
func (r Rect) Finite() bool {
	for _, v := range [...]float64{r.X, r.Y, r.W, r.H, r.Right(), r.Bottom(), r.Area()} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Contains reports whether inner lies fully inside r, allowing each edge of
// inner to overshoot r by up to tol.
func (r Rect) Contains(inner Rect, tol float64) bool {
	return inner.X >= r.X-tol &&
		inner.Y >= r.Y-tol &&
		inner.Right() <= r.Right()+tol &&
		inner.Bottom() <= r.Bottom()+tol
}

// Intersection returns the area shared by a and b, or 0 when they do not
// overlap.
func Intersection(a, b Rect) float64 {
	w := math.Min(a.Right(), b.Right()) - math.Max(a.X, b.X)
	h := math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Y, b.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection-over-union of a and b using the supplied
// areas. A non-positive union yields 0.
func IoU(a, b Rect, areaA, areaB float64) float64 {
	inter := Intersection(a, b)
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Union returns the minimal rectangle covering every rectangle in rects.
// It returns the zero Rect and false when rects is empty.
func Union(rects ...Rect) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}
	minX, minY := rects[0].X, rects[0].Y
	maxX, maxY := rects[0].Right(), rects[0].Bottom()
	for _, r := range rects[1:] {
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.Right())
		maxY = math.Max(maxY, r.Bottom())
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, true
}

// CenterDistance returns the Euclidean distance between the centroids of a
// and b.
func CenterDistance(a, b Rect) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	return math.Hypot(ax-bx, ay-by)
}
