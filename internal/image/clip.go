package imagepkg

import (
	"image"
	"math"

	"golang.org/x/image/vector"
)

// SegmentOp is the kind of a path segment.
type SegmentOp int

const (
	OpMoveTo SegmentOp = iota
	OpLineTo
	OpQuadTo
	OpClose
)

// Point is a path coordinate in surface pixels.
type Point struct {
	X, Y float32
}

// Segment is one path element. Ctrl is only meaningful for OpQuadTo.
type Segment struct {
	Op   SegmentOp
	Ctrl Point
	To   Point
}

// Path is a sequence of segments.
type Path []Segment

// RoundedRectPath returns a closed path around r whose corners are single
// quadratic curves with the control point on the exact corner. radius is
// clamped to half the shorter side; radius <= 0 gives a plain rectangle.
func RoundedRectPath(r image.Rectangle, radius float64) Path {
	x0, y0 := float32(r.Min.X), float32(r.Min.Y)
	x1, y1 := float32(r.Max.X), float32(r.Max.Y)
	rad := float32(math.Max(0, math.Min(radius, float64(min(r.Dx(), r.Dy()))/2)))

	return Path{
		{Op: OpMoveTo, To: Point{x0 + rad, y0}},
		{Op: OpLineTo, To: Point{x1 - rad, y0}},
		{Op: OpQuadTo, Ctrl: Point{x1, y0}, To: Point{x1, y0 + rad}},
		{Op: OpLineTo, To: Point{x1, y1 - rad}},
		{Op: OpQuadTo, Ctrl: Point{x1, y1}, To: Point{x1 - rad, y1}},
		{Op: OpLineTo, To: Point{x0 + rad, y1}},
		{Op: OpQuadTo, Ctrl: Point{x0, y1}, To: Point{x0, y1 - rad}},
		{Op: OpLineTo, To: Point{x0, y0 + rad}},
		{Op: OpQuadTo, Ctrl: Point{x0, y0}, To: Point{x0 + rad, y0}},
		{Op: OpClose},
	}
}

// AddTo replays the path into z.
func (p Path) AddTo(z *vector.Rasterizer) {
	for _, s := range p {
		switch s.Op {
		case OpMoveTo:
			z.MoveTo(s.To.X, s.To.Y)
		case OpLineTo:
			z.LineTo(s.To.X, s.To.Y)
		case OpQuadTo:
			z.QuadTo(s.Ctrl.X, s.Ctrl.Y, s.To.X, s.To.Y)
		case OpClose:
			z.ClosePath()
		}
	}
}

// RoundedRectMask rasterises RoundedRectPath(r, radius) into an alpha mask
// covering canvas. Coverage is anti-aliased along the curve; everything
// outside the path is zero.
func RoundedRectMask(canvas, r image.Rectangle, radius float64) *image.Alpha {
	mask := image.NewAlpha(canvas)
	var z vector.Rasterizer
	z.Reset(canvas.Dx(), canvas.Dy())
	RoundedRectPath(r.Sub(canvas.Min), radius).AddTo(&z)
	z.Draw(mask, canvas, image.Opaque, image.Point{})
	return mask
}
