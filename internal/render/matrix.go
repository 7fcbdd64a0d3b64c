package render

import (
	"math"

	"github.com/inamate/storyeditor/internal/story"
)

// Matrix2D is a 2D affine transform laid out as [a, b, c, d, e, f]:
//
//	| a  c  e |
//	| b  d  f |
//	| 0  0  1 |
type Matrix2D [6]float64

// Rect is an axis-aligned rectangle in page units.
type Rect struct {
	X, Y, Width, Height float64
}

func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

func RotateDegrees(degrees float64) Matrix2D {
	rad := degrees * math.Pi / 180.0
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// Multiply returns m * other, i.e. other is applied first.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformRect returns the axis-aligned bounding box of r after m.
func (m Matrix2D) TransformRect(r Rect) Rect {
	x0, y0 := m.TransformPoint(r.X, r.Y)
	x1, y1 := m.TransformPoint(r.X+r.Width, r.Y)
	x2, y2 := m.TransformPoint(r.X+r.Width, r.Y+r.Height)
	x3, y3 := m.TransformPoint(r.X, r.Y+r.Height)

	minX := min(x0, x1, x2, x3)
	minY := min(y0, y1, y2, y3)
	maxX := max(x0, x1, x2, x3)
	maxY := max(y0, y1, y2, y3)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// ElementMatrix maps an element's local box (0,0)-(width,height) onto the
// page: flip and rotation both happen about the element centre.
func ElementMatrix(el *story.Element) Matrix2D {
	sx, sy := 1.0, 1.0
	if el.Flip != nil {
		if el.Flip.Horizontal {
			sx = -1
		}
		if el.Flip.Vertical {
			sy = -1
		}
	}
	cx, cy := el.X+el.Width/2, el.Y+el.Height/2
	return Translate(cx, cy).
		Multiply(RotateDegrees(el.RotationAngle)).
		Multiply(Scale(sx, sy)).
		Multiply(Translate(-el.Width/2, -el.Height/2))
}

// ElementBounds is the page-space bounding box of el including rotation.
func ElementBounds(el *story.Element) Rect {
	return ElementMatrix(el).TransformRect(Rect{Width: el.Width, Height: el.Height})
}
