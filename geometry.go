package main

import "math"

// Point is a position in pixel units. Client points are relative to the
// terminal's top-left corner; layer points are relative to a section layer.
type Point struct {
	X, Y float64
}

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64   { return r.X + r.W }
func (r Rect) Bottom() float64  { return r.Y + r.H }
func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

func (r Rect) Center() Point {
	return Point{X: r.CenterX(), Y: r.CenterY()}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// ToLayer converts a client point into coordinates local to a layer whose
// top-left corner sits at origin.
func ToLayer(p, origin Point) Point {
	return Point{X: p.X - origin.X, Y: p.Y - origin.Y}
}

func ToClient(p, origin Point) Point {
	return Point{X: p.X + origin.X, Y: p.Y + origin.Y}
}

// EdgeAnchor picks the left or right edge of block facing towardX and returns
// the vertical midpoint of that edge in layer coordinates. Ties resolve right.
func EdgeAnchor(block Rect, towardX float64, origin Point) Point {
	x := block.X
	if towardX >= block.CenterX() {
		x = block.Right()
	}
	return ToLayer(Point{X: x, Y: block.CenterY()}, origin)
}

// FinalAnchors returns the start and end points of a committed link: the
// source anchors on the edge facing the target centre and vice versa.
func FinalAnchors(from, to Rect, origin Point) (Point, Point) {
	return EdgeAnchor(from, to.CenterX(), origin), EdgeAnchor(to, from.CenterX(), origin)
}

// HandleRect is the connect handle drawn on the top border of a block, one
// cell in from its right corner.
func HandleRect(block Rect) Rect {
	return Rect{X: block.Right() - 2*cellWidth, Y: block.Y, W: cellWidth, H: cellHeight}
}

// GripRect is the reorder grip on the top border, one cell in from the left.
func GripRect(block Rect) Rect {
	return Rect{X: block.X + cellWidth, Y: block.Y, W: cellWidth, H: cellHeight}
}

func HandleCenter(block Rect, origin Point) Point {
	return ToLayer(HandleRect(block).Center(), origin)
}

// CellToClient maps a terminal cell to the client point at its centre.
func CellToClient(cx, cy int) Point {
	return Point{X: float64(cx)*cellWidth + cellWidth/2, Y: float64(cy)*cellHeight + cellHeight/2}
}

func ClientToCell(p Point) (int, int) {
	return int(math.Floor(p.X / cellWidth)), int(math.Floor(p.Y / cellHeight))
}

func cellRect(cx, cy, w, h int) Rect {
	return Rect{X: float64(cx) * cellWidth, Y: float64(cy) * cellHeight, W: float64(w) * cellWidth, H: float64(h) * cellHeight}
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func distanceToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lengthSq
	t = math.Max(0, math.Min(1, t))
	return distance(p, Point{X: a.X + t*dx, Y: a.Y + t*dy})
}
