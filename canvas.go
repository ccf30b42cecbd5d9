package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type PathMode int

const (
	PathOrthogonal PathMode = iota
	PathStraight
)

func pathModeFor(snapOrth bool) PathMode {
	if snapOrth {
		return PathOrthogonal
	}
	return PathStraight
}

// Link is one drawn arrow inside a section layer. Committed links carry the
// edge they render; the drag guide carries no edge and is never hit-testable.
type Link struct {
	From, To BlockID
	Side     Side
	Points   []Point
	HitWidth float64
	Width    float64
	Guide    bool
}

func (l *Link) Edge() Edge {
	return Edge{From: l.From, To: l.To}
}

// HitTest reports whether p, in layer coordinates, falls on the link's
// interaction stroke.
func (l *Link) HitTest(p Point) bool {
	if l.Guide || len(l.Points) < 2 {
		return false
	}
	half := l.HitWidth / 2
	for i := 0; i+1 < len(l.Points); i++ {
		if distanceToSegment(p, l.Points[i], l.Points[i+1]) <= half {
			return true
		}
	}
	return false
}

func (l *Link) End() Point {
	return l.Points[len(l.Points)-1]
}

// Layer is the per-section drawing surface links are rendered into.
type Layer struct {
	Side   Side
	Origin Point
	links  []*Link
}

func NewLayer(side Side) *Layer {
	return &Layer{Side: side}
}

func (l *Layer) Append(link *Link) {
	l.links = append(l.links, link)
}

func (l *Layer) Links() []*Link {
	return l.links
}

func (l *Layer) Remove(link *Link) bool {
	for i, existing := range l.links {
		if existing == link {
			l.links = append(l.links[:i], l.links[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Layer) Find(from, to BlockID) *Link {
	for _, link := range l.links {
		if !link.Guide && link.From == from && link.To == to {
			return link
		}
	}
	return nil
}

func (l *Layer) RemoveEdge(from, to BlockID) bool {
	if link := l.Find(from, to); link != nil {
		return l.Remove(link)
	}
	return false
}

func (l *Layer) RemoveTouching(id BlockID) {
	kept := l.links[:0]
	for _, link := range l.links {
		if !link.Guide && (link.From == id || link.To == id) {
			continue
		}
		kept = append(kept, link)
	}
	l.links = kept
}

// ClearLinks removes every committed link. An in-flight guide stays.
func (l *Layer) ClearLinks() {
	kept := l.links[:0]
	for _, link := range l.links {
		if link.Guide {
			kept = append(kept, link)
		}
	}
	l.links = kept
}

// LinkAt returns the topmost committed link whose hit stroke contains p.
func (l *Layer) LinkAt(p Point) *Link {
	for i := len(l.links) - 1; i >= 0; i-- {
		if l.links[i].HitTest(p) {
			return l.links[i]
		}
	}
	return nil
}

// Edges lists the edges rendered in the layer, in drawing order.
func (l *Layer) Edges() []Edge {
	var edges []Edge
	for _, link := range l.links {
		if !link.Guide {
			edges = append(edges, link.Edge())
		}
	}
	return edges
}

type LinkRenderer struct {
	Mode     PathMode
	HitWidth float64
	Width    float64
}

func NewLinkRenderer(mode PathMode) *LinkRenderer {
	return &LinkRenderer{Mode: mode, HitWidth: hitStrokeWidth, Width: visibleStrokeWidth}
}

// Path returns the polyline from (x1,y1) to (x2,y2). Orthogonal paths run
// horizontally to the midpoint x, vertically to y2, then horizontally to x2.
func (r *LinkRenderer) Path(x1, y1, x2, y2 float64) []Point {
	if r.Mode == PathStraight {
		return []Point{{X: x1, Y: y1}, {X: x2, Y: y2}}
	}
	midX := (x1 + x2) / 2
	return []Point{{X: x1, Y: y1}, {X: midX, Y: y1}, {X: midX, Y: y2}, {X: x2, Y: y2}}
}

// Draw appends an untagged link to layer and returns it.
func (r *LinkRenderer) Draw(layer *Layer, x1, y1, x2, y2 float64, side Side) *Link {
	link := &Link{
		Side:     side,
		Points:   r.Path(x1, y1, x2, y2),
		HitWidth: r.HitWidth,
		Width:    r.Width,
	}
	layer.Append(link)
	return link
}

// DrawEdge draws a committed link tagged with its endpoints.
func (r *LinkRenderer) DrawEdge(layer *Layer, e Edge, from, to Point, side Side) *Link {
	link := r.Draw(layer, from.X, from.Y, to.X, to.Y, side)
	link.From, link.To = e.From, e.To
	return link
}

func (r *LinkRenderer) DrawGuide(layer *Layer, from, to Point, side Side) *Link {
	link := r.Draw(layer, from.X, from.Y, to.X, to.Y, side)
	link.Guide = true
	return link
}

func (r *LinkRenderer) Reshape(link *Link, from, to Point) {
	link.Points = r.Path(from.X, from.Y, to.X, to.Y)
}

type cellStyle int

const (
	styleNone cellStyle = iota
	styleText
	styleMuted
	styleBorder
	styleFocused
	styleTarget
	styleHandle
	styleLinkAff
	styleLinkNeg
	styleGuide
	stylePlaceholder
	styleHeader
)

type cell struct {
	r     rune
	style cellStyle
}

// cellGrid is the character canvas a frame is composed on.
type cellGrid struct {
	width, height int
	cells         [][]cell
}

func newCellGrid(width, height int) *cellGrid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	g := &cellGrid{width: width, height: height, cells: make([][]cell, height)}
	for y := range g.cells {
		g.cells[y] = make([]cell, width)
		for x := range g.cells[y] {
			g.cells[y][x] = cell{r: ' '}
		}
	}
	return g
}

func (g *cellGrid) valid(x, y int) bool {
	return y >= 0 && y < g.height && x >= 0 && x < g.width
}

func (g *cellGrid) set(x, y int, r rune, style cellStyle) {
	if g.valid(x, y) {
		g.cells[y][x] = cell{r: r, style: style}
	}
}

func (g *cellGrid) get(x, y int) cell {
	if !g.valid(x, y) {
		return cell{r: ' '}
	}
	return g.cells[y][x]
}

func (g *cellGrid) text(x, y int, s string, style cellStyle) {
	for _, r := range s {
		g.set(x, y, r, style)
		x++
	}
}

func (g *cellGrid) fill(x, y, w, h int, style cellStyle) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			g.set(col, row, ' ', style)
		}
	}
}

// box draws a rounded frame with the given border style.
func (g *cellGrid) box(x, y, w, h int, style cellStyle) {
	if w < 2 || h < 2 {
		return
	}
	g.set(x, y, '╭', style)
	g.set(x+w-1, y, '╮', style)
	g.set(x, y+h-1, '╰', style)
	g.set(x+w-1, y+h-1, '╯', style)
	for col := x + 1; col < x+w-1; col++ {
		g.set(col, y, '─', style)
		g.set(col, y+h-1, '─', style)
	}
	for row := y + 1; row < y+h-1; row++ {
		g.set(x, row, '│', style)
		g.set(x+w-1, row, '│', style)
	}
}

func (g *cellGrid) Render(palette map[cellStyle]lipgloss.Style) []string {
	lines := make([]string, g.height)
	for y, row := range g.cells {
		var b strings.Builder
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].style == row[start].style {
				continue
			}
			var run strings.Builder
			for _, c := range row[start:x] {
				run.WriteRune(c.r)
			}
			if style, ok := palette[row[start].style]; ok {
				b.WriteString(style.Render(run.String()))
			} else {
				b.WriteString(run.String())
			}
			start = x
		}
		lines[y] = b.String()
	}
	return lines
}

func linkStyle(link *Link) cellStyle {
	switch {
	case link.Guide:
		return styleGuide
	case link.Side == SideNegative:
		return styleLinkNeg
	default:
		return styleLinkAff
	}
}

// drawLayer rasterises the committed links of layer, or only its guide.
func (g *cellGrid) drawLayer(layer *Layer, guide bool) {
	for _, link := range layer.Links() {
		if link.Guide == guide {
			g.drawLink(link, layer.Origin)
		}
	}
}

func (g *cellGrid) drawLink(link *Link, origin Point) {
	if len(link.Points) < 2 {
		return
	}
	style := linkStyle(link)
	pts := make([][2]int, len(link.Points))
	for i, p := range link.Points {
		c := ToClient(p, origin)
		cx, cy := ClientToCell(c)
		pts[i] = [2]int{cx, cy}
	}
	// Endpoints sit on block edges; nudge them onto the cell outside the block.
	first, last := link.Points[0], link.Points[len(link.Points)-1]
	if link.Points[1].X < first.X {
		pts[0][0] = edgeCell(ToClient(first, origin).X, -1)
	}
	if link.Points[len(link.Points)-2].X < last.X {
		pts[len(pts)-1][0] = edgeCell(ToClient(last, origin).X, -1)
	}

	if len(pts) == 2 && pts[0][1] != pts[1][1] && pts[0][0] != pts[1][0] {
		g.drawDiagonal(pts[0], pts[1], style)
	} else {
		for i := 0; i+1 < len(pts); i++ {
			g.drawSegment(pts[i], pts[i+1], style)
		}
		for i := 1; i+1 < len(pts); i++ {
			g.drawCorner(pts[i-1], pts[i], pts[i+1], style)
		}
	}
	g.drawArrowHead(pts[len(pts)-2], pts[len(pts)-1], style)
}

func edgeCell(x float64, outward int) int {
	c := int(math.Floor(x / cellWidth))
	if outward < 0 && float64(c)*cellWidth == x {
		c--
	}
	return c
}

func (g *cellGrid) plot(x, y int, r rune, style cellStyle) {
	existing := g.get(x, y).r
	if (existing == '─' && r == '│') || (existing == '│' && r == '─') {
		r = '┼'
	}
	g.set(x, y, r, style)
}

func (g *cellGrid) drawSegment(a, b [2]int, style cellStyle) {
	switch {
	case a[1] == b[1]:
		for x := min(a[0], b[0]); x <= max(a[0], b[0]); x++ {
			g.plot(x, a[1], '─', style)
		}
	case a[0] == b[0]:
		for y := min(a[1], b[1]); y <= max(a[1], b[1]); y++ {
			g.plot(a[0], y, '│', style)
		}
	}
}

func (g *cellGrid) drawCorner(prev, corner, next [2]int, style cellStyle) {
	var r rune
	switch {
	case prev[1] == corner[1] && next[0] == corner[0] && next[1] != corner[1]:
		right := prev[0] < corner[0]
		down := next[1] > corner[1]
		switch {
		case prev[0] == corner[0]:
			return
		case right && down:
			r = '┐'
		case right && !down:
			r = '┘'
		case !right && down:
			r = '┌'
		default:
			r = '└'
		}
	case prev[0] == corner[0] && next[1] == corner[1] && prev[1] != corner[1]:
		down := prev[1] < corner[1]
		right := next[0] > corner[0]
		switch {
		case next[0] == corner[0]:
			return
		case down && right:
			r = '└'
		case down && !right:
			r = '┘'
		case !down && right:
			r = '┌'
		default:
			r = '┐'
		}
	default:
		return
	}
	g.set(corner[0], corner[1], r, style)
}

func (g *cellGrid) drawDiagonal(a, b [2]int, style cellStyle) {
	dx, dy := abs(b[0]-a[0]), -abs(b[1]-a[1])
	sx, sy := 1, 1
	if a[0] > b[0] {
		sx = -1
	}
	if a[1] > b[1] {
		sy = -1
	}
	r := '╲'
	if sx != sy {
		r = '╱'
	}
	x, y, e := a[0], a[1], dx+dy
	for {
		ch := r
		if dx > -dy*2 {
			ch = '─'
		} else if -dy > dx*2 {
			ch = '│'
		}
		g.plot(x, y, ch, style)
		if x == b[0] && y == b[1] {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func (g *cellGrid) drawArrowHead(prev, tip [2]int, style cellStyle) {
	dx, dy := tip[0]-prev[0], tip[1]-prev[1]
	var r rune
	if abs(dx) >= abs(dy) {
		r = '▶'
		if dx < 0 {
			r = '◀'
		}
	} else {
		r = '▼'
		if dy < 0 {
			r = '▲'
		}
	}
	g.set(tip[0], tip[1], r, style)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
