package main

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// Surface is the measured view of the sheet that gestures and link drawing
// work against. Points and rects are in client coordinates.
type Surface interface {
	Visible(side Side) bool
	LayerOrigin(side Side) Point
	BlockRect(id BlockID) (Rect, bool)
	BlockAt(p Point) (BlockID, bool)
	ColumnAt(side Side, p Point) (int, bool)
	RowInsertIndex(side Side, col int, y float64, exclude BlockID) int
	Relayout()
}

type handleKind int

const (
	handleNone handleKind = iota
	handleConnect
	handleGrip
)

// blockBox is a laid out block in content cells (before scrolling).
type blockBox struct {
	ID    BlockID
	Col   int
	Row   int
	X, Y  int
	W, H  int
	Lines []string
}

type columnBox struct {
	Title string
	X, W  int
}

// Layout places the columns of the visible section on a cell grid and maps
// between cells and client coordinates.
type Layout struct {
	sheet   *Sheet
	side    Side
	top     int
	width   int
	height  int
	scrollX int
	scrollY int
	padding int

	columns  []columnBox
	blocks   []blockBox
	index    map[BlockID]int
	contentW int
	contentH int
}

// NewLayout lays out the sheet in a content area starting at terminal row top.
func NewLayout(sheet *Sheet, top int) *Layout {
	return &Layout{sheet: sheet, top: top, index: make(map[BlockID]int)}
}

func (l *Layout) Side() Side { return l.side }

func (l *Layout) SetSide(side Side) {
	if l.side != side {
		l.side = side
		l.scrollX, l.scrollY = 0, 0
	}
	l.Relayout()
}

func (l *Layout) Resize(width, height int) {
	l.width, l.height = width, height
	l.Relayout()
}

func (l *Layout) SetPadding(rows int) {
	l.padding = rows
	l.Relayout()
}

func (l *Layout) Size() (int, int) { return l.width, l.height }

func (l *Layout) Scroll(dx, dy int) bool {
	x, y := l.scrollX+dx, l.scrollY+dy
	x = max(0, min(x, max(0, l.contentW-l.width)))
	y = max(0, min(y, max(0, l.contentH-l.height)))
	changed := x != l.scrollX || y != l.scrollY
	l.scrollX, l.scrollY = x, y
	return changed
}

func (l *Layout) ColumnWidth() int {
	n := len(l.sheet.Section(l.side).Columns)
	if n == 0 {
		return minColumnCells
	}
	return max(minColumnCells, (l.width-columnGapCells*(n+1))/n)
}

func (l *Layout) Relayout() {
	l.columns = l.columns[:0]
	l.blocks = l.blocks[:0]
	l.index = make(map[BlockID]int)

	colW := l.ColumnWidth()
	textW := max(1, colW-2)
	l.contentW, l.contentH = 0, 0
	for ci, col := range l.sheet.Section(l.side).Columns {
		x := columnGapCells + ci*(colW+columnGapCells)
		l.columns = append(l.columns, columnBox{Title: col.Title, X: x, W: colW})
		y := 1
		for ri, b := range col.Blocks {
			lines := wrapText(b.Text(), textW)
			h := len(lines) + 2 + l.padding
			if h%2 == 0 {
				h++
			}
			l.index[b.ID] = len(l.blocks)
			l.blocks = append(l.blocks, blockBox{ID: b.ID, Col: ci, Row: ri, X: x, Y: y, W: colW, H: h, Lines: lines})
			y += h
		}
		l.contentW = x + colW + columnGapCells
		l.contentH = max(l.contentH, y)
	}
	l.Scroll(0, 0)
}

func wrapText(text string, width int) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(wrap.String(wordwrap.String(text, width), width), "\n")
}

// toTerminal maps content cells to terminal cells.
func (l *Layout) toTerminal(x, y int) (int, int) {
	return x - l.scrollX, l.top + y - l.scrollY
}

func (l *Layout) boxRect(b blockBox) Rect {
	x, y := l.toTerminal(b.X, b.Y)
	return cellRect(x, y, b.W, b.H)
}

func (l *Layout) Visible(side Side) bool {
	return side == l.side && l.width > 0 && l.height > 0
}

func (l *Layout) LayerOrigin(side Side) Point {
	x, y := l.toTerminal(0, 0)
	return Point{X: float64(x) * cellWidth, Y: float64(y) * cellHeight}
}

func (l *Layout) BlockRect(id BlockID) (Rect, bool) {
	i, ok := l.index[id]
	if !ok {
		return Rect{}, false
	}
	return l.boxRect(l.blocks[i]), true
}

func (l *Layout) BlockAt(p Point) (BlockID, bool) {
	if !l.inContent(p) {
		return "", false
	}
	for _, b := range l.blocks {
		if l.boxRect(b).Contains(p) {
			return b.ID, true
		}
	}
	return "", false
}

func (l *Layout) inContent(p Point) bool {
	_, cy := ClientToCell(p)
	return cy >= l.top && cy < l.top+l.height
}

func (l *Layout) ColumnAt(side Side, p Point) (int, bool) {
	if !l.Visible(side) || !l.inContent(p) {
		return 0, false
	}
	for ci, c := range l.columns {
		x, _ := l.toTerminal(c.X, 0)
		if r := cellRect(x, l.top, c.W, l.height); p.X >= r.X && p.X < r.Right() {
			return ci, true
		}
	}
	return 0, false
}

// RowInsertIndex returns the index before the first block of col whose
// vertical midpoint lies below y, ignoring exclude.
func (l *Layout) RowInsertIndex(side Side, col int, y float64, exclude BlockID) int {
	row := 0
	for _, b := range l.blocks {
		if b.Col != col || b.ID == exclude {
			continue
		}
		if l.boxRect(b).CenterY() > y {
			return row
		}
		row++
	}
	return row
}

// HandleAt finds the connect handle or reorder grip at terminal cell (cx, cy).
func (l *Layout) HandleAt(cx, cy int) (BlockID, handleKind) {
	p := CellToClient(cx, cy)
	if !l.inContent(p) {
		return "", handleNone
	}
	for _, b := range l.blocks {
		r := l.boxRect(b)
		switch {
		case HandleRect(r).Contains(p):
			return b.ID, handleConnect
		case GripRect(r).Contains(p):
			return b.ID, handleGrip
		}
	}
	return "", handleNone
}

// EnsureVisible scrolls so the block is inside the content area.
func (l *Layout) EnsureVisible(id BlockID) bool {
	i, ok := l.index[id]
	if !ok {
		return false
	}
	b := l.blocks[i]
	dx, dy := 0, 0
	switch {
	case b.X < l.scrollX:
		dx = b.X - l.scrollX - columnGapCells
	case b.X+b.W > l.scrollX+l.width:
		dx = b.X + b.W + columnGapCells - l.scrollX - l.width
	}
	switch {
	case b.Y < l.scrollY+1:
		dy = b.Y - 1 - l.scrollY
	case b.Y+b.H > l.scrollY+l.height:
		dy = b.Y + b.H - l.scrollY - l.height
	}
	if dx == 0 && dy == 0 {
		return false
	}
	return l.Scroll(dx, dy)
}

func (l *Layout) Blocks() []blockBox {
	return l.blocks
}

func (l *Layout) Columns() []columnBox {
	return l.columns
}
