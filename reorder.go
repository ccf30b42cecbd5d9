package main

import "go.uber.org/zap"

type reorderDrag struct {
	block BlockID
	from  Location
	col   int
	row   int
}

// ReorderController moves a block by dragging its grip. The block keeps its
// id, so its edges follow it.
type ReorderController struct {
	fs      *Flowsheet
	surface Surface
	logger  *zap.Logger
	drag    *reorderDrag
}

func NewReorderController(fs *Flowsheet, surface Surface, logger *zap.Logger) *ReorderController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReorderController{fs: fs, surface: surface, logger: logger}
}

func (r *ReorderController) Active() bool {
	return r.drag != nil
}

func (r *ReorderController) Begin(id BlockID) bool {
	if r.drag != nil {
		return false
	}
	loc, ok := r.fs.Sheet().Locate(id)
	if !ok || !r.surface.Visible(loc.Side) {
		return false
	}
	r.drag = &reorderDrag{block: id, from: loc, col: loc.Col, row: loc.Row}
	return true
}

// Move places the drop point under client point p. Outside any column of
// the block's section the previous drop point is kept.
func (r *ReorderController) Move(p Point) {
	d := r.drag
	if d == nil {
		return
	}
	col, ok := r.surface.ColumnAt(d.from.Side, p)
	if !ok {
		return
	}
	d.col = col
	d.row = r.surface.RowInsertIndex(d.from.Side, col, p.Y, d.block)
}

// Placeholder reports where the block would land.
func (r *ReorderController) Placeholder() (BlockID, int, int, bool) {
	if r.drag == nil {
		return "", 0, 0, false
	}
	return r.drag.block, r.drag.col, r.drag.row, true
}

// End moves the block to the current drop point. It returns the original
// location and whether anything changed.
func (r *ReorderController) End() (BlockID, Location, Location, bool) {
	d := r.drag
	r.drag = nil
	if d == nil {
		return "", Location{}, Location{}, false
	}
	if d.col == d.from.Col && d.row == d.from.Row {
		return d.block, d.from, d.from, false
	}
	from, ok := r.fs.MoveBlock(d.block, d.col, d.row)
	if !ok {
		return d.block, d.from, d.from, false
	}
	to, _ := r.fs.Sheet().Locate(d.block)
	r.logger.Debug("block moved",
		zap.String("block", string(d.block)),
		zap.Int("from_col", from.Col), zap.Int("from_row", from.Row),
		zap.Int("to_col", to.Col), zap.Int("to_row", to.Row),
	)
	return d.block, from, to, true
}

func (r *ReorderController) Abort() {
	r.drag = nil
}
