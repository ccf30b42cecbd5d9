package main

import (
	"context"

	"go.uber.org/zap"
)

type ConnectOutcome int

const (
	ConnectCancelled ConnectOutcome = iota
	ConnectLinked
	ConnectLinkedNewBlock
	ConnectExists
)

func (o ConnectOutcome) String() string {
	switch o {
	case ConnectLinked:
		return "linked"
	case ConnectLinkedNewBlock:
		return "linked-new-block"
	case ConnectExists:
		return "exists"
	default:
		return "cancelled"
	}
}

type ConnectResult struct {
	Outcome  ConnectOutcome
	Side     Side
	Edge     Edge
	NewBlock *Block
	At       Location
}

// TargetMarker highlights the block a drop would land on.
type TargetMarker interface {
	MarkTarget(id BlockID, on bool)
}

type connectDrag struct {
	start BlockID
	side  Side
	layer *Layer
	guide *Link
	hover BlockID
}

// ConnectController runs the drag-to-connect gesture. It is idle while drag
// is nil.
type ConnectController struct {
	fs      *Flowsheet
	surface Surface
	marker  TargetMarker
	logger  *zap.Logger
	drag    *connectDrag
}

func NewConnectController(fs *Flowsheet, surface Surface, marker TargetMarker, logger *zap.Logger) *ConnectController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectController{fs: fs, surface: surface, marker: marker, logger: logger}
}

func (c *ConnectController) Active() bool {
	return c.drag != nil
}

// Start returns the block the active drag started from.
func (c *ConnectController) Start() (BlockID, bool) {
	if c.drag == nil {
		return "", false
	}
	return c.drag.start, true
}

// Begin starts a drag from the connect handle of block id. The guide starts
// and ends at the handle centre until the pointer moves.
func (c *ConnectController) Begin(id BlockID) bool {
	if c.drag != nil {
		return false
	}
	loc, ok := c.fs.Sheet().Locate(id)
	if !ok || !c.surface.Visible(loc.Side) {
		return false
	}
	rect, ok := c.surface.BlockRect(id)
	if !ok {
		return false
	}
	layer := c.fs.Layer(loc.Side)
	layer.Origin = c.surface.LayerOrigin(loc.Side)
	h := HandleCenter(rect, layer.Origin)
	c.drag = &connectDrag{
		start: id,
		side:  loc.Side,
		layer: layer,
		guide: c.fs.Renderer().DrawGuide(layer, h, h, loc.Side),
	}
	c.logger.Debug("connect drag started", zap.String("block", string(id)), zap.Stringer("side", loc.Side))
	return true
}

// Move follows the pointer at client point p: the start anchor flips to the
// edge facing the pointer and the block under the pointer is marked.
func (c *ConnectController) Move(p Point) {
	d := c.drag
	if d == nil {
		return
	}
	rect, ok := c.surface.BlockRect(d.start)
	if !ok {
		c.Abort()
		return
	}
	start := EdgeAnchor(rect, p.X, d.layer.Origin)
	c.fs.Renderer().Reshape(d.guide, start, ToLayer(p, d.layer.Origin))

	hover, _ := c.surface.BlockAt(p)
	if hover == d.hover {
		return
	}
	if d.hover != "" && c.marker != nil {
		c.marker.MarkTarget(d.hover, false)
	}
	if hover != "" && c.marker != nil {
		c.marker.MarkTarget(hover, true)
	}
	d.hover = hover
}

// End resolves the drop at client point p. A drop on a block of the same
// section links to it; a drop on empty column space creates a block there
// and links to it. Everything else cancels. State is always cleaned up.
func (c *ConnectController) End(ctx context.Context, p Point) (res ConnectResult) {
	d := c.drag
	if d == nil {
		return ConnectResult{Outcome: ConnectCancelled}
	}
	res = ConnectResult{Outcome: ConnectCancelled, Side: d.side}
	linked := false
	defer c.cleanup()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("connect drop failed", zap.Any("panic", r))
			c.undoDrop(res, linked)
			res = ConnectResult{Outcome: ConnectCancelled, Side: d.side}
		}
	}()

	d.layer.Remove(d.guide)

	sheet := c.fs.Sheet()
	if !sheet.Has(d.side, d.start) {
		c.logger.Debug("connect start block is gone", zap.String("block", string(d.start)))
		return res
	}
	target, onBlock := c.surface.BlockAt(p)
	if onBlock {
		if target == d.start || !sheet.Has(d.side, target) {
			return res
		}
	} else {
		col, ok := c.surface.ColumnAt(d.side, p)
		if !ok {
			return res
		}
		row := c.surface.RowInsertIndex(d.side, col, p.Y, "")
		res.NewBlock = c.fs.InsertBlock(d.side, col, row, nil)
		target = res.NewBlock.ID
		res.At, _ = sheet.Locate(target)
		c.surface.Relayout()
	}

	status, err := c.fs.Connect(d.side, d.start, target)
	if err != nil {
		c.logger.Debug("connect rejected", zap.Error(err))
		c.undoDrop(res, false)
		return ConnectResult{Outcome: ConnectCancelled, Side: d.side}
	}
	res.Edge = Edge{From: d.start, To: target}
	switch status {
	case ConnectDuplicate:
		res.Outcome = ConnectExists
		return res
	case ConnectCreated:
		linked = true
	default:
		return res
	}

	from, ok1 := c.surface.BlockRect(d.start)
	to, ok2 := c.surface.BlockRect(target)
	if ok1 && ok2 {
		a, b := FinalAnchors(from, to, d.layer.Origin)
		c.fs.Renderer().DrawEdge(d.layer, res.Edge, a, b, d.side)
	}
	res.Outcome = ConnectLinked
	if res.NewBlock != nil {
		res.Outcome = ConnectLinkedNewBlock
	}
	if err := c.fs.Persist(ctx); err != nil {
		c.logger.Error("persist after connect failed", zap.Error(err))
	}
	c.logger.Info("blocks connected",
		zap.String("from", string(res.Edge.From)),
		zap.String("to", string(res.Edge.To)),
		zap.String("outcome", res.Outcome.String()),
	)
	return res
}

// undoDrop takes back what a failed drop already changed, so a cancelled
// gesture leaves neither a new block nor an edge behind.
func (c *ConnectController) undoDrop(res ConnectResult, linked bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("rolling back connect drop failed", zap.Any("panic", r))
		}
	}()
	if linked {
		c.fs.Disconnect(res.Side, res.Edge.From, res.Edge.To)
	}
	if res.NewBlock != nil {
		c.fs.removeBlock(res.NewBlock.ID)
		c.surface.Relayout()
	}
}

// Abort cancels the gesture without touching the graph.
func (c *ConnectController) Abort() {
	c.cleanup()
}

func (c *ConnectController) cleanup() {
	d := c.drag
	if d == nil {
		return
	}
	if d.hover != "" && c.marker != nil {
		c.marker.MarkTarget(d.hover, false)
	}
	d.layer.Remove(d.guide)
	c.drag = nil
}

func (r ConnectResult) Message() string {
	switch r.Outcome {
	case ConnectLinked:
		return "Linked"
	case ConnectLinkedNewBlock:
		return "Linked to a new block"
	}
	return ""
}
