package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// connectFixture holds b1 in the first column and b2 in the second column
// of the affirmative section.
type connectFixture struct {
	fs      *Flowsheet
	layout  *Layout
	targets targetSet
	ctrl    *ConnectController
	b1, b2  BlockID
}

func newConnectFixture(store *RecordStore) *connectFixture {
	fs := newTestFlowsheet(store)
	f := &connectFixture{
		fs:      fs,
		layout:  newTestLayout(fs),
		targets: make(targetSet),
		b1:      firstIn(fs, SideAffirmative, 0),
		b2:      firstIn(fs, SideAffirmative, 1),
	}
	f.ctrl = NewConnectController(fs, f.layout, f.targets, zap.NewNop())
	return f
}

func TestConnectDragLinksBlocks(t *testing.T) {
	store := newTestStore(t)
	f := newConnectFixture(store)

	require.True(t, f.ctrl.Begin(f.b1))
	assert.True(t, f.ctrl.Active())
	assert.Len(t, f.fs.Layer(SideAffirmative).Links(), 1, "guide is drawn")

	f.ctrl.Move(CellToClient(30, 5))
	assert.True(t, f.targets[f.b2])

	res := f.ctrl.End(context.Background(), CellToClient(30, 5))

	assert.Equal(t, ConnectLinked, res.Outcome)
	assert.Equal(t, Edge{From: f.b1, To: f.b2}, res.Edge)
	assert.Nil(t, res.NewBlock)
	assert.False(t, f.ctrl.Active())
	assert.Empty(t, f.targets)
	assert.True(t, f.fs.Connections().Has(SideAffirmative, f.b1, f.b2))

	links := f.fs.Layer(SideAffirmative).Links()
	require.Len(t, links, 1)
	assert.False(t, links[0].Guide)
	assert.Equal(t, Edge{From: f.b1, To: f.b2}, links[0].Edge())

	// anchors: right edge of b1, left edge of b2, both at row 5
	origin := f.fs.Layer(SideAffirmative).Origin
	assert.Equal(t, ToLayer(Point{X: 20 * cellWidth, Y: 5.5 * cellHeight}, origin), links[0].Points[0])
	assert.Equal(t, ToLayer(Point{X: 22 * cellWidth, Y: 5.5 * cellHeight}, origin), links[0].End())

	reloaded := newTestFlowsheet(store)
	require.NoError(t, reloaded.Load(context.Background()))
	assert.True(t, reloaded.Connections().Has(SideAffirmative, f.b1, f.b2), "edge was persisted")
}

func TestConnectDragDuplicate(t *testing.T) {
	f := newConnectFixture(nil)
	_, err := f.fs.Connect(SideAffirmative, f.b1, f.b2)
	require.NoError(t, err)

	require.True(t, f.ctrl.Begin(f.b1))
	res := f.ctrl.End(context.Background(), CellToClient(30, 5))

	assert.Equal(t, ConnectExists, res.Outcome)
	assert.Empty(t, res.Message(), "a repeated link is silent")
	assert.Equal(t, 1, f.fs.Connections().Len(SideAffirmative))
	assert.Empty(t, f.fs.Layer(SideAffirmative).Links(), "no link drawn and guide removed")
}

func TestConnectDragDropOnSelfCancels(t *testing.T) {
	f := newConnectFixture(nil)

	require.True(t, f.ctrl.Begin(f.b1))
	f.ctrl.Move(CellToClient(10, 5))
	res := f.ctrl.End(context.Background(), CellToClient(10, 5))

	assert.Equal(t, ConnectCancelled, res.Outcome)
	assert.Equal(t, 0, f.fs.Connections().Len(SideAffirmative))
	assert.Empty(t, f.fs.Layer(SideAffirmative).Links())
	assert.Empty(t, f.targets)
}

func TestConnectDragOnEmptyColumnCreatesBlock(t *testing.T) {
	f := newConnectFixture(nil)

	require.True(t, f.ctrl.Begin(f.b1))
	res := f.ctrl.End(context.Background(), CellToClient(50, 20))

	require.Equal(t, ConnectLinkedNewBlock, res.Outcome)
	require.NotNil(t, res.NewBlock)
	assert.Equal(t, Location{Side: SideAffirmative, Col: 2, Row: 1}, res.At)
	assert.Len(t, f.fs.Sheet().Column(SideAffirmative, 2).Blocks, 2)
	assert.True(t, f.fs.Connections().Has(SideAffirmative, f.b1, res.NewBlock.ID))

	_, ok := f.layout.BlockRect(res.NewBlock.ID)
	assert.True(t, ok, "layout was refreshed")
	assert.Len(t, f.fs.Layer(SideAffirmative).Links(), 1)
}

func TestConnectDragOutsideColumnsCancels(t *testing.T) {
	f := newConnectFixture(nil)

	require.True(t, f.ctrl.Begin(f.b1))
	res := f.ctrl.End(context.Background(), CellToClient(21, 20))

	assert.Equal(t, ConnectCancelled, res.Outcome)
	assert.Equal(t, 12, f.fs.Sheet().BlockCount())
}

// crossSurface reports a block of the other section under every point.
type crossSurface struct {
	*Layout
	other BlockID
}

func (s crossSurface) BlockAt(Point) (BlockID, bool) {
	return s.other, true
}

func TestConnectDragAcrossSectionsCancels(t *testing.T) {
	fs := newTestFlowsheet(nil)
	surface := crossSurface{Layout: newTestLayout(fs), other: firstIn(fs, SideNegative, 0)}
	ctrl := NewConnectController(fs, surface, nil, zap.NewNop())

	require.True(t, ctrl.Begin(firstIn(fs, SideAffirmative, 0)))
	res := ctrl.End(context.Background(), CellToClient(30, 5))

	assert.Equal(t, ConnectCancelled, res.Outcome)
	assert.Equal(t, 0, fs.Connections().Len(SideAffirmative))
	assert.Equal(t, 0, fs.Connections().Len(SideNegative))
}

func TestConnectDragGuideFollowsPointer(t *testing.T) {
	f := newConnectFixture(nil)
	require.True(t, f.ctrl.Begin(f.b1))

	layer := f.fs.Layer(SideAffirmative)
	guide := layer.Links()[0]
	require.True(t, guide.Guide)
	h := HandleCenter(cellRect(2, 4, 18, 3), layer.Origin)
	assert.Equal(t, h, guide.Points[0])
	assert.Equal(t, h, guide.End())

	p := CellToClient(40, 12)
	f.ctrl.Move(p)
	assert.Equal(t, ToLayer(p, layer.Origin), guide.End())
	assert.Equal(t, ToLayer(Point{X: 20 * cellWidth, Y: 5.5 * cellHeight}, layer.Origin), guide.Points[0])

	// pointer left of the block flips the anchor to the left edge
	f.ctrl.Move(CellToClient(0, 5))
	assert.Equal(t, ToLayer(Point{X: 2 * cellWidth, Y: 5.5 * cellHeight}, layer.Origin), guide.Points[0])

	f.ctrl.Abort()
	assert.False(t, f.ctrl.Active())
	assert.Empty(t, layer.Links())
}

func TestConnectDragOnlyOneAtATime(t *testing.T) {
	f := newConnectFixture(nil)
	require.True(t, f.ctrl.Begin(f.b1))
	assert.False(t, f.ctrl.Begin(f.b2))

	start, ok := f.ctrl.Start()
	assert.True(t, ok)
	assert.Equal(t, f.b1, start)
}

func TestConnectDragHiddenSectionRefused(t *testing.T) {
	f := newConnectFixture(nil)
	assert.False(t, f.ctrl.Begin(firstIn(f.fs, SideNegative, 0)))
	assert.Equal(t, ConnectCancelled, f.ctrl.End(context.Background(), Point{}).Outcome)
}

func TestConnectDragStartDeletedBeforeDrop(t *testing.T) {
	f := newConnectFixture(nil)
	start := f.fs.AddBlock(SideAffirmative, 0)
	f.layout.Relayout()

	require.True(t, f.ctrl.Begin(start.ID))
	_, ok := f.fs.DeleteBlock(start.ID)
	require.True(t, ok)

	res := f.ctrl.End(context.Background(), CellToClient(50, 20))

	assert.Equal(t, ConnectCancelled, res.Outcome)
	assert.Nil(t, res.NewBlock)
	assert.False(t, f.ctrl.Active())
	assert.Equal(t, 12, f.fs.Sheet().BlockCount(), "no block is left behind")
	assert.Len(t, f.fs.Sheet().Column(SideAffirmative, 2).Blocks, 1)
	assert.Equal(t, 0, f.fs.Connections().Len(SideAffirmative))
}

// failingSurface panics from RowInsertIndex, and from BlockRect once armed.
type failingSurface struct {
	*Layout
	rowIndexPanics bool
	armed          bool
}

func (s *failingSurface) RowInsertIndex(side Side, col int, y float64, exclude BlockID) int {
	if s.rowIndexPanics {
		panic("row index")
	}
	return s.Layout.RowInsertIndex(side, col, y, exclude)
}

func (s *failingSurface) BlockRect(id BlockID) (Rect, bool) {
	if s.armed {
		panic("block rect")
	}
	return s.Layout.BlockRect(id)
}

func TestConnectDragPanicCleansUp(t *testing.T) {
	tests := []struct {
		name    string
		surface func(l *Layout) *failingSurface
	}{
		{"before the block is created", func(l *Layout) *failingSurface {
			return &failingSurface{Layout: l, rowIndexPanics: true}
		}},
		{"after the edge is created", func(l *Layout) *failingSurface {
			return &failingSurface{Layout: l}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newTestFlowsheet(nil)
			surface := tt.surface(newTestLayout(fs))
			targets := make(targetSet)
			ctrl := NewConnectController(fs, surface, targets, zap.NewNop())
			b1, b2 := firstIn(fs, SideAffirmative, 0), firstIn(fs, SideAffirmative, 1)

			require.True(t, ctrl.Begin(b1))
			ctrl.Move(CellToClient(30, 5))
			require.True(t, targets[b2])
			surface.armed = !surface.rowIndexPanics

			var res ConnectResult
			assert.NotPanics(t, func() {
				res = ctrl.End(context.Background(), CellToClient(50, 20))
			})

			assert.Equal(t, ConnectCancelled, res.Outcome)
			assert.Nil(t, res.NewBlock)
			assert.False(t, ctrl.Active())
			assert.Empty(t, targets)
			assert.Empty(t, fs.Layer(SideAffirmative).Links(), "guide is gone")
			assert.Equal(t, 12, fs.Sheet().BlockCount())
			assert.Equal(t, 0, fs.Connections().Len(SideAffirmative))
		})
	}
}
