package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoRedoConnection(t *testing.T) {
	fs := newTestFlowsheet(nil)
	a, b := firstIn(fs, SideAffirmative, 0), firstIn(fs, SideAffirmative, 1)
	m := &model{fs: fs}

	fs.Connect(SideAffirmative, a, b)
	m.recordAction(ActionAddConnection, ConnectionData{Side: SideAffirmative, Edge: Edge{a, b}}, nil)

	require.True(t, m.undo())
	assert.False(t, fs.Connections().Has(SideAffirmative, a, b))
	require.True(t, m.redo())
	assert.True(t, fs.Connections().Has(SideAffirmative, a, b))

	fs.Disconnect(SideAffirmative, a, b)
	m.recordAction(ActionDeleteConnection, ConnectionData{Side: SideAffirmative, Edge: Edge{a, b}}, nil)
	assert.Empty(t, m.redoStack, "recording clears redo")

	require.True(t, m.undo())
	assert.True(t, fs.Connections().Has(SideAffirmative, a, b))
}

func TestUndoDeleteRestoresEdges(t *testing.T) {
	fs := newTestFlowsheet(nil)
	a := firstIn(fs, SideAffirmative, 0)
	b := fs.AddBlock(SideAffirmative, 1)
	fs.Connect(SideAffirmative, a, b.ID)
	m := &model{fs: fs}

	deleted, ok := fs.DeleteBlock(b.ID)
	require.True(t, ok)
	m.recordAction(ActionDeleteBlock, deleted, b.ID)

	require.True(t, m.undo())
	assert.True(t, fs.Sheet().Has(SideAffirmative, b.ID))
	assert.True(t, fs.Connections().Has(SideAffirmative, a, b.ID))

	require.True(t, m.redo())
	assert.False(t, fs.Sheet().Has(SideAffirmative, b.ID))
	assert.Equal(t, 0, fs.Connections().Len(SideAffirmative))
}

func TestUndoAddBlock(t *testing.T) {
	fs := newTestFlowsheet(nil)
	a := firstIn(fs, SideAffirmative, 0)
	m := &model{fs: fs}

	b := fs.InsertAfter(a)
	loc, _ := fs.Sheet().Locate(b.ID)
	m.recordAction(ActionAddBlock, DeletedBlock{Block: *b, At: loc}, b.ID)

	require.True(t, m.undo())
	assert.Nil(t, fs.Sheet().Block(b.ID))
	require.True(t, m.redo())
	got, _ := fs.Sheet().Locate(b.ID)
	assert.Equal(t, loc, got)
}

func TestUndoEditAndMove(t *testing.T) {
	fs := newTestFlowsheet(nil)
	a := firstIn(fs, SideAffirmative, 0)
	b := fs.AddBlock(SideAffirmative, 0)
	m := &model{fs: fs}

	old, _ := fs.SetHTML(a, "new text")
	m.recordEdit(a, old, "new text")
	m.recordEdit(a, "same", "same")
	require.Len(t, m.undoStack, 1, "no-op edits are not recorded")

	from, _ := fs.MoveBlock(a, 0, 1)
	to, _ := fs.Sheet().Locate(a)
	m.recordMove(a, from, to)

	require.True(t, m.undo())
	loc, _ := fs.Sheet().Locate(a)
	assert.Equal(t, from, loc)
	assert.Equal(t, b.ID, fs.Sheet().Column(SideAffirmative, 0).Blocks[1].ID)

	require.True(t, m.undo())
	assert.Equal(t, "", fs.Sheet().Block(a).HTML)
	assert.False(t, m.undo())

	require.True(t, m.redo())
	assert.Equal(t, "new text", fs.Sheet().Block(a).HTML)
}
