package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectValidatesEndpoints(t *testing.T) {
	fs := newTestFlowsheet(nil)
	a := firstIn(fs, SideAffirmative, 0)
	b := firstIn(fs, SideAffirmative, 1)
	neg := firstIn(fs, SideNegative, 0)

	status, err := fs.Connect(SideAffirmative, a, b)
	require.NoError(t, err)
	assert.Equal(t, ConnectCreated, status)

	status, err = fs.Connect(SideAffirmative, a, b)
	require.NoError(t, err)
	assert.Equal(t, ConnectDuplicate, status)

	_, err = fs.Connect(SideAffirmative, a, a)
	assert.ErrorIs(t, err, ErrSelfLoop)
	_, err = fs.Connect(SideAffirmative, a, "b-missing")
	assert.ErrorIs(t, err, ErrUnknownBlock)
	_, err = fs.Connect(SideAffirmative, a, neg)
	assert.ErrorIs(t, err, ErrCrossSection)
	_, err = fs.Connect(SideNegative, a, b)
	assert.ErrorIs(t, err, ErrCrossSection)
}

func TestRestoreIsIdempotent(t *testing.T) {
	fs := newTestFlowsheet(nil)
	a := firstIn(fs, SideAffirmative, 0)
	b := firstIn(fs, SideAffirmative, 1)
	c := fs.AddBlock(SideAffirmative, 1)
	l := newTestLayout(fs)
	g := Connections{Affirmative: []Edge{{a, b}, {a, c.ID}}}

	assert.Equal(t, 0, fs.Restore(g, l))
	assert.Equal(t, 0, fs.Restore(g, l))
	assert.Equal(t, 0, fs.Restore(fs.Connections().Snapshot(), l))

	layer := fs.Layer(SideAffirmative)
	assert.Equal(t, []Edge{{a, b}, {a, c.ID}}, layer.Edges())
	assert.Equal(t, []Edge{{a, b}, {a, c.ID}}, fs.Connections().Edges(SideAffirmative))
}

func TestRestoreDropsDanglingEdges(t *testing.T) {
	fs := newTestFlowsheet(nil)
	l := newTestLayout(fs)
	a := firstIn(fs, SideAffirmative, 0)
	b := firstIn(fs, SideAffirmative, 1)
	neg := firstIn(fs, SideNegative, 0)

	dropped := fs.Restore(Connections{
		Affirmative: []Edge{{a, b}, {a, "b-gone"}, {a, neg}},
		Negative:    []Edge{{neg, "b-gone"}},
	}, l)

	assert.Equal(t, 3, dropped)
	assert.Equal(t, []Edge{{a, b}}, fs.Connections().Edges(SideAffirmative))
	assert.Empty(t, fs.Connections().Edges(SideNegative))
}

func TestHiddenSectionIsDrawnWhenShown(t *testing.T) {
	fs := newTestFlowsheet(nil)
	l := newTestLayout(fs)
	n1 := firstIn(fs, SideNegative, 0)
	n2 := firstIn(fs, SideNegative, 1)

	fs.Restore(Connections{Negative: []Edge{{n1, n2}}}, l)
	assert.Empty(t, fs.Layer(SideNegative).Links(), "hidden sections are not measured")
	assert.True(t, fs.Connections().Has(SideNegative, n1, n2))

	l.SetSide(SideNegative)
	fs.Redraw(l)
	assert.Equal(t, []Edge{{n1, n2}}, fs.Layer(SideNegative).Edges())
}

func TestDeleteBlockPrunesEdgesAndLinks(t *testing.T) {
	fs := newTestFlowsheet(nil)
	a := firstIn(fs, SideAffirmative, 0)
	b := fs.AddBlock(SideAffirmative, 1)
	c := firstIn(fs, SideAffirmative, 2)
	l := newTestLayout(fs)
	fs.SetHTML(c, "kept")
	fs.Connect(SideAffirmative, a, b.ID)
	fs.Connect(SideAffirmative, b.ID, c)
	fs.Connect(SideAffirmative, a, c)
	fs.Redraw(l)
	require.Len(t, fs.Layer(SideAffirmative).Links(), 3)

	deleted, ok := fs.DeleteBlock(b.ID)

	require.True(t, ok)
	assert.ElementsMatch(t, []Edge{{a, b.ID}, {b.ID, c}}, deleted.Edges)
	assert.Equal(t, []Edge{{a, c}}, fs.Connections().Edges(SideAffirmative))
	assert.Equal(t, []Edge{{a, c}}, fs.Layer(SideAffirmative).Edges())

	_, ok = fs.DeleteBlock(c)
	assert.False(t, ok, "blocks with text are kept")

	fs.RestoreBlock(deleted)
	assert.True(t, fs.Connections().Has(SideAffirmative, a, b.ID))
	loc, _ := fs.Sheet().Locate(b.ID)
	assert.Equal(t, deleted.At, loc)
}

func TestDisconnectAt(t *testing.T) {
	fs := newTestFlowsheet(nil)
	l := newTestLayout(fs)
	a := firstIn(fs, SideAffirmative, 0)
	b := firstIn(fs, SideAffirmative, 1)
	fs.Connect(SideAffirmative, a, b)
	fs.Redraw(l)

	_, ok := fs.DisconnectAt(SideAffirmative, CellToClient(21, 20))
	assert.False(t, ok)

	// the link runs along row 5 between the two columns
	e, ok := fs.DisconnectAt(SideAffirmative, CellToClient(21, 5))
	require.True(t, ok)
	assert.Equal(t, Edge{a, b}, e)
	assert.Equal(t, 0, fs.Connections().Len(SideAffirmative))
	assert.Empty(t, fs.Layer(SideAffirmative).Links())
}

func TestMoveKeepsConnections(t *testing.T) {
	fs := newTestFlowsheet(nil)
	a := firstIn(fs, SideAffirmative, 0)
	b := firstIn(fs, SideAffirmative, 1)
	fs.Connect(SideAffirmative, a, b)

	_, ok := fs.MoveBlock(a, 3, 0)
	require.True(t, ok)

	assert.True(t, fs.Connections().Has(SideAffirmative, a, b))
	loc, _ := fs.Sheet().Locate(a)
	assert.Equal(t, 3, loc.Col)
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fs := newTestFlowsheet(store)
	fs.Sheet().Meta.Topic = "Resolved"
	a := firstIn(fs, SideAffirmative, 0)
	fs.SetHTML(a, "<b>Claim</b>")
	b := fs.AddBlock(SideAffirmative, 0)
	n := firstIn(fs, SideNegative, 2)
	fs.Connect(SideAffirmative, a, b.ID)
	require.NoError(t, fs.Persist(ctx))

	loaded := newTestFlowsheet(store)
	require.NoError(t, loaded.Load(ctx))

	assert.Equal(t, fs.Document(), loaded.Document())
	assert.Equal(t, "Resolved", loaded.Sheet().Meta.Topic)
	assert.True(t, loaded.Sheet().Has(SideNegative, n))
	assert.True(t, loaded.Connections().Has(SideAffirmative, a, b.ID))
}

func TestLoadWithoutRecordStartsEmpty(t *testing.T) {
	fs := newTestFlowsheet(newTestStore(t))
	require.NoError(t, fs.Load(context.Background()))
	assert.Equal(t, 12, fs.Sheet().BlockCount())
}

func TestLoadLegacyDocumentAssignsIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.ForcePut(ctx, documentKey, []byte(`{"topic":"Old","parts":[["first","second"],[]],"connections":{"affirmative":[{"from":"x","to":"y"}]}}`))
	require.NoError(t, err)

	fs := newTestFlowsheet(store)
	require.NoError(t, fs.Load(ctx))

	col := fs.Sheet().Column(SideAffirmative, 0)
	require.Len(t, col.Blocks, 2)
	assert.Equal(t, "first", col.Blocks[0].HTML)
	assert.True(t, ValidBlockID(string(col.Blocks[0].ID)))
	assert.Len(t, fs.Sheet().Column(SideAffirmative, 1).Blocks, 1, "empty column is refilled")
	assert.Equal(t, 0, fs.Connections().Len(SideAffirmative), "unknown endpoints are dropped")
}

func TestPersistOverwritesConcurrentChanges(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	first := newTestFlowsheet(store)
	require.NoError(t, first.Load(ctx))
	second := newTestFlowsheet(store)
	require.NoError(t, second.Load(ctx))

	first.SetHTML(firstIn(first, SideAffirmative, 0), "first")
	require.NoError(t, first.Persist(ctx))

	second.SetHTML(firstIn(second, SideAffirmative, 0), "second")
	require.NoError(t, second.Persist(ctx))
	assert.Equal(t, 1, second.Conflicts())

	loaded := newTestFlowsheet(store)
	require.NoError(t, loaded.Load(ctx))
	assert.Equal(t, "second", loaded.Sheet().Column(SideAffirmative, 0).Blocks[0].HTML)

	second.SetHTML(firstIn(second, SideAffirmative, 0), "again")
	require.NoError(t, second.Persist(ctx))
	assert.Equal(t, 1, second.Conflicts(), "its own writes are not conflicts")
}

func TestSnapshotRoundTrip(t *testing.T) {
	fs := newTestFlowsheet(nil)
	fs.Sheet().Meta = SheetMeta{Topic: "T", Date: "2025-02-01", TeamAff: "A", TeamNeg: "N"}
	fs.Sheet().Scores = []string{"29", "28"}
	a := firstIn(fs, SideAffirmative, 0)
	fs.SetHTML(a, "<b>Claim</b> &amp; warrant<br/>impact")
	b := fs.AddBlock(SideAffirmative, 1)
	fs.SetHTML(b.ID, textToHTML("a < b"))
	n1, n2 := firstIn(fs, SideNegative, 0), firstIn(fs, SideNegative, 3)
	fs.Connect(SideAffirmative, a, b.ID)
	fs.Connect(SideNegative, n1, n2)

	snap := true
	settings := Settings{LineHeight: "loose", Theme: "dark", SnapOrth: &snap}
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	data, err := EncodeSnapshot(fs.Snapshot(settings, now))
	require.NoError(t, err)

	parsed, summary, err := ParseSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01T12:00:00Z", parsed.Meta.ExportedAt)
	assert.Equal(t, settings, parsed.Settings)
	assert.Equal(t, 0, summary.Ignored)

	restored := newTestFlowsheet(nil)
	assert.Equal(t, 0, restored.ApplySnapshot(parsed))
	assert.Equal(t, fs.Document(), restored.Document())
}

func TestImportBacksUpAndRestores(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fs := newTestFlowsheet(store)

	_, err := fs.RestoreBackup(ctx)
	assert.ErrorIs(t, err, ErrNoBackup)

	original := firstIn(fs, SideAffirmative, 0)
	fs.SetHTML(original, "before import")
	require.NoError(t, fs.Persist(ctx))
	before := fs.Document()

	incoming, _, err := ParseSnapshot([]byte(`{"parts":[[{"id":"b-new","html":"imported"}]]}`))
	require.NoError(t, err)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Import(ctx, incoming, defaultSettings(), now))
	assert.Equal(t, "imported", fs.Sheet().Block("b-new").HTML)
	assert.False(t, fs.Sheet().Has(SideAffirmative, original))

	_, ts, err := fs.LastBackup(ctx)
	require.NoError(t, err)
	assert.True(t, ts.Equal(now))

	_, err = fs.RestoreBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, fs.Document())

	reloaded := newTestFlowsheet(store)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, "before import", reloaded.Sheet().Block(original).HTML)
}

func TestCorruptBackupIsDropped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fs := newTestFlowsheet(store)

	_, err := store.ForcePut(ctx, backupKey, []byte(`{"ts":"2025-03-01T09:00:00Z","snapshot":[]}`))
	require.NoError(t, err)

	_, _, err = fs.LastBackup(ctx)
	assert.ErrorIs(t, err, ErrNoBackup)
	_, err = store.Get(ctx, backupKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearAll(t *testing.T) {
	fs := NewFlowsheet(defaultColumnLayout(), nil, zap.NewNop())
	a := firstIn(fs, SideAffirmative, 0)
	b := fs.AddBlock(SideAffirmative, 1)
	l := newTestLayout(fs)
	fs.Connect(SideAffirmative, a, b.ID)
	fs.Redraw(l)
	require.Len(t, fs.Layer(SideAffirmative).Links(), 1)

	fs.ClearAll()

	assert.Equal(t, 12, fs.Sheet().BlockCount())
	assert.Equal(t, 0, fs.Connections().Len(SideAffirmative))
	assert.Empty(t, fs.Layer(SideAffirmative).Links())
	assert.False(t, fs.Sheet().Has(SideAffirmative, a))
}

func TestSettingsPersistence(t *testing.T) {
	ctx := context.Background()
	fs := newTestFlowsheet(newTestStore(t))
	base := defaultSettings()
	assert.Equal(t, base, fs.LoadSettings(ctx, base))

	off := false
	saved := Settings{FontSize: "xlarge", Theme: "light", SnapOrth: &off}
	require.NoError(t, fs.SaveSettings(ctx, saved))
	assert.Equal(t, saved, fs.LoadSettings(ctx, base))
}
