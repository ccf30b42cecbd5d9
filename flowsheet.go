package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const settingsKey = "flowsheet-settings-v1"

// Flowsheet owns the sheet, its connection graph and their persistence. All
// mutations go through it so the graph never refers to a missing block.
type Flowsheet struct {
	sheet    *Sheet
	ids      *Registry
	conns    *ConnectionStore
	renderer *LinkRenderer
	records  *RecordStore
	logger   *zap.Logger

	version   int64
	conflicts int
}

// NewFlowsheet creates an empty document. records may be nil, in which case
// nothing is persisted.
func NewFlowsheet(columns ColumnLayout, records *RecordStore, logger *zap.Logger) *Flowsheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	ids := NewRegistry()
	return &Flowsheet{
		sheet:    NewSheet(columns, ids),
		ids:      ids,
		conns:    NewConnectionStore(),
		renderer: NewLinkRenderer(PathOrthogonal),
		records:  records,
		logger:   logger,
	}
}

func (f *Flowsheet) Sheet() *Sheet                  { return f.sheet }
func (f *Flowsheet) Connections() *ConnectionStore { return f.conns }
func (f *Flowsheet) Renderer() *LinkRenderer        { return f.renderer }
func (f *Flowsheet) Conflicts() int                 { return f.conflicts }

func (f *Flowsheet) SetPathMode(mode PathMode) {
	f.renderer.Mode = mode
}

func (f *Flowsheet) Layer(side Side) *Layer {
	return f.sheet.Section(side).Layer
}

// Connect records an edge between two blocks of side.
func (f *Flowsheet) Connect(side Side, from, to BlockID) (ConnectStatus, error) {
	if from == to {
		return ConnectRejected, ErrSelfLoop
	}
	for _, id := range []BlockID{from, to} {
		loc, ok := f.sheet.Locate(id)
		if !ok {
			return ConnectRejected, fmt.Errorf("%w: %s", ErrUnknownBlock, id)
		}
		if loc.Side != side {
			return ConnectRejected, ErrCrossSection
		}
	}
	return f.conns.Connect(side, from, to), nil
}

// Disconnect removes an edge from the graph and erases its link.
func (f *Flowsheet) Disconnect(side Side, from, to BlockID) bool {
	f.Layer(side).RemoveEdge(from, to)
	return f.conns.Disconnect(side, from, to)
}

// DisconnectAt removes the topmost link under p (client coordinates) in the
// layer of side.
func (f *Flowsheet) DisconnectAt(side Side, p Point) (Edge, bool) {
	layer := f.Layer(side)
	link := layer.LinkAt(ToLayer(p, layer.Origin))
	if link == nil {
		return Edge{}, false
	}
	e := link.Edge()
	layer.Remove(link)
	f.conns.Disconnect(side, e.From, e.To)
	return e, true
}

func (f *Flowsheet) AddBlock(side Side, col int) *Block {
	return f.sheet.AppendBlock(side, col)
}

func (f *Flowsheet) InsertBlock(side Side, col, row int, b *Block) *Block {
	return f.sheet.InsertBlock(side, col, row, b)
}

func (f *Flowsheet) InsertAfter(id BlockID) *Block {
	return f.sheet.InsertAfter(id)
}

// DeletedBlock is everything needed to put a deleted block back.
type DeletedBlock struct {
	Block Block
	At    Location
	Edges []Edge
}

// DeleteBlock removes an empty block that is not alone in its column, along
// with every edge touching it.
func (f *Flowsheet) DeleteBlock(id BlockID) (DeletedBlock, bool) {
	if !f.sheet.CanDelete(id) {
		return DeletedBlock{}, false
	}
	return f.removeBlock(id)
}

func (f *Flowsheet) removeBlock(id BlockID) (DeletedBlock, bool) {
	b, loc, ok := f.sheet.RemoveBlock(id)
	if !ok {
		return DeletedBlock{}, false
	}
	f.Layer(loc.Side).RemoveTouching(id)
	edges := f.conns.PruneBlock(loc.Side, id)
	return DeletedBlock{Block: b, At: loc, Edges: edges}, true
}

func (f *Flowsheet) RestoreBlock(d DeletedBlock) {
	b := d.Block
	f.sheet.InsertBlock(d.At.Side, d.At.Col, d.At.Row, &b)
	for _, e := range d.Edges {
		f.conns.Connect(d.At.Side, e.From, e.To)
	}
}

func (f *Flowsheet) MoveBlock(id BlockID, col, row int) (Location, bool) {
	return f.sheet.MoveBlock(id, col, row)
}

func (f *Flowsheet) SetHTML(id BlockID, html string) (string, bool) {
	return f.sheet.SetHTML(id, html)
}

// ClearAll empties the sheet and the graph.
func (f *Flowsheet) ClearAll() {
	f.ids.Reset()
	f.sheet.Clear()
	f.ids.Upgrade(f.sheet)
	f.conns.Clear()
	for _, side := range sides {
		f.Layer(side).ClearLinks()
	}
}

// Restore replaces the graph with g and redraws every visible section from
// fresh geometry. Edges whose endpoints are missing are dropped.
func (f *Flowsheet) Restore(g Connections, surface Surface) int {
	dropped := f.conns.Replace(g, f.sheet.Has)
	f.Redraw(surface)
	return dropped
}

// Redraw clears and redraws the layer of every visible section from the
// current graph.
func (f *Flowsheet) Redraw(surface Surface) {
	if surface == nil {
		return
	}
	for _, side := range sides {
		layer := f.Layer(side)
		if !surface.Visible(side) {
			continue
		}
		layer.Origin = surface.LayerOrigin(side)
		layer.ClearLinks()
		drawEdges(f.renderer, layer, side, f.conns.Edges(side), surface)
	}
}

func drawEdges(renderer *LinkRenderer, layer *Layer, side Side, edges []Edge, surface Surface) {
	for _, e := range edges {
		from, ok1 := surface.BlockRect(e.From)
		to, ok2 := surface.BlockRect(e.To)
		if !ok1 || !ok2 {
			continue
		}
		a, b := FinalAnchors(from, to, layer.Origin)
		renderer.DrawEdge(layer, e, a, b, side)
	}
}

func (f *Flowsheet) Document() Document {
	doc := Document{
		SheetMeta:   f.sheet.Meta,
		Scores:      append([]string{}, f.sheet.Scores...),
		Connections: f.conns.Snapshot(),
	}
	for _, col := range f.sheet.Columns() {
		items := make([]PartBlock, 0, len(col.Blocks))
		for _, b := range col.Blocks {
			id := b.ID
			items = append(items, PartBlock{ID: &id, HTML: b.HTML})
		}
		doc.Parts = append(doc.Parts, items)
	}
	return doc
}

// applyContent loads meta, parts, scores and graph into the sheet. Parts
// are matched to columns in document order; ids are de-duplicated and blocks
// lacking one get a fresh id.
func (f *Flowsheet) applyContent(meta SheetMeta, parts [][]PartBlock, scores []string, g Connections) int {
	f.ids.Reset()
	f.sheet.Meta = meta
	f.sheet.Scores = append([]string(nil), scores...)
	seen := make(map[BlockID]bool)
	for i, col := range f.sheet.Columns() {
		col.Blocks = nil
		if i >= len(parts) {
			continue
		}
		for _, p := range parts[i] {
			b := &Block{HTML: p.HTML}
			if p.ID != nil && ValidBlockID(string(*p.ID)) && !seen[*p.ID] {
				b.ID = *p.ID
				seen[b.ID] = true
			}
			col.Blocks = append(col.Blocks, b)
		}
	}
	f.ids.Upgrade(f.sheet)
	f.sheet.normalize()
	for _, side := range sides {
		f.Layer(side).ClearLinks()
	}
	return f.conns.Replace(g, f.sheet.Has)
}

func (f *Flowsheet) ApplyDocument(doc Document) int {
	return f.applyContent(doc.SheetMeta, doc.Parts, doc.Scores, doc.Connections)
}

// Load reads the autosaved document. A missing or malformed record leaves an
// empty sheet; only storage failures are returned.
func (f *Flowsheet) Load(ctx context.Context) error {
	if f.records == nil {
		return nil
	}
	rec, err := f.records.Get(ctx, documentKey)
	if errors.Is(err, ErrNotFound) {
		f.version = 0
		return nil
	}
	if err != nil {
		return err
	}
	f.version = rec.Version
	dropped := f.ApplyDocument(decodeDocument(rec.Value))
	f.logger.Debug("document loaded",
		zap.Int64("version", rec.Version),
		zap.Int("blocks", f.sheet.BlockCount()),
		zap.Int("dropped_edges", dropped),
	)
	return nil
}

// Persist writes the document. If another session wrote in between, the
// conflict is logged and counted and this session's state wins.
func (f *Flowsheet) Persist(ctx context.Context) error {
	if f.records == nil {
		return nil
	}
	data, err := json.Marshal(f.Document())
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	rec, err := f.records.Put(ctx, documentKey, data, f.version)
	if errors.Is(err, ErrVersionConflict) {
		f.conflicts++
		f.logger.Warn("document changed by another session, overwriting",
			zap.Int64("expected", f.version),
			zap.Int64("stored", rec.Version),
		)
		rec, err = f.records.ForcePut(ctx, documentKey, data)
	}
	if err != nil {
		return fmt.Errorf("persisting document: %w", err)
	}
	f.version = rec.Version
	return nil
}

func (f *Flowsheet) Snapshot(settings Settings, now time.Time) Snapshot {
	doc := f.Document()
	return Snapshot{
		Version:     snapshotVersion,
		Meta:        SnapshotMeta{ExportedAt: now.UTC().Format(time.RFC3339)},
		Sheet:       doc.SheetMeta,
		Parts:       doc.Parts,
		Scores:      doc.Scores,
		Connections: doc.Connections,
		Settings:    settings,
	}
}

// ApplySnapshot replaces the document with a validated snapshot.
func (f *Flowsheet) ApplySnapshot(s Snapshot) int {
	return f.applyContent(s.Sheet, s.Parts, s.Scores, s.Connections)
}

// Backup stores the current document as the restore point for the next
// import.
func (f *Flowsheet) Backup(ctx context.Context, settings Settings, now time.Time) error {
	if f.records == nil {
		return nil
	}
	data, err := json.Marshal(backupEntry{Timestamp: now, Snapshot: f.Snapshot(settings, now)})
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	if _, err := f.records.ForcePut(ctx, backupKey, data); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

func (f *Flowsheet) LastBackup(ctx context.Context) (Snapshot, time.Time, error) {
	if f.records == nil {
		return Snapshot{}, time.Time{}, ErrNoBackup
	}
	rec, err := f.records.Get(ctx, backupKey)
	if errors.Is(err, ErrNotFound) {
		return Snapshot{}, time.Time{}, ErrNoBackup
	}
	if err != nil {
		return Snapshot{}, time.Time{}, err
	}
	var entry struct {
		Timestamp time.Time       `json:"ts"`
		Snapshot  json.RawMessage `json:"snapshot"`
	}
	err = json.Unmarshal(rec.Value, &entry)
	var snap Snapshot
	if err == nil {
		snap, _, err = ParseSnapshot(entry.Snapshot)
	}
	if err != nil {
		// unreadable backups are dropped so the next import can replace them
		if derr := f.records.Delete(ctx, backupKey); derr != nil {
			f.logger.Warn("dropping corrupt backup", zap.Error(derr))
		}
		return Snapshot{}, time.Time{}, fmt.Errorf("%w: %v", ErrNoBackup, err)
	}
	return snap, entry.Timestamp, nil
}

// Import backs up the current document, applies s and persists the result.
// s must come from ParseSnapshot.
func (f *Flowsheet) Import(ctx context.Context, s Snapshot, current Settings, now time.Time) error {
	if err := f.Backup(ctx, current, now); err != nil {
		return err
	}
	f.ApplySnapshot(s)
	return f.Persist(ctx)
}

// RestoreBackup swaps the document for the last backup.
func (f *Flowsheet) RestoreBackup(ctx context.Context) (Snapshot, error) {
	snap, _, err := f.LastBackup(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	f.ApplySnapshot(snap)
	return snap, f.Persist(ctx)
}

// LoadSettings returns the stored settings, or base when none were saved.
func (f *Flowsheet) LoadSettings(ctx context.Context, base Settings) Settings {
	if f.records == nil {
		return base
	}
	rec, err := f.records.Get(ctx, settingsKey)
	if err != nil {
		return base
	}
	return decodeSettings(rec.Value)
}

func (f *Flowsheet) SaveSettings(ctx context.Context, s Settings) error {
	if f.records == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = f.records.ForcePut(ctx, settingsKey, data)
	return err
}
