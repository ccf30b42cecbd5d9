package main

import tea "github.com/charmbracelet/bubbletea"

// Replies returns the blocks id links to, in edge order.
func (f *Flowsheet) Replies(id BlockID) []BlockID {
	loc, ok := f.sheet.Locate(id)
	if !ok {
		return nil
	}
	var out []BlockID
	for _, e := range f.conns.Edges(loc.Side) {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

// Sources returns the blocks linking to id, in edge order.
func (f *Flowsheet) Sources(id BlockID) []BlockID {
	loc, ok := f.sheet.Locate(id)
	if !ok {
		return nil
	}
	var out []BlockID
	for _, e := range f.conns.Edges(loc.Side) {
		if e.To == id {
			out = append(out, e.From)
		}
	}
	return out
}

// ChainRoot follows first incoming links back to the argument a chain of
// replies started from. Cycles stop at the first repeated block.
func (f *Flowsheet) ChainRoot(id BlockID) BlockID {
	seen := map[BlockID]bool{id: true}
	for {
		sources := f.Sources(id)
		if len(sources) == 0 || seen[sources[0]] {
			return id
		}
		id = sources[0]
		seen[id] = true
	}
}

// AddReply creates a block in the next column at the same row as id and
// links id to it.
func (f *Flowsheet) AddReply(id BlockID) (DeletedBlock, bool) {
	loc, ok := f.sheet.Locate(id)
	if !ok || f.sheet.Column(loc.Side, loc.Col+1) == nil {
		return DeletedBlock{}, false
	}
	b := f.sheet.InsertBlock(loc.Side, loc.Col+1, loc.Row, nil)
	at, _ := f.sheet.Locate(b.ID)
	if _, err := f.Connect(loc.Side, id, b.ID); err != nil {
		f.removeBlock(b.ID)
		return DeletedBlock{}, false
	}
	return DeletedBlock{Block: *b, At: at, Edges: []Edge{{From: id, To: b.ID}}}, true
}

func (m *model) goToChainRoot() tea.Cmd {
	if m.focused == "" {
		return nil
	}
	return m.focusBlock(m.fs.ChainRoot(m.focused))
}

func (m *model) followReply() tea.Cmd {
	if replies := m.fs.Replies(m.focused); len(replies) > 0 {
		return m.focusBlock(replies[0])
	}
	return nil
}

func (m *model) followSource() tea.Cmd {
	if sources := m.fs.Sources(m.focused); len(sources) > 0 {
		return m.focusBlock(sources[0])
	}
	return nil
}

// addReply is the keyboard form of dragging from the focused block to the
// next column.
func (m *model) addReply() bool {
	added, ok := m.fs.AddReply(m.focused)
	if !ok {
		return false
	}
	m.recordAction(ActionAddBlock, added, added.Block.ID)
	m.focusBlock(added.Block.ID)
	return true
}
