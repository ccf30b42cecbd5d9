package main

import tea "github.com/charmbracelet/bubbletea"

// handleNavigation moves focus between blocks: up and down within a column,
// left and right to the neighbouring column at the same row.
func (m *model) handleNavigation(key string) tea.Cmd {
	sheet := m.fs.Sheet()
	loc, ok := sheet.Locate(m.focused)
	if !ok || loc.Side != m.layout.Side() {
		return m.focusBlock(m.firstBlock())
	}
	col := sheet.Column(loc.Side, loc.Col)
	switch key {
	case "k", "up", "alt+up":
		loc.Row--
	case "j", "down", "alt+down":
		loc.Row++
	case "h", "left", "alt+left":
		loc.Col--
	case "l", "right", "alt+right":
		loc.Col++
	case "g", "home":
		loc.Row = 0
	case "G", "end":
		loc.Row = len(col.Blocks) - 1
	}
	target := sheet.Column(loc.Side, loc.Col)
	if target == nil {
		return nil
	}
	loc.Row = max(0, min(loc.Row, len(target.Blocks)-1))
	return m.focusBlock(target.Blocks[loc.Row].ID)
}

func (m *model) handlePan(key string) tea.Cmd {
	dx, dy := 0, 0
	switch key {
	case "H", "shift+left":
		dx = -scrollStep
	case "L", "shift+right":
		dx = scrollStep
	case "K", "shift+up", "pgup":
		dy = -scrollStep
	case "J", "shift+down", "pgdown":
		dy = scrollStep
	}
	if key == "pgup" || key == "pgdown" {
		_, h := m.layout.Size()
		dy *= max(1, h/scrollStep-1)
	}
	if !m.layout.Scroll(dx, dy) {
		return nil
	}
	return m.repaint.Schedule(RepaintScroll)
}

func (m *model) firstBlock() BlockID {
	col := m.fs.Sheet().Column(m.layout.Side(), 0)
	if col == nil || len(col.Blocks) == 0 {
		return ""
	}
	return col.Blocks[0].ID
}

// focusBlock focuses id, switching section and scrolling as needed.
func (m *model) focusBlock(id BlockID) tea.Cmd {
	loc, ok := m.fs.Sheet().Locate(id)
	if !ok {
		return nil
	}
	m.focused = id
	var reason RepaintReason
	if loc.Side != m.layout.Side() {
		m.layout.SetSide(loc.Side)
		reason |= RepaintSideSwitch
	}
	if m.layout.EnsureVisible(id) {
		reason |= RepaintScroll
	}
	if reason == 0 {
		return nil
	}
	return m.repaint.Schedule(reason)
}
