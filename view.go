package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	tabRow      = 1
	tabWidth    = 15
	tabGap      = 2
	placeholder = '┄'
)

var palette = map[cellStyle]lipgloss.Style{
	styleText:        lipgloss.NewStyle(),
	styleMuted:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	styleBorder:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	styleFocused:     lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
	styleTarget:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	styleHandle:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	styleLinkAff:     lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	styleLinkNeg:     lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	styleGuide:       lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	stylePlaceholder: lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true),
	styleHeader:      lipgloss.NewStyle().Bold(true),
}

// tabAt reports which section tab is under terminal cell (x, y).
func tabAt(x, y int) (Side, bool) {
	if y != tabRow {
		return SideAffirmative, false
	}
	for i, side := range sides {
		start := i * (tabWidth + tabGap)
		if x >= start && x < start+tabWidth {
			return side, true
		}
	}
	return SideAffirmative, false
}

func (m model) View() string {
	if m.help {
		return m.helpView()
	}

	width := max(1, m.width)
	height := max(headerRows+statusRows+1, m.height)

	if m.mode == ModeFileInput {
		return m.fileView(width, height)
	}

	g := newCellGrid(width, height-statusRows)
	m.drawSheet(g)
	m.drawHeader(g)

	lines := g.Render(palette)
	if m.mode == ModeEditing {
		keep := max(headerRows, len(lines)-editorHeight-1)
		lines = append(lines[:keep], strings.Repeat("─", width))
		lines = append(lines, strings.Split(m.editor.View(), "\n")...)
	}

	var result strings.Builder
	result.WriteString(strings.Join(lines, "\n"))
	result.WriteString("\n")
	result.WriteString(m.statusLine())
	return result.String()
}

// drawSheet composes the visible section: links under blocks, the guide on top.
func (m model) drawSheet(g *cellGrid) {
	side := m.layout.Side()
	layer := m.fs.Layer(side)

	g.drawLayer(layer, false)

	dragged, pcol, prow, reordering := m.reorder.Placeholder()
	start, connecting := m.connect.Start()
	for _, b := range m.layout.Blocks() {
		x, y := m.layout.toTerminal(b.X, b.Y)
		border := styleBorder
		switch {
		case reordering && b.ID == dragged:
			border = stylePlaceholder
		case m.targets[b.ID]:
			border = styleTarget
		case b.ID == m.focused || (connecting && b.ID == start):
			border = styleFocused
		}
		g.fill(x, y, b.W, b.H, styleNone)
		g.box(x, y, b.W, b.H, border)
		g.set(x+1, y, '≡', styleHandle)
		g.set(x+b.W-2, y, '◆', styleHandle)

		top := y + 1 + m.settings.BlockPadding()/2
		if len(b.Lines) == 1 && b.Lines[0] == "" {
			g.set(x+1, top, '…', styleMuted)
			continue
		}
		for i, line := range b.Lines {
			g.text(x+1, top+i, line, styleText)
		}
	}

	if reordering {
		m.drawDropLine(g, dragged, pcol, prow)
	}

	for _, c := range m.layout.Columns() {
		x, _ := m.layout.toTerminal(c.X, 0)
		g.text(x+1, headerRows, truncate(c.Title, c.W-2), styleHeader)
	}

	g.drawLayer(layer, true)
}

// drawDropLine marks where a dragged block would be inserted.
func (m model) drawDropLine(g *cellGrid, dragged BlockID, col, row int) {
	cols := m.layout.Columns()
	if col < 0 || col >= len(cols) {
		return
	}
	y := 1
	n := 0
	for _, b := range m.layout.Blocks() {
		if b.Col != col || b.ID == dragged {
			continue
		}
		if n == row {
			y = b.Y
			break
		}
		y = b.Y + b.H
		n++
	}
	x, ty := m.layout.toTerminal(cols[col].X, y)
	if ty < headerRows+1 {
		return
	}
	for i := 0; i < cols[col].W; i++ {
		g.set(x+i, ty, placeholder, styleGuide)
	}
}

func (m model) drawHeader(g *cellGrid) {
	g.fill(0, 0, g.width, headerRows, styleNone)
	meta := m.fs.Sheet().Meta

	var parts []string
	for _, v := range []string{meta.Topic, meta.Date, meta.Tournament, meta.Place} {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	title := "Flowsheet"
	if len(parts) > 0 {
		title = strings.Join(parts, " · ")
	}
	g.text(0, 0, truncate(title, g.width), styleHeader)

	for i, side := range sides {
		label := fmt.Sprintf("[ %s ]", strings.ToUpper(side.String()[:1])+side.String()[1:])
		team := meta.TeamAff
		if side == SideNegative {
			team = meta.TeamNeg
		}
		if team != "" && len(label)+len(team)+1 <= tabWidth {
			label = fmt.Sprintf("[ %s %s ]", side.String()[:3], team)
		}
		style := styleMuted
		if side == m.layout.Side() {
			style = styleFocused
		}
		g.text(i*(tabWidth+tabGap), tabRow, truncate(label, tabWidth), style)
	}

	for x := 0; x < g.width; x++ {
		g.set(x, headerRows-1, '─', styleBorder)
	}
}

func (m model) fileView(width, height int) string {
	var result strings.Builder
	result.WriteString("Import a flowsheet from ")
	result.WriteString(m.config.ImportDirectory())
	result.WriteString(":\n")
	result.WriteString(strings.Repeat("─", width))
	result.WriteString("\n")

	shown := 2
	if len(m.fileList) == 0 {
		result.WriteString("(No .dfsf or .json files found)\n")
		shown++
	} else {
		maxFiles := max(1, height-4)
		startIdx := 0
		if m.selectedFileIndex >= maxFiles {
			startIdx = m.selectedFileIndex - maxFiles + 1
		}
		endIdx := min(len(m.fileList), startIdx+maxFiles)
		for i := startIdx; i < endIdx; i++ {
			if i == m.selectedFileIndex {
				result.WriteString("> " + m.fileList[i] + " <\n")
			} else {
				result.WriteString("  " + m.fileList[i] + "\n")
			}
			shown++
		}
	}
	for ; shown < height-statusRows; shown++ {
		result.WriteString("\n")
	}
	result.WriteString(m.statusLine())
	return result.String()
}

func (m model) statusLine() string {
	switch m.mode {
	case ModeEditing:
		return "Mode: EDIT | Esc/Ctrl+S=done"
	case ModeFileInput:
		if m.errorMessage != "" {
			return fmt.Sprintf("Mode: FILE | ERROR: %s | Esc=cancel", m.errorMessage)
		}
		return "Mode: FILE | ↑/↓=navigate, Enter=import, Esc=cancel"
	case ModeConfirm:
		var message string
		switch m.confirmAction {
		case ConfirmClearAll:
			message = "Clear every column and link? (y/n)"
		case ConfirmImport:
			if m.pending != nil {
				message = fmt.Sprintf("Replace the flowsheet with %s (%s)? The current one is backed up. (y/n)",
					m.pending.source, m.pending.summary)
			}
		case ConfirmRestoreBackup:
			message = "Restore the flowsheet saved before the last import? (y/n)"
		}
		return fmt.Sprintf("Mode: CONFIRM | %s", message)
	}

	status := fmt.Sprintf("Mode: %s | %s | Links: %d", m.modeString(), m.layout.Side(), len(m.fs.Connections().Edges(m.layout.Side())))
	switch {
	case m.connect.Active():
		status += " | Drop on a block or an empty column spot"
	case m.reorder.Active():
		status += " | Drop to move the block"
	}
	if m.successMessage != "" {
		status += fmt.Sprintf(" | %s", m.successMessage)
	}
	if m.errorMessage != "" {
		status += fmt.Sprintf(" | ERROR: %s", m.errorMessage)
	} else if m.successMessage == "" {
		status += " | ? for help | q to quit"
	}
	return truncate(status, max(1, m.width))
}

func (m model) modeString() string {
	switch m.mode {
	case ModeNormal:
		if m.connect.Active() {
			return "CONNECT"
		}
		if m.reorder.Active() {
			return "MOVE"
		}
		return "NORMAL"
	case ModeEditing:
		return "EDIT"
	case ModeFileInput:
		return "FILE"
	case ModeConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func (m model) helpView() string {
	helpLines := []string{
		"Flowsheet Help",
		"==============",
		"",
		"Navigation:",
		"-----------",
		"  h/←/j/↓/k/↑/l/→  Move between blocks and columns",
		"  g/G              First/last block of the column",
		"  H/J/K/L          Pan the section (also Shift+arrows, PgUp/PgDn)",
		"  Tab              Switch between affirmative and negative",
		"",
		"Blocks:",
		"-------",
		"  Enter/e          Edit the focused block",
		"  o                New block below the focused one",
		"  n                New block at the end of the column",
		"  d/Backspace      Delete the focused block (must be empty)",
		"  {/}              Move the block up/down",
		"  P                Paste the clipboard into the block",
		"  drag ≡           Move a block to another row or column",
		"",
		"Links:",
		"------",
		"  drag ◆           Drag to a block to link it, or to empty column",
		"                   space to link to a new block there",
		"  right click      Remove the link under the pointer",
		"  r/Alt+Enter      Reply in the next column and link to it",
		"  [ / ]            Follow a link back/forward",
		"  R                Go to the start of the chain",
		"  c                Toggle square/straight links",
		"",
		"Files:",
		"------",
		"  x                Export a .dfsf snapshot",
		"  i                Import a snapshot (the current flow is backed up)",
		"  B                Restore the backup made by the last import",
		"  s                Copy a share link",
		"  p                Export the section as PNG",
		"  C                Clear everything",
		"",
		"General:",
		"  u/Ctrl+Z         Undo",
		"  Ctrl+Y/Ctrl+R    Redo",
		"  Esc              Cancel the current drag",
		"  ?                Toggle this help screen",
		"  q/Ctrl+C         Quit",
	}

	visibleHeight := max(1, m.height-1)
	startLine := min(m.helpScroll, max(0, len(helpLines)-visibleHeight))
	endLine := min(len(helpLines), startLine+visibleHeight)

	var result strings.Builder
	result.WriteString(strings.Join(helpLines[startLine:endLine], "\n"))
	for i := endLine - startLine; i < visibleHeight; i++ {
		result.WriteString("\n")
	}
	result.WriteString("\n")
	result.WriteString("j/k=scroll | ?/Esc=close")
	return result.String()
}
