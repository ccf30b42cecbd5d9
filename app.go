package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const editorHeight = 4

func newModel(ctx context.Context, s *session, watcher *ConfigWatcher) model {
	layout := NewLayout(s.fs.Sheet(), headerRows)
	layout.SetPadding(s.settings.BlockPadding())
	targets := make(targetSet)

	editor := textarea.New()
	editor.Placeholder = "Argument…"
	editor.CharLimit = 0
	editor.ShowLineNumbers = false
	editor.SetHeight(editorHeight)
	editor.SetWidth(72)

	m := model{
		mode:              ModeNormal,
		ctx:               ctx,
		config:            s.config,
		settings:          s.settings,
		logger:            s.logger,
		fs:                s.fs,
		layout:            layout,
		connect:           NewConnectController(s.fs, layout, targets, s.logger),
		reorder:           NewReorderController(s.fs, layout, s.logger),
		repaint:           NewRepaintScheduler(s.config.RepaintFrame()),
		watcher:           watcher,
		targets:           targets,
		editor:            editor,
		selectedFileIndex: -1,
	}
	m.focused = m.firstBlock()
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.repaint.Schedule(RepaintStructure)}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.Wait())
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout.Resize(msg.Width, max(0, msg.Height-headerRows-statusRows))
		m.editor.SetWidth(max(10, msg.Width-2))
		return m, m.repaint.Schedule(RepaintResize)

	case repaintMsg:
		if !m.repaint.Pending() {
			return m, nil
		}
		reasons, n := m.repaint.Flush()
		m.layout.Relayout()
		dropped := m.fs.Restore(m.fs.Connections().Snapshot(), m.layout)
		m.logger.Debug("repaint",
			zap.Int("reasons", int(reasons)),
			zap.Int("coalesced", n),
			zap.Int("dropped_edges", dropped),
		)
		return m, nil

	case configChangedMsg:
		m.applyConfig(msg.config)
		cmds := []tea.Cmd{m.repaint.Schedule(RepaintSettings)}
		if m.watcher != nil {
			cmds = append(cmds, m.watcher.Wait())
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		switch m.mode {
		case ModeEditing:
			return m.handleEditKey(msg)
		case ModeFileInput:
			return m.handleFileKey(msg)
		case ModeConfirm:
			return m.handleConfirmKey(msg)
		default:
			return m.handleNormalKey(msg)
		}
	}
	return m, nil
}

func (m *model) applyConfig(config *Config) {
	m.config = config
	m.settings = config.Settings
	m.fs.SetPathMode(pathModeFor(m.settings.Orthogonal()))
	m.layout.SetPadding(m.settings.BlockPadding())
	m.repaint.SetFrame(config.RepaintFrame())
	if err := m.fs.SaveSettings(m.ctx, m.settings); err != nil {
		m.logger.Warn("saving settings", zap.Error(err))
	}
	m.successMessage = "Configuration reloaded"
}

func (m *model) applySettings(s Settings) {
	m.settings = s
	m.fs.SetPathMode(pathModeFor(s.Orthogonal()))
	m.layout.SetPadding(s.BlockPadding())
	if err := m.fs.SaveSettings(m.ctx, s); err != nil {
		m.logger.Warn("saving settings", zap.Error(err))
	}
}

// persist saves the document and reports failures and overwritten
// concurrent changes in the status line.
func (m *model) persist() {
	before := m.fs.Conflicts()
	if err := m.fs.Persist(m.ctx); err != nil {
		m.logger.Error("persist failed", zap.Error(err))
		m.errorMessage = fmt.Sprintf("Error saving: %s", err.Error())
		return
	}
	if m.fs.Conflicts() > before {
		m.errorMessage = "Flowsheet was changed in another session; your version was kept"
	}
}

func (m *model) gestureActive() bool {
	return m.connect.Active() || m.reorder.Active()
}

func (m *model) abortGestures() {
	m.connect.Abort()
	m.reorder.Abort()
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	p := CellToClient(msg.X, msg.Y)
	switch msg.Type {
	case tea.MouseWheelUp, tea.MouseWheelDown:
		dy := scrollStep
		if msg.Type == tea.MouseWheelUp {
			dy = -scrollStep
		}
		if m.layout.Scroll(0, dy) {
			if m.connect.Active() {
				m.connect.Move(p)
			}
			return m, m.repaint.Schedule(RepaintScroll)
		}

	case tea.MouseLeft, tea.MouseMotion:
		switch {
		case m.connect.Active():
			m.connect.Move(p)
			return m, nil
		case m.reorder.Active():
			m.reorder.Move(p)
			return m, nil
		}
		if msg.Type != tea.MouseLeft || m.mode != ModeNormal {
			return m, nil
		}
		if side, ok := tabAt(msg.X, msg.Y); ok {
			return m, m.switchSide(side)
		}
		id, kind := m.layout.HandleAt(msg.X, msg.Y)
		switch kind {
		case handleConnect:
			m.focused = id
			m.connect.Begin(id)
		case handleGrip:
			m.focused = id
			m.reorder.Begin(id)
		default:
			if id, ok := m.layout.BlockAt(p); ok {
				m.focused = id
			}
		}

	case tea.MouseRelease:
		switch {
		case m.connect.Active():
			before := m.fs.Conflicts()
			return m, m.afterConnect(m.connect.End(m.ctx, p), before)
		case m.reorder.Active():
			id, from, to, moved := m.reorder.End()
			if !moved {
				return m, nil
			}
			m.recordMove(id, from, to)
			m.persist()
			return m, m.repaint.Schedule(RepaintStructure)
		}

	case tea.MouseRight:
		if m.gestureActive() || m.mode != ModeNormal {
			return m, nil
		}
		side := m.layout.Side()
		if e, ok := m.fs.DisconnectAt(side, p); ok {
			m.recordAction(ActionDeleteConnection, ConnectionData{Side: side, Edge: e}, nil)
			m.persist()
			m.successMessage = "Link removed"
		}
	}
	return m, nil
}

// afterConnect records a finished drop. conflicts is the conflict count
// taken before the drop persisted.
func (m *model) afterConnect(res ConnectResult, conflicts int) tea.Cmd {
	switch res.Outcome {
	case ConnectLinked:
		m.recordAction(ActionAddConnection, ConnectionData{Side: res.Side, Edge: res.Edge}, nil)
	case ConnectLinkedNewBlock:
		m.recordAction(ActionAddBlock,
			DeletedBlock{Block: *res.NewBlock, At: res.At, Edges: []Edge{res.Edge}},
			res.NewBlock.ID,
		)
		m.focused = res.NewBlock.ID
	case ConnectExists:
	default:
		return nil
	}
	m.successMessage = res.Message()
	if m.fs.Conflicts() > conflicts {
		m.errorMessage = "Flowsheet was changed in another session; your version was kept"
	}
	return m.repaint.Schedule(RepaintStructure)
}

func (m *model) switchSide(side Side) tea.Cmd {
	if side == m.layout.Side() {
		return nil
	}
	m.abortGestures()
	m.layout.SetSide(side)
	if loc, ok := m.fs.Sheet().Locate(m.focused); !ok || loc.Side != side {
		m.focused = m.firstBlock()
	}
	return m.repaint.Schedule(RepaintSideSwitch)
}

func (m model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.help {
		switch key {
		case "?", "esc", "q":
			m.help = false
			m.helpScroll = 0
		case "j", "down":
			m.helpScroll++
		case "k", "up":
			if m.helpScroll > 0 {
				m.helpScroll--
			}
		}
		return m, nil
	}

	m.errorMessage = ""
	m.successMessage = ""

	if m.gestureActive() && structuralKeys[key] {
		return m, nil
	}

	switch key {
	case "ctrl+c", "q":
		m.abortGestures()
		m.persist()
		return m, tea.Quit
	case "?":
		m.help = true
	case "esc":
		m.abortGestures()
	case "tab", "shift+tab":
		return m, m.switchSide(m.layout.Side().Other())
	case "k", "up", "alt+up", "j", "down", "alt+down", "h", "left", "alt+left", "l", "right", "alt+right", "g", "home", "G", "end":
		return m, m.handleNavigation(key)
	case "H", "L", "K", "J", "shift+left", "shift+right", "shift+up", "shift+down", "pgup", "pgdown":
		return m, m.handlePan(key)
	case "[":
		return m, m.followSource()
	case "]":
		return m, m.followReply()
	case "R":
		return m, m.goToChainRoot()
	case "enter", "e":
		return m.startEditing()
	case "o", "ctrl+n":
		if b := m.fs.InsertAfter(m.focused); b != nil {
			return m, m.afterAdd(b.ID)
		}
	case "n":
		loc, ok := m.fs.Sheet().Locate(m.focused)
		if ok {
			if b := m.fs.AddBlock(loc.Side, loc.Col); b != nil {
				return m, m.afterAdd(b.ID)
			}
		}
	case "alt+enter", "r":
		if m.addReply() {
			m.persist()
			m.successMessage = "Reply linked"
			return m, m.repaint.Schedule(RepaintStructure)
		}
	case "backspace", "delete", "d":
		return m, m.deleteFocused()
	case "{", "}":
		return m, m.nudgeFocused(key == "}")
	case "ctrl+z", "u":
		if m.undo() {
			m.persist()
			return m, m.repaint.Schedule(RepaintStructure)
		}
	case "ctrl+y", "ctrl+r":
		if m.redo() {
			m.persist()
			return m, m.repaint.Schedule(RepaintStructure)
		}
	case "P":
		return m, m.pasteIntoFocused()
	case "c":
		snap := !m.settings.Orthogonal()
		s := m.settings
		s.SnapOrth = &snap
		m.applySettings(s)
		return m, m.repaint.Schedule(RepaintSettings)
	case "x":
		m.exportSnapshot()
	case "s":
		m.copyShareLink()
	case "p":
		m.exportPNG()
	case "i":
		m.scanImportFiles()
		m.mode = ModeFileInput
	case "B":
		return m.confirm(ConfirmRestoreBackup)
	case "C":
		return m.confirm(ConfirmClearAll)
	}
	return m, nil
}

// structuralKeys change blocks or replace the document, so they wait until
// the drag in progress has been dropped or cancelled.
var structuralKeys = map[string]bool{
	"enter": true, "e": true, "o": true, "ctrl+n": true, "n": true,
	"alt+enter": true, "r": true, "backspace": true, "delete": true, "d": true,
	"{": true, "}": true, "ctrl+z": true, "u": true, "ctrl+y": true, "ctrl+r": true,
	"P": true, "i": true, "B": true, "C": true,
}

func (m *model) afterAdd(id BlockID) tea.Cmd {
	loc, _ := m.fs.Sheet().Locate(id)
	b := *m.fs.Sheet().Block(id)
	m.recordAction(ActionAddBlock, DeletedBlock{Block: b, At: loc}, id)
	m.persist()
	m.focused = id
	return m.repaint.Schedule(RepaintStructure)
}

func (m *model) deleteFocused() tea.Cmd {
	id := m.focused
	if !m.fs.Sheet().CanDelete(id) {
		m.errorMessage = "Only an empty block that is not alone in its column can be deleted"
		return nil
	}
	loc, _ := m.fs.Sheet().Locate(id)
	deleted, ok := m.fs.DeleteBlock(id)
	if !ok {
		return nil
	}
	m.recordAction(ActionDeleteBlock, deleted, id)
	m.persist()
	col := m.fs.Sheet().Column(loc.Side, loc.Col)
	m.focused = col.Blocks[max(0, min(loc.Row-1, len(col.Blocks)-1))].ID
	return m.repaint.Schedule(RepaintStructure)
}

// nudgeFocused moves the focused block one row within its column.
func (m *model) nudgeFocused(down bool) tea.Cmd {
	loc, ok := m.fs.Sheet().Locate(m.focused)
	if !ok {
		return nil
	}
	row := loc.Row - 1
	if down {
		row = loc.Row + 1
	}
	if row < 0 || row >= len(m.fs.Sheet().Column(loc.Side, loc.Col).Blocks) {
		return nil
	}
	from, ok := m.fs.MoveBlock(m.focused, loc.Col, row)
	if !ok {
		return nil
	}
	to, _ := m.fs.Sheet().Locate(m.focused)
	m.recordMove(m.focused, from, to)
	m.persist()
	return m.repaint.Schedule(RepaintStructure)
}

func (m *model) pasteIntoFocused() tea.Cmd {
	b := m.fs.Sheet().Block(m.focused)
	if b == nil {
		return nil
	}
	text, err := readClipboardText()
	if err != nil {
		m.errorMessage = fmt.Sprintf("Error reading clipboard: %s", err.Error())
		return nil
	}
	pasted := clipboardToHTML(text)
	html := pasted
	if !b.Empty() {
		html = b.HTML + "<br/>" + pasted
	}
	old, _ := m.fs.SetHTML(b.ID, html)
	m.recordEdit(b.ID, old, html)
	m.persist()
	return m.repaint.Schedule(RepaintInput)
}

func (m model) startEditing() (tea.Model, tea.Cmd) {
	b := m.fs.Sheet().Block(m.focused)
	if b == nil {
		return m, nil
	}
	m.abortGestures()
	m.mode = ModeEditing
	m.editID = b.ID
	m.originalEditHTML = b.HTML
	m.editor.SetValue(b.Text())
	return m, m.editor.Focus()
}

func (m model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+s":
		html := m.originalEditHTML
		if m.editor.Value() != htmlToText(m.originalEditHTML) {
			html = textToHTML(m.editor.Value())
		}
		m.fs.SetHTML(m.editID, html)
		m.recordEdit(m.editID, m.originalEditHTML, html)
		m.persist()
		m.editor.Blur()
		m.mode = ModeNormal
		m.editID = ""
		return m, m.repaint.Schedule(RepaintInput)
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.fs.SetHTML(m.editID, textToHTML(m.editor.Value()))
	return m, tea.Batch(cmd, m.repaint.Schedule(RepaintInput))
}

func (m model) handleFileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.mode = ModeNormal
	case "up", "k":
		if m.selectedFileIndex > 0 {
			m.selectedFileIndex--
		}
	case "down", "j":
		if m.selectedFileIndex < len(m.fileList)-1 {
			m.selectedFileIndex++
		}
	case "enter":
		if m.selectedFileIndex < 0 || m.selectedFileIndex >= len(m.fileList) {
			return m, nil
		}
		path := filepath.Join(m.config.ImportDirectory(), m.fileList[m.selectedFileIndex])
		snap, summary, err := ReadSnapshotFile(path)
		if err != nil {
			m.mode = ModeNormal
			m.errorMessage = fmt.Sprintf("Import failed: %s", err.Error())
			return m, nil
		}
		m.pending = &pendingImport{source: path, snapshot: snap, summary: summary}
		if !m.config.Confirmations {
			return m, m.performImport()
		}
		m.mode = ModeConfirm
		m.confirmAction = ConfirmImport
	}
	return m, nil
}

func (m model) confirm(action ConfirmAction) (tea.Model, tea.Cmd) {
	if !m.config.Confirmations {
		return m, m.perform(action)
	}
	m.mode = ModeConfirm
	m.confirmAction = action
	return m, nil
}

func (m model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.mode = ModeNormal
		return m, m.perform(m.confirmAction)
	case "n", "N", "esc", "q":
		m.mode = ModeNormal
		m.pending = nil
	}
	return m, nil
}

func (m *model) perform(action ConfirmAction) tea.Cmd {
	m.mode = ModeNormal
	switch action {
	case ConfirmImport:
		return m.performImport()
	case ConfirmRestoreBackup:
		snap, err := m.fs.RestoreBackup(m.ctx)
		if errors.Is(err, ErrNoBackup) {
			m.errorMessage = "No backup to restore"
			return nil
		}
		if err != nil {
			m.errorMessage = fmt.Sprintf("Restore failed: %s", err.Error())
			return nil
		}
		m.applySettings(snap.Settings)
		m.successMessage = "Backup restored"
	case ConfirmClearAll:
		m.fs.ClearAll()
		m.persist()
		m.successMessage = "Flowsheet cleared"
	default:
		return nil
	}
	m.documentReplaced()
	return m.repaint.Schedule(RepaintStructure)
}

func (m *model) performImport() tea.Cmd {
	p := m.pending
	m.pending = nil
	m.mode = ModeNormal
	if p == nil {
		return nil
	}
	if err := m.fs.Import(m.ctx, p.snapshot, m.settings, time.Now()); err != nil {
		m.errorMessage = fmt.Sprintf("Import failed: %s", err.Error())
		return nil
	}
	m.applySettings(p.snapshot.Settings)
	m.documentReplaced()
	m.successMessage = fmt.Sprintf("Imported %s: %s", filepath.Base(p.source), p.summary)
	return m.repaint.Schedule(RepaintStructure)
}

// documentReplaced drops history and focus that referred to the old document.
func (m *model) documentReplaced() {
	m.abortGestures()
	m.undoStack = nil
	m.redoStack = nil
	for id := range m.targets {
		delete(m.targets, id)
	}
	m.layout.Relayout()
	m.focused = m.firstBlock()
}

func (m *model) exportSnapshot() {
	name := m.config.GetSavePath(ExportFileName(time.Now()))
	data, err := EncodeSnapshot(m.fs.Snapshot(m.settings, time.Now()))
	if err == nil {
		err = os.WriteFile(name, data, 0644)
	}
	if err != nil {
		m.errorMessage = fmt.Sprintf("Error exporting: %s", err.Error())
		return
	}
	m.successMessage = fmt.Sprintf("Exported to %s", absPath(name))
}

func (m *model) exportPNG() {
	side := m.layout.Side()
	name := m.config.GetSavePath(fmt.Sprintf("flowsheet_%s_%s.png", side, time.Now().Format("2006-01-02")))
	if err := ExportSectionPNG(m.fs, side, m.settings, name); err != nil {
		m.errorMessage = fmt.Sprintf("Error exporting PNG: %s", err.Error())
		return
	}
	m.successMessage = fmt.Sprintf("Exported to %s", absPath(name))
}

func (m *model) copyShareLink() {
	link, err := EncodeShareLink(m.config.ShareBaseURL, m.fs.Snapshot(m.settings, time.Now()))
	if err != nil {
		m.errorMessage = fmt.Sprintf("Error building link: %s", err.Error())
		return
	}
	if err := writeClipboardText(link); err != nil {
		m.errorMessage = fmt.Sprintf("Error copying link: %s", err.Error())
		return
	}
	m.successMessage = fmt.Sprintf("Share link copied (%d characters)", len(link))
}

func absPath(name string) string {
	if abs, err := filepath.Abs(name); err == nil {
		return abs
	}
	return name
}
