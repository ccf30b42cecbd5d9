package main

func (m *model) undo() bool {
	if len(m.undoStack) == 0 {
		return false
	}

	lastIndex := len(m.undoStack) - 1
	action := m.undoStack[lastIndex]
	m.undoStack = m.undoStack[:lastIndex]

	switch action.Type {
	case ActionAddBlock:
		data := action.Data.(DeletedBlock)
		m.fs.removeBlock(data.Block.ID)
	case ActionDeleteBlock:
		data := action.Data.(DeletedBlock)
		m.fs.RestoreBlock(data)
	case ActionEditBlock:
		data := action.Inverse.(EditBlockData)
		m.fs.SetHTML(data.ID, data.NewHTML)
	case ActionMoveBlock:
		data := action.Inverse.(MoveBlockData)
		m.fs.MoveBlock(data.ID, data.To.Col, data.To.Row)
	case ActionAddConnection:
		data := action.Data.(ConnectionData)
		m.fs.Disconnect(data.Side, data.Edge.From, data.Edge.To)
	case ActionDeleteConnection:
		data := action.Data.(ConnectionData)
		m.fs.Connect(data.Side, data.Edge.From, data.Edge.To)
	}

	m.redoStack = append(m.redoStack, action)
	return true
}

func (m *model) redo() bool {
	if len(m.redoStack) == 0 {
		return false
	}

	lastIndex := len(m.redoStack) - 1
	action := m.redoStack[lastIndex]
	m.redoStack = m.redoStack[:lastIndex]

	switch action.Type {
	case ActionAddBlock:
		data := action.Data.(DeletedBlock)
		m.fs.RestoreBlock(data)
	case ActionDeleteBlock:
		data := action.Data.(DeletedBlock)
		m.fs.removeBlock(data.Block.ID)
	case ActionEditBlock:
		data := action.Data.(EditBlockData)
		m.fs.SetHTML(data.ID, data.NewHTML)
	case ActionMoveBlock:
		data := action.Data.(MoveBlockData)
		m.fs.MoveBlock(data.ID, data.To.Col, data.To.Row)
	case ActionAddConnection:
		data := action.Data.(ConnectionData)
		m.fs.Connect(data.Side, data.Edge.From, data.Edge.To)
	case ActionDeleteConnection:
		data := action.Data.(ConnectionData)
		m.fs.Disconnect(data.Side, data.Edge.From, data.Edge.To)
	}

	m.undoStack = append(m.undoStack, action)
	return true
}

func (m *model) recordEdit(id BlockID, oldHTML, newHTML string) {
	if oldHTML == newHTML {
		return
	}
	m.recordAction(ActionEditBlock,
		EditBlockData{ID: id, NewHTML: newHTML, OldHTML: oldHTML},
		EditBlockData{ID: id, NewHTML: oldHTML, OldHTML: newHTML},
	)
}

func (m *model) recordMove(id BlockID, from, to Location) {
	m.recordAction(ActionMoveBlock,
		MoveBlockData{ID: id, To: to},
		MoveBlockData{ID: id, To: from},
	)
}
