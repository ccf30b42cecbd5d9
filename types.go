package main

import (
	"context"

	"github.com/charmbracelet/bubbles/textarea"
	"go.uber.org/zap"
)

type model struct {
	width             int
	height            int
	mode              Mode
	help              bool
	helpScroll        int
	ctx               context.Context
	config            *Config
	settings          Settings
	logger            *zap.Logger
	fs                *Flowsheet
	layout            *Layout
	connect           *ConnectController
	reorder           *ReorderController
	repaint           *RepaintScheduler
	watcher           *ConfigWatcher
	targets           targetSet
	focused           BlockID
	undoStack         []Action
	redoStack         []Action
	editor            textarea.Model
	editID            BlockID
	originalEditHTML  string
	confirmAction     ConfirmAction
	pending           *pendingImport
	fileList          []string
	selectedFileIndex int
	errorMessage      string
	successMessage    string
}

// targetSet records the blocks marked as drop targets.
type targetSet map[BlockID]bool

func (t targetSet) MarkTarget(id BlockID, on bool) {
	if on {
		t[id] = true
	} else {
		delete(t, id)
	}
}

type pendingImport struct {
	source   string
	snapshot Snapshot
	summary  ImportSummary
}

type Action struct {
	Type    ActionType
	Data    interface{}
	Inverse interface{}
}

type EditBlockData struct {
	ID      BlockID
	NewHTML string
	OldHTML string
}

type MoveBlockData struct {
	ID BlockID
	To Location
}

type ConnectionData struct {
	Side Side
	Edge Edge
}
