package main

type Mode int

const (
	ModeNormal Mode = iota
	ModeEditing
	ModeFileInput
	ModeConfirm
)

type ConfirmAction int

const (
	ConfirmClearAll ConfirmAction = iota
	ConfirmImport
	ConfirmRestoreBackup
)

type ActionType int

const (
	ActionAddBlock ActionType = iota
	ActionDeleteBlock
	ActionEditBlock
	ActionMoveBlock
	ActionAddConnection
	ActionDeleteConnection
)

// Side identifies one of the two flow sections.
type Side int

const (
	SideAffirmative Side = iota
	SideNegative
)

var sides = [...]Side{SideAffirmative, SideNegative}

func (s Side) String() string {
	if s == SideNegative {
		return "negative"
	}
	return "affirmative"
}

func (s Side) Other() Side {
	if s == SideNegative {
		return SideAffirmative
	}
	return SideNegative
}

const (
	// Geometry is measured in pixel units; one terminal cell is cellWidth x cellHeight.
	cellWidth  = 8.0
	cellHeight = 16.0

	hitStrokeWidth     = 14.0
	visibleStrokeWidth = 2.0

	minColumnCells = 18
	columnGapCells = 2
	headerRows     = 3
	statusRows     = 1
	scrollStep     = 3
)

const (
	documentKey = "flowsheet-autosave-v1"
	backupKey   = "flowsheet-last-backup-v1"

	snapshotVersion = 1
	maxImportSize   = 5 * 1024 * 1024
	exportExtension = ".dfsf"
)
