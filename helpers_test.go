package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *RecordStore {
	t.Helper()
	store, err := OpenRecordStore(filepath.Join(t.TempDir(), "flowsheet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestFlowsheet(store *RecordStore) *Flowsheet {
	return NewFlowsheet(defaultColumnLayout(), store, zap.NewNop())
}

// newTestLayout lays out the affirmative section 120 cells wide: every column
// is 18 cells wide and column c starts at cell 2+20*c.
func newTestLayout(fs *Flowsheet) *Layout {
	l := NewLayout(fs.Sheet(), headerRows)
	l.Resize(120, 40)
	return l
}

func firstIn(fs *Flowsheet, side Side, col int) BlockID {
	return fs.Sheet().Column(side, col).Blocks[0].ID
}
