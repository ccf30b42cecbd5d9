package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSnapshot = `{
  "version": 1,
  "meta": {"exportedAt": "2025-02-01T10:00:00Z"},
  "sheet": {"topic": "Resolved: X", "teamAff": "Lincoln", "teamNeg": "Douglas"},
  "parts": [
    [{"id": "b-1", "html": "<b>Claim</b><script>x()</script>"}, {"id": "b-1", "html": "dup"}],
    [{"id": "b-2", "html": "Answer"}, "legacy"]
  ],
  "scores": ["29", "28.5"],
  "connections": {
    "affirmative": [{"from": "b-1", "to": "b-2"}, {"from": "b-1", "to": "b-gone"}],
    "negative": []
  },
  "settings": {"fontSize": "large", "theme": "neon", "snapOrth": false}
}`

func TestParseSnapshot(t *testing.T) {
	snap, summary, err := ParseSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, "2025-02-01T10:00:00Z", snap.Meta.ExportedAt)
	assert.Equal(t, "Resolved: X", snap.Sheet.Topic)
	assert.Equal(t, "Douglas", snap.Sheet.TeamNeg)

	require.Len(t, snap.Parts, 2)
	require.NotNil(t, snap.Parts[0][0].ID)
	assert.Equal(t, BlockID("b-1"), *snap.Parts[0][0].ID)
	assert.Nil(t, snap.Parts[0][1].ID, "duplicate id is dropped")
	assert.NotContains(t, snap.Parts[0][0].HTML, "<script")
	assert.Equal(t, "legacy", snap.Parts[1][1].HTML)

	assert.Equal(t, []Edge{{"b-1", "b-2"}}, snap.Connections.Affirmative)
	assert.Equal(t, []string{"29", "28.5"}, snap.Scores)

	assert.Equal(t, "large", snap.Settings.FontSize)
	assert.Equal(t, "system", snap.Settings.Theme)
	assert.False(t, snap.Settings.Orthogonal())

	assert.Equal(t, ImportSummary{Columns: 2, Blocks: 4, Connections: 1, Ignored: 1}, summary)
	assert.Equal(t, "2 columns, 4 blocks, 1 connections (1 ignored)", summary.String())
}

func TestParseSnapshotRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not json", []byte("nope"), ErrFormat},
		{"array", []byte(`[1,2]`), ErrFormat},
		{"null", []byte(`null`), ErrFormat},
		{"no parts", []byte(`{"version":1}`), ErrFormat},
		{"parts not array", []byte(`{"parts":{}}`), ErrFormat},
		{"too large", bytes.Repeat([]byte(" "), maxImportSize+1), ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseSnapshot(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseSnapshotFallsBackToTopLevelMeta(t *testing.T) {
	snap, _, err := ParseSnapshot([]byte(`{"topic":"Flat","tournament":"State","parts":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "Flat", snap.Sheet.Topic)
	assert.Equal(t, "State", snap.Sheet.Tournament)
	assert.Equal(t, snapshotVersion, snap.Version)
	assert.Equal(t, defaultSettings(), snap.Settings)
}

func TestEncodeSnapshot(t *testing.T) {
	data, err := EncodeSnapshot(Snapshot{Version: 1, Parts: [][]PartBlock{}})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Contains(t, string(data), "\n  \"version\": 1")

	snap, _, err := ParseSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2025, time.March, 5, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "flowsheet_2025-03-05.dfsf", ExportFileName(now))
}

func TestCheckImportFile(t *testing.T) {
	assert.NoError(t, checkImportFile("round1.dfsf", 10))
	assert.NoError(t, checkImportFile("ROUND1.JSON", maxImportSize))
	assert.ErrorIs(t, checkImportFile("notes.txt", 10), ErrFileType)
	assert.ErrorIs(t, checkImportFile("big.dfsf", maxImportSize+1), ErrTooLarge)
}

func TestReadSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "round.dfsf")
	require.NoError(t, os.WriteFile(path, append(append([]byte{}, utf8BOM...), sampleSnapshot...), 0644))

	snap, summary, err := ReadSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Lincoln", snap.Sheet.TeamAff)
	assert.Equal(t, 1, summary.Connections)

	other := filepath.Join(dir, "round.txt")
	require.NoError(t, os.WriteFile(other, []byte(sampleSnapshot), 0644))
	_, _, err = ReadSnapshotFile(other)
	assert.ErrorIs(t, err, ErrFileType)

	_, _, err = ReadSnapshotFile(filepath.Join(dir, "missing.dfsf"))
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing.dfsf"))
}
