package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrFormat   = errors.New("invalid flowsheet format")
	ErrTooLarge = errors.New("file too large")
	ErrFileType = errors.New("unsupported file type")
	ErrNoBackup = errors.New("no backup available")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type SnapshotMeta struct {
	ExportedAt string `json:"exportedAt"`
}

// Snapshot is the export/import format: the document plus settings, with a
// format version.
type Snapshot struct {
	Version     int           `json:"version"`
	Meta        SnapshotMeta  `json:"meta"`
	Sheet       SheetMeta     `json:"sheet"`
	Parts       [][]PartBlock `json:"parts"`
	Scores      []string      `json:"scores"`
	Connections Connections   `json:"connections"`
	Settings    Settings      `json:"settings"`
}

type ImportSummary struct {
	Columns     int
	Blocks      int
	Connections int
	Ignored     int
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("%d columns, %d blocks, %d connections (%d ignored)",
		s.Columns, s.Blocks, s.Connections, s.Ignored)
}

func ExportFileName(now time.Time) string {
	return "flowsheet_" + now.Format("2006-01-02") + exportExtension
}

// EncodeSnapshot renders s as indented JSON preceded by a UTF-8 byte order mark.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return append(append([]byte(nil), utf8BOM...), data...), nil
}

func checkImportFile(name string, size int64) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dfsf", ".json":
	default:
		return fmt.Errorf("%w: %s", ErrFileType, filepath.Base(name))
	}
	if size > maxImportSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return nil
}

func ReadSnapshotFile(path string) (Snapshot, ImportSummary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, ImportSummary{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := checkImportFile(path, info.Size()); err != nil {
		return Snapshot{}, ImportSummary{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, ImportSummary{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot validates data completely before anything is applied. Block
// ids are checked and de-duplicated, block HTML is sanitised and connections
// referring to unknown blocks are dropped.
func ParseSnapshot(data []byte) (Snapshot, ImportSummary, error) {
	var summary ImportSummary
	if len(data) > maxImportSize {
		return Snapshot{}, summary, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return Snapshot{}, summary, fmt.Errorf("%w: top level is not an object", ErrFormat)
	}
	parts, ok := decodeParts(obj["parts"])
	if !ok {
		return Snapshot{}, summary, fmt.Errorf("%w: parts is not an array", ErrFormat)
	}

	snap := Snapshot{Version: snapshotVersion}
	var version int
	if raw, ok := obj["version"]; ok && json.Unmarshal(raw, &version) == nil && version > 0 {
		snap.Version = version
	}
	var meta map[string]json.RawMessage
	if json.Unmarshal(obj["meta"], &meta) == nil {
		snap.Meta.ExportedAt = stringField(meta, "exportedAt")
	}
	var sheet map[string]json.RawMessage
	if json.Unmarshal(obj["sheet"], &sheet) == nil && sheet != nil {
		snap.Sheet = decodeMeta(sheet)
	} else {
		snap.Sheet = decodeMeta(obj)
	}

	known := make(map[BlockID]bool)
	snap.Parts = make([][]PartBlock, len(parts))
	for i, col := range parts {
		validated := make([]PartBlock, 0, len(col))
		for _, p := range col {
			var id *BlockID
			if p.ID != nil && ValidBlockID(string(*p.ID)) && !known[*p.ID] {
				known[*p.ID] = true
				id = p.ID
			}
			validated = append(validated, PartBlock{ID: id, HTML: SanitizeHTML(p.HTML)})
		}
		snap.Parts[i] = validated
		summary.Blocks += len(validated)
	}
	summary.Columns = len(snap.Parts)

	snap.Scores = decodeScores(obj["scores"])
	snap.Connections, summary.Ignored = decodeConnections(obj["connections"], known)
	summary.Connections = snap.Connections.Len()
	snap.Settings = decodeSettings(obj["settings"])
	return snap, summary, nil
}

func decodeSettings(raw json.RawMessage) Settings {
	s := defaultSettings()
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return s
	}
	s.FontSize = stringField(obj, "fontSize")
	s.LineHeight = stringField(obj, "lineHeight")
	if theme := stringField(obj, "theme"); theme != "" {
		s.Theme = theme
	}
	var snap bool
	if v, ok := obj["snapOrth"]; ok && json.Unmarshal(v, &snap) == nil {
		s.SnapOrth = &snap
	}
	s.Normalize()
	return s
}

// backupEntry is the stored form of the pre-import backup.
type backupEntry struct {
	Timestamp time.Time `json:"ts"`
	Snapshot  Snapshot  `json:"snapshot"`
}
