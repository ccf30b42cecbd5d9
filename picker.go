package main

import (
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

const importPattern = "**/*.{dfsf,json,DFSF,JSON}"

// findSnapshotFiles lists importable files under dir, relative to it.
func findSnapshotFiles(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), importPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (m *model) scanImportFiles() {
	m.fileList = nil
	m.selectedFileIndex = -1
	files, err := findSnapshotFiles(m.config.ImportDirectory())
	if err != nil {
		m.errorMessage = "Error listing files: " + err.Error()
		return
	}
	m.fileList = files
	if len(files) > 0 {
		m.selectedFileIndex = 0
	}
}
