package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

const (
	shareCompressed = "fsz="
	sharePlain      = "fs="
)

// EncodeShareLink packs a snapshot into the fragment of base. The snapshot
// JSON is raw-DEFLATE compressed; if compression fails the plain JSON is
// used instead.
func EncodeShareLink(base string, s Snapshot) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	compressed, err := deflate(data)
	if err != nil {
		return base + "#" + sharePlain + base64.RawURLEncoding.EncodeToString(data), nil
	}
	return base + "#" + shareCompressed + base64.RawURLEncoding.EncodeToString(compressed), nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeShareLink extracts and validates the snapshot carried by a link.
// A bare fragment without the URL is accepted too.
func DecodeShareLink(link string) (Snapshot, ImportSummary, error) {
	fragment := link
	if i := strings.IndexByte(link, '#'); i >= 0 {
		fragment = link[i+1:]
	}
	var compressed bool
	switch {
	case strings.HasPrefix(fragment, shareCompressed):
		fragment, compressed = strings.TrimPrefix(fragment, shareCompressed), true
	case strings.HasPrefix(fragment, sharePlain):
		fragment = strings.TrimPrefix(fragment, sharePlain)
	default:
		return Snapshot{}, ImportSummary{}, fmt.Errorf("%w: link carries no flowsheet", ErrFormat)
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(fragment, "="))
	if err != nil {
		return Snapshot{}, ImportSummary{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if compressed {
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		data, err = io.ReadAll(io.LimitReader(r, maxImportSize+1))
		if err != nil {
			return Snapshot{}, ImportSummary{}, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	}
	return ParseSnapshot(data)
}
