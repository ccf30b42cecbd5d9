package main

import (
	"bytes"
	"encoding/json"
)

// PartBlock is one block as stored in a document or snapshot. Legacy
// documents store a bare HTML string instead of an object.
type PartBlock struct {
	ID   *BlockID `json:"id"`
	HTML string   `json:"html"`
}

func (p *PartBlock) UnmarshalJSON(data []byte) error {
	*p = PartBlock{}
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		p.HTML = legacy
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	var id string
	if raw, ok := obj["id"]; ok && json.Unmarshal(raw, &id) == nil {
		bid := BlockID(id)
		p.ID = &bid
	}
	p.HTML = stringField(obj, "html")
	return nil
}

// Document is the autosaved record: sheet metadata, block content per
// column, scores and the connection graph.
type Document struct {
	SheetMeta
	Parts       [][]PartBlock `json:"parts"`
	Scores      []string      `json:"scores"`
	Connections Connections   `json:"connections"`
}

// decodeDocument reads a stored document. It never fails: anything that does
// not have the expected shape is replaced by its zero value.
func decodeDocument(data []byte) Document {
	var doc Document
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &obj); err != nil {
		return doc
	}
	doc.SheetMeta = decodeMeta(obj)
	if parts, ok := decodeParts(obj["parts"]); ok {
		doc.Parts = parts
	}
	doc.Scores = decodeScores(obj["scores"])
	doc.Connections, _ = decodeConnections(obj["connections"], nil)
	return doc
}

func stringField(obj map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := obj[key]; ok && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

func decodeMeta(obj map[string]json.RawMessage) SheetMeta {
	return SheetMeta{
		Topic:      stringField(obj, "topic"),
		Date:       stringField(obj, "date"),
		Tournament: stringField(obj, "tournament"),
		Place:      stringField(obj, "place"),
		TeamAff:    stringField(obj, "teamAff"),
		TeamNeg:    stringField(obj, "teamNeg"),
	}
}

func isJSONArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

// decodeParts reads an array of columns. A column that is not an array
// decodes as empty; the second result is false when raw is not an array.
func decodeParts(raw json.RawMessage) ([][]PartBlock, bool) {
	if !isJSONArray(raw) {
		return nil, false
	}
	var cols []json.RawMessage
	if err := json.Unmarshal(raw, &cols); err != nil {
		return nil, false
	}
	parts := make([][]PartBlock, len(cols))
	for i, col := range cols {
		var items []PartBlock
		if isJSONArray(col) && json.Unmarshal(col, &items) == nil {
			parts[i] = items
		} else {
			parts[i] = []PartBlock{}
		}
	}
	return parts, true
}

func decodeScores(raw json.RawMessage) []string {
	var items []json.RawMessage
	if !isJSONArray(raw) || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	scores := make([]string, len(items))
	for i, item := range items {
		_ = json.Unmarshal(item, &scores[i])
	}
	return scores
}

// decodeConnections reads both edge lists. Entries that are not
// {from, to} string pairs, or whose ids fail the block id rule or are missing
// from known (when known is non-nil), are dropped and counted.
func decodeConnections(raw json.RawMessage, known map[BlockID]bool) (Connections, int) {
	c := Connections{Affirmative: []Edge{}, Negative: []Edge{}}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return c, 0
	}
	ignored := 0
	for _, side := range sides {
		var items []json.RawMessage
		if !isJSONArray(obj[side.String()]) || json.Unmarshal(obj[side.String()], &items) != nil {
			continue
		}
		edges := []Edge{}
		for _, item := range items {
			var fields map[string]json.RawMessage
			if json.Unmarshal(item, &fields) != nil {
				ignored++
				continue
			}
			from, to := stringField(fields, "from"), stringField(fields, "to")
			if !ValidBlockID(from) || !ValidBlockID(to) {
				ignored++
				continue
			}
			if known != nil && (!known[BlockID(from)] || !known[BlockID(to)]) {
				ignored++
				continue
			}
			edges = append(edges, Edge{From: BlockID(from), To: BlockID(to)})
		}
		c.Set(side, edges)
	}
	return c, ignored
}
