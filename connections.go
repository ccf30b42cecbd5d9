package main

import "errors"

// Edge is a directed link between two blocks of the same section.
type Edge struct {
	From BlockID `json:"from"`
	To   BlockID `json:"to"`
}

// Connections is the persisted connection graph, one edge list per section.
type Connections struct {
	Affirmative []Edge `json:"affirmative"`
	Negative    []Edge `json:"negative"`
}

func (c Connections) Side(side Side) []Edge {
	if side == SideNegative {
		return c.Negative
	}
	return c.Affirmative
}

func (c *Connections) Set(side Side, edges []Edge) {
	if side == SideNegative {
		c.Negative = edges
	} else {
		c.Affirmative = edges
	}
}

func (c Connections) Len() int {
	return len(c.Affirmative) + len(c.Negative)
}

type ConnectStatus int

const (
	ConnectCreated ConnectStatus = iota
	ConnectDuplicate
	ConnectRejected
)

var (
	ErrSelfLoop     = errors.New("a block cannot connect to itself")
	ErrUnknownBlock = errors.New("unknown block")
	ErrCrossSection = errors.New("blocks belong to different sections")
)

// ConnectionStore is the authoritative edge set. Rendered links are derived
// from it, never the other way around.
type ConnectionStore struct {
	edges [2][]Edge
	index [2]map[Edge]struct{}
}

func NewConnectionStore() *ConnectionStore {
	s := &ConnectionStore{}
	s.Clear()
	return s
}

func (s *ConnectionStore) Clear() {
	for _, side := range sides {
		s.edges[side] = nil
		s.index[side] = make(map[Edge]struct{})
	}
}

func (s *ConnectionStore) Has(side Side, from, to BlockID) bool {
	_, ok := s.index[side][Edge{From: from, To: to}]
	return ok
}

// Connect adds (from, to) to the section's edge set. Existing edges are left
// alone and self-loops are refused.
func (s *ConnectionStore) Connect(side Side, from, to BlockID) ConnectStatus {
	if from == "" || to == "" || from == to {
		return ConnectRejected
	}
	e := Edge{From: from, To: to}
	if _, ok := s.index[side][e]; ok {
		return ConnectDuplicate
	}
	s.index[side][e] = struct{}{}
	s.edges[side] = append(s.edges[side], e)
	return ConnectCreated
}

func (s *ConnectionStore) Disconnect(side Side, from, to BlockID) bool {
	e := Edge{From: from, To: to}
	if _, ok := s.index[side][e]; !ok {
		return false
	}
	delete(s.index[side], e)
	for i, existing := range s.edges[side] {
		if existing == e {
			s.edges[side] = append(s.edges[side][:i], s.edges[side][i+1:]...)
			break
		}
	}
	return true
}

// PruneBlock drops every edge of side touching id and returns them.
func (s *ConnectionStore) PruneBlock(side Side, id BlockID) []Edge {
	var removed []Edge
	kept := s.edges[side][:0]
	for _, e := range s.edges[side] {
		if e.From == id || e.To == id {
			removed = append(removed, e)
			delete(s.index[side], e)
			continue
		}
		kept = append(kept, e)
	}
	s.edges[side] = kept
	return removed
}

func (s *ConnectionStore) Edges(side Side) []Edge {
	return append([]Edge(nil), s.edges[side]...)
}

func (s *ConnectionStore) Len(side Side) int {
	return len(s.edges[side])
}

// Snapshot copies the graph in the persisted shape. Empty sections encode as
// empty lists.
func (s *ConnectionStore) Snapshot() Connections {
	var c Connections
	for _, side := range sides {
		edges := s.Edges(side)
		if edges == nil {
			edges = []Edge{}
		}
		c.Set(side, edges)
	}
	return c
}

// Replace swaps the whole graph for g, keeping only edges whose endpoints both
// exist in their section. It returns the number of edges dropped.
func (s *ConnectionStore) Replace(g Connections, exists func(Side, BlockID) bool) int {
	s.Clear()
	dropped := 0
	for _, side := range sides {
		for _, e := range g.Side(side) {
			if !exists(side, e.From) || !exists(side, e.To) {
				dropped++
				continue
			}
			if s.Connect(side, e.From, e.To) != ConnectCreated {
				dropped++
			}
		}
	}
	return dropped
}
