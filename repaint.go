package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type RepaintReason int

const (
	RepaintResize RepaintReason = 1 << iota
	RepaintScroll
	RepaintInput
	RepaintSideSwitch
	RepaintSettings
	RepaintStructure
)

type repaintMsg struct{}

// RepaintScheduler coalesces repaint triggers into at most one repaint per
// frame. Only the first trigger of a frame schedules a tick; later ones are
// folded into it.
type RepaintScheduler struct {
	frame     time.Duration
	pending   bool
	reasons   RepaintReason
	coalesced int
}

func NewRepaintScheduler(frame time.Duration) *RepaintScheduler {
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	return &RepaintScheduler{frame: frame}
}

func (s *RepaintScheduler) SetFrame(frame time.Duration) {
	if frame > 0 {
		s.frame = frame
	}
}

// Schedule records a trigger and returns the tick command when no repaint
// is pending yet, or nil.
func (s *RepaintScheduler) Schedule(reason RepaintReason) tea.Cmd {
	s.reasons |= reason
	s.coalesced++
	if s.pending {
		return nil
	}
	s.pending = true
	return tea.Tick(s.frame, func(time.Time) tea.Msg { return repaintMsg{} })
}

func (s *RepaintScheduler) Pending() bool {
	return s.pending
}

// Flush clears the pending repaint and returns the reasons and the number of
// triggers it covers.
func (s *RepaintScheduler) Flush() (RepaintReason, int) {
	reasons, n := s.reasons, s.coalesced
	s.pending = false
	s.reasons = 0
	s.coalesced = 0
	return reasons, n
}
