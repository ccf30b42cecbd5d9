package main

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// BlockID is the stable identity of a block. It survives reordering,
// editing and reload, and is the only thing a connection refers to.
type BlockID string

var blockIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("blockid", func(fl validator.FieldLevel) bool {
		return blockIDPattern.MatchString(fl.Field().String())
	})
	return v
}

func ValidBlockID(id string) bool {
	return validate.Var(id, "blockid") == nil
}

type Block struct {
	ID   BlockID
	HTML string
}

func (b *Block) Text() string {
	return htmlToText(b.HTML)
}

func (b *Block) Empty() bool {
	return strings.TrimSpace(b.Text()) == ""
}

// Registry issues block ids and remembers every id it has seen, so a fresh id
// never collides with one that is already in the document.
type Registry struct {
	issued map[BlockID]struct{}
	newID  func() string
}

func NewRegistry() *Registry {
	return &Registry{
		issued: make(map[BlockID]struct{}),
		newID:  uuid.NewString,
	}
}

func (r *Registry) Next() BlockID {
	for {
		id := BlockID("b-" + r.newID())
		if _, taken := r.issued[id]; !taken {
			r.issued[id] = struct{}{}
			return id
		}
	}
}

// Ensure gives b an id if it has none and records it otherwise. Existing ids
// are never replaced.
func (r *Registry) Ensure(b *Block) BlockID {
	if b.ID == "" {
		b.ID = r.Next()
		return b.ID
	}
	r.issued[b.ID] = struct{}{}
	return b.ID
}

func (r *Registry) NewBlock(html string) *Block {
	return &Block{ID: r.Next(), HTML: html}
}

// Upgrade assigns ids to every block of the sheet that lacks one and returns
// how many were assigned.
func (r *Registry) Upgrade(s *Sheet) int {
	assigned := 0
	for _, col := range s.Columns() {
		for _, b := range col.Blocks {
			if b.ID == "" {
				assigned++
			}
			r.Ensure(b)
		}
	}
	return assigned
}

func (r *Registry) Reset() {
	r.issued = make(map[BlockID]struct{})
}
