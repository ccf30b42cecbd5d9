package main

// SheetMeta carries the header fields of a flowsheet.
type SheetMeta struct {
	Topic      string `json:"topic"`
	Date       string `json:"date"`
	Tournament string `json:"tournament"`
	Place      string `json:"place"`
	TeamAff    string `json:"teamAff"`
	TeamNeg    string `json:"teamNeg"`
}

// ColumnLayout names the columns of each section, left to right.
type ColumnLayout struct {
	Affirmative []string `yaml:"affirmative" json:"affirmative"`
	Negative    []string `yaml:"negative" json:"negative"`
}

func defaultColumnLayout() ColumnLayout {
	return ColumnLayout{
		Affirmative: []string{"1AC", "1NC", "2AC", "Block", "1AR", "2NR"},
		Negative:    []string{"1NC", "2AC", "Block", "1AR", "2NR", "2AR"},
	}
}

func (l ColumnLayout) Titles(side Side) []string {
	if side == SideNegative {
		return l.Negative
	}
	return l.Affirmative
}

type Column struct {
	Title  string
	Blocks []*Block
}

type Section struct {
	Side    Side
	Columns []*Column
	Layer   *Layer
}

// Location addresses a block inside the sheet.
type Location struct {
	Side Side
	Col  int
	Row  int
}

// Sheet holds the two sections of blocks. Every column always has at least
// one block.
type Sheet struct {
	Meta     SheetMeta
	Scores   []string
	sections [2]*Section
	ids      *Registry
}

func NewSheet(layout ColumnLayout, ids *Registry) *Sheet {
	s := &Sheet{ids: ids}
	for _, side := range sides {
		section := &Section{Side: side, Layer: NewLayer(side)}
		for _, title := range layout.Titles(side) {
			section.Columns = append(section.Columns, &Column{Title: title})
		}
		s.sections[side] = section
	}
	s.normalize()
	return s
}

func (s *Sheet) Section(side Side) *Section {
	return s.sections[side]
}

// Columns returns every column in document order: affirmative then negative.
func (s *Sheet) Columns() []*Column {
	var cols []*Column
	for _, side := range sides {
		cols = append(cols, s.sections[side].Columns...)
	}
	return cols
}

func (s *Sheet) Column(side Side, col int) *Column {
	cols := s.sections[side].Columns
	if col < 0 || col >= len(cols) {
		return nil
	}
	return cols[col]
}

func (s *Sheet) Locate(id BlockID) (Location, bool) {
	if id == "" {
		return Location{}, false
	}
	for _, side := range sides {
		for ci, col := range s.sections[side].Columns {
			for ri, b := range col.Blocks {
				if b.ID == id {
					return Location{Side: side, Col: ci, Row: ri}, true
				}
			}
		}
	}
	return Location{}, false
}

func (s *Sheet) Block(id BlockID) *Block {
	loc, ok := s.Locate(id)
	if !ok {
		return nil
	}
	return s.At(loc)
}

func (s *Sheet) At(loc Location) *Block {
	col := s.Column(loc.Side, loc.Col)
	if col == nil || loc.Row < 0 || loc.Row >= len(col.Blocks) {
		return nil
	}
	return col.Blocks[loc.Row]
}

// Has reports whether id names a block in the given section.
func (s *Sheet) Has(side Side, id BlockID) bool {
	loc, ok := s.Locate(id)
	return ok && loc.Side == side
}

func (s *Sheet) BlockCount() int {
	n := 0
	for _, col := range s.Columns() {
		n += len(col.Blocks)
	}
	return n
}

// InsertBlock adds a block at row (clamped) of a column. A nil block gets a
// fresh id; a given block keeps its id.
func (s *Sheet) InsertBlock(side Side, col, row int, b *Block) *Block {
	c := s.Column(side, col)
	if c == nil {
		return nil
	}
	if b == nil {
		b = s.ids.NewBlock("")
	} else {
		s.ids.Ensure(b)
	}
	if row < 0 {
		row = 0
	}
	if row > len(c.Blocks) {
		row = len(c.Blocks)
	}
	c.Blocks = append(c.Blocks, nil)
	copy(c.Blocks[row+1:], c.Blocks[row:])
	c.Blocks[row] = b
	return b
}

func (s *Sheet) AppendBlock(side Side, col int) *Block {
	c := s.Column(side, col)
	if c == nil {
		return nil
	}
	return s.InsertBlock(side, col, len(c.Blocks), nil)
}

func (s *Sheet) InsertAfter(id BlockID) *Block {
	loc, ok := s.Locate(id)
	if !ok {
		return nil
	}
	return s.InsertBlock(loc.Side, loc.Col, loc.Row+1, nil)
}

// RemoveBlock takes a block out of its column. A column left empty receives
// a fresh block.
func (s *Sheet) RemoveBlock(id BlockID) (Block, Location, bool) {
	loc, ok := s.Locate(id)
	if !ok {
		return Block{}, Location{}, false
	}
	c := s.Column(loc.Side, loc.Col)
	removed := *c.Blocks[loc.Row]
	c.Blocks = append(c.Blocks[:loc.Row], c.Blocks[loc.Row+1:]...)
	s.normalize()
	return removed, loc, true
}

// CanDelete reports whether a block may be deleted by the user: it has to be
// empty and must not be the last block of its column.
func (s *Sheet) CanDelete(id BlockID) bool {
	loc, ok := s.Locate(id)
	if !ok {
		return false
	}
	return len(s.Column(loc.Side, loc.Col).Blocks) > 1 && s.At(loc).Empty()
}

// MoveBlock moves a block to row of col within its own section. row indexes
// the destination column with the moved block already taken out.
func (s *Sheet) MoveBlock(id BlockID, col, row int) (Location, bool) {
	from, ok := s.Locate(id)
	if !ok || s.Column(from.Side, col) == nil {
		return Location{}, false
	}
	src := s.Column(from.Side, from.Col)
	b := src.Blocks[from.Row]
	src.Blocks = append(src.Blocks[:from.Row], src.Blocks[from.Row+1:]...)
	s.InsertBlock(from.Side, col, row, b)
	s.normalize()
	return from, true
}

func (s *Sheet) SetHTML(id BlockID, html string) (string, bool) {
	b := s.Block(id)
	if b == nil {
		return "", false
	}
	old := b.HTML
	b.HTML = html
	return old, true
}

// Clear empties every column and resets the header fields.
func (s *Sheet) Clear() {
	s.Meta = SheetMeta{}
	s.Scores = nil
	for _, col := range s.Columns() {
		col.Blocks = nil
	}
	s.normalize()
}

func (s *Sheet) normalize() {
	for _, side := range sides {
		for _, col := range s.sections[side].Columns {
			if len(col.Blocks) == 0 {
				col.Blocks = []*Block{s.ids.NewBlock("")}
			}
		}
	}
}
