package model

import "strings"

// RowSnapshot is the trimmed cell text of one body row, in column order.
type RowSnapshot []string

// Cell returns the text at a zero-based column position.
func (r RowSnapshot) Cell(col int) (string, bool) {
	if col < 0 || col >= len(r) {
		return "", false
	}
	return r[col], true
}

// PageSnapshot is the table content rendered on the current page. It is
// built fresh for each verification and must not outlive a navigation.
type PageSnapshot struct {
	Headers []string      `yaml:"headers" json:"headers"`
	Rows    []RowSnapshot `yaml:"rows"    json:"rows"`
}

// Columns indexes the snapshot headers.
func (p PageSnapshot) Columns() ColumnIndex {
	return NewColumnIndex(p.Headers)
}

// FindRow returns the 1-based number of the first row whose cell at col
// equals value.
func (p PageSnapshot) FindRow(col int, value string) (int, bool) {
	for i, row := range p.Rows {
		if cell, ok := row.Cell(col); ok && cell == value {
			return i + 1, true
		}
	}
	return 0, false
}

// LastRow returns the final body row, if any.
func (p PageSnapshot) LastRow() (RowSnapshot, bool) {
	if len(p.Rows) == 0 {
		return nil, false
	}
	return p.Rows[len(p.Rows)-1], true
}

// Fingerprint is the first cell of the first row.
func (p PageSnapshot) Fingerprint() RowFingerprint {
	if len(p.Rows) == 0 {
		return ""
	}
	cell, _ := p.Rows[0].Cell(0)
	return RowFingerprint(cell)
}

// ColumnIndex maps exact header labels to zero-based positions.
type ColumnIndex map[string]int

// NewColumnIndex indexes trimmed header labels. When a label repeats the
// first position wins.
func NewColumnIndex(headers []string) ColumnIndex {
	idx := make(ColumnIndex, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

// Lookup returns the position of label. Matching is exact and case-sensitive.
func (c ColumnIndex) Lookup(label string) (int, bool) {
	i, ok := c[label]
	return i, ok
}

// RowFingerprint identifies the rendered dataset cheaply: the text of the
// first cell of the first row.
type RowFingerprint string

// Position locates a row across pages. Both fields are 1-based.
type Position struct {
	Page int `yaml:"page" json:"page"`
	Row  int `yaml:"row"  json:"row"`
}
