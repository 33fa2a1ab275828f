// Package sheets turns uploaded workbooks into header-keyed rows and
// normalised import candidates, and writes template workbooks.
package sheets

import (
	"errors"
	"strings"
)

var (
	ErrEmptySheet             = errors.New("spreadsheet has no header row")
	ErrIdentityColumnNotFound = errors.New("no registration number column found (expected a header containing reg, number or id)")
	ErrMarkColumnNotFound     = errors.New("no mark column found for single-subject import")
	ErrAmountColumnNotFound   = errors.New("no amount column found")
)

// Row is one data row of the first sheet, keyed by header text.
type Row struct {
	Number int
	Values map[string]string
}

// Get returns the trimmed value under header, or "" when the row is short.
func (r Row) Get(header string) string {
	return r.Values[header]
}

// Sheet is a parsed first sheet. Identity, Name and Class hold header text;
// Name and Class are empty when the sheet has no such column.
type Sheet struct {
	Headers  []string
	Identity string
	Name     string
	Class    string
	Rows     []Row
}

// IdentityColumn returns the index of the first header whose lowercased
// text contains "reg", "number" or "id".
func IdentityColumn(headers []string) (int, error) {
	for i, h := range headers {
		hn := strings.ToLower(strings.TrimSpace(h))
		if hn == "" {
			continue
		}
		if strings.Contains(hn, "reg") || strings.Contains(hn, "number") || strings.Contains(hn, "id") {
			return i, nil
		}
	}
	return -1, ErrIdentityColumnNotFound
}

// Parse reads row 1 as the header row. Blank header cells drop their
// column, fully blank data rows are dropped.
func Parse(rows [][]string) (*Sheet, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	headerRow := rows[0]
	headers := make([]string, 0, len(headerRow))
	positions := make([]int, 0, len(headerRow))
	for i, h := range headerRow {
		h = normalizeHeader(h)
		if h == "" {
			continue
		}
		headers = append(headers, h)
		positions = append(positions, i)
	}
	if len(headers) == 0 {
		return nil, ErrEmptySheet
	}

	idx, err := IdentityColumn(headers)
	if err != nil {
		return nil, err
	}
	s := &Sheet{Headers: headers, Identity: headers[idx]}
	for i, h := range headers {
		if i == idx {
			continue
		}
		hn := strings.ToLower(h)
		if s.Class == "" && isClassHeader(hn) {
			s.Class = h
			continue
		}
		if s.Name == "" && strings.Contains(hn, "name") {
			s.Name = h
		}
	}

	for n, raw := range rows[1:] {
		values := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			pos := positions[i]
			if pos >= len(raw) {
				continue
			}
			v := strings.TrimSpace(raw[pos])
			if v != "" {
				empty = false
			}
			values[h] = v
		}
		if empty {
			continue
		}
		s.Rows = append(s.Rows, Row{Number: n + 2, Values: values})
	}
	return s, nil
}

// isClassHeader matches the class column exactly so subjects such as
// "Classical Studies" stay value columns.
func isClassHeader(lower string) bool {
	switch strings.Join(strings.FieldsFunc(lower, func(r rune) bool { return r == ' ' || r == '_' }), " ") {
	case "class", "class label", "class name":
		return true
	}
	return false
}

// ValueColumns are the headers that are neither identity, name nor class.
func (s *Sheet) ValueColumns() []string {
	cols := make([]string, 0, len(s.Headers))
	for _, h := range s.Headers {
		if h == s.Identity || h == s.Name || h == s.Class {
			continue
		}
		cols = append(cols, h)
	}
	return cols
}

// Find returns the first header for which match reports true.
func (s *Sheet) Find(match func(lower string) bool) string {
	for _, h := range s.Headers {
		if match(strings.ToLower(h)) {
			return h
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(h)
	h = strings.Trim(h, "'\"`")
	return strings.TrimSpace(h)
}
