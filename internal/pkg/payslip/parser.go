// Package payslip extracts the payroll summary from a portal detail page.
package payslip

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"sentinela/internal/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrParse         = errors.New("payslip parse error")
	ErrTableNotFound = fmt.Errorf("%w: no table with a net income column", ErrParse)
	ErrNoDataRow     = fmt.Errorf("%w: payroll table has no data row", ErrParse)
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrParse)
)

// Recognised column labels, as published by the portal.
const (
	ColumnRole         = "Cargo"
	ColumnNetIncome    = "Rendimento Líquido"
	ColumnTotalCredits = "Total de Créditos"
	ColumnTotalDebits  = "Total de Débitos"
)

// Detail is the typed content of one payslip table. Absent money columns are
// zero; an absent role column is models.UnknownRole.
type Detail struct {
	Role         string
	NetIncome    float64
	TotalCredits float64
	TotalDebits  float64
}

// Parse locates the payroll table in a detail page and reads its first data row.
func Parse(raw []byte) (detail *Detail, err error) {
	defer func() {
		if r := recover(); r != nil {
			detail = nil
			err = fmt.Errorf("%w: %v", ErrParse, r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return ParseDocument(doc)
}

func ParseDocument(doc *goquery.Document) (*Detail, error) {
	var found *table
	doc.Find("table").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := readTable(s)
		if t.hasColumn(ColumnNetIncome) {
			found = t
			return false
		}
		return true
	})

	if found == nil {
		return nil, ErrTableNotFound
	}

	row := found.firstDataRow()
	if row == nil {
		return nil, ErrNoDataRow
	}

	detail := &Detail{Role: models.UnknownRole}
	if idx, ok := found.columns[foldLabel(ColumnRole)]; ok {
		if role := strings.ToUpper(cellAt(row, idx)); role != "" {
			detail.Role = role
		}
	}

	amounts := []struct {
		label string
		dest  *float64
	}{
		{ColumnNetIncome, &detail.NetIncome},
		{ColumnTotalCredits, &detail.TotalCredits},
		{ColumnTotalDebits, &detail.TotalDebits},
	}
	for _, a := range amounts {
		idx, ok := found.columns[foldLabel(a.label)]
		if !ok {
			continue
		}
		v, err := NormalizeAmount(cellAt(row, idx))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.label, err)
		}
		*a.dest = v
	}

	return detail, nil
}

const maxSpan = 64

type cell struct {
	text    string
	colspan int
	rowspan int
}

type table struct {
	headers [][]string
	rows    [][]string
	columns map[string]int // folded leaf name -> first column index
}

func readTable(s *goquery.Selection) *table {
	var raw [][]cell
	headerRows := 0
	leading := true

	// nested tables belong to their own selection
	s.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(s)
	}).Each(func(_ int, tr *goquery.Selection) {
		var cells []cell
		allHeader := true
		tr.Children().Each(func(_ int, c *goquery.Selection) {
			tag := goquery.NodeName(c)
			if tag != "td" && tag != "th" {
				return
			}
			isHeader := tag == "th" || c.ParentsFiltered("thead").Length() > 0
			if !isHeader {
				allHeader = false
			}
			cells = append(cells, cell{
				text:    cleanText(c.Text()),
				colspan: spanAttr(c, "colspan"),
				rowspan: spanAttr(c, "rowspan"),
			})
		})
		if len(cells) == 0 {
			return
		}
		if leading && allHeader {
			headerRows++
		} else {
			leading = false
		}
		raw = append(raw, cells)
	})

	// without <th> rows the first row names the columns
	if headerRows == 0 && len(raw) > 0 {
		headerRows = 1
	}

	grid := expandGrid(raw)
	t := &table{
		headers: grid[:min(headerRows, len(grid))],
		rows:    grid[min(headerRows, len(grid)):],
		columns: map[string]int{},
	}

	if len(t.headers) > 0 {
		leaf := t.headers[len(t.headers)-1]
		for i, name := range leaf {
			key := foldLabel(name)
			if key == "" {
				continue
			}
			if _, dup := t.columns[key]; !dup {
				t.columns[key] = i
			}
		}
	}
	return t
}

func (t *table) hasColumn(label string) bool {
	want := foldLabel(label)
	for _, row := range t.headers {
		for _, name := range row {
			if foldLabel(name) == want {
				return true
			}
		}
	}
	return false
}

func (t *table) firstDataRow() []string {
	for _, row := range t.rows {
		for _, v := range row {
			if v != "" {
				return row
			}
		}
	}
	return nil
}

// expandGrid lays cells out on a rectangular grid, repeating spanned cells
// into every position they cover.
func expandGrid(rows [][]cell) [][]string {
	grid := make([][]string, len(rows))
	taken := make([]map[int]bool, len(rows))
	for i := range taken {
		taken[i] = map[int]bool{}
	}

	set := func(r, c int, v string) {
		for len(grid[r]) <= c {
			grid[r] = append(grid[r], "")
		}
		grid[r][c] = v
		taken[r][c] = true
	}

	for r, cells := range rows {
		col := 0
		for _, c := range cells {
			for taken[r][col] {
				col++
			}
			for dr := 0; dr < c.rowspan && r+dr < len(rows); dr++ {
				for dc := 0; dc < c.colspan; dc++ {
					set(r+dr, col+dc, c.text)
				}
			}
			col += c.colspan
		}
	}
	return grid
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func spanAttr(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 1
	}
	n := 0
	for _, r := range strings.TrimSpace(v) {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	if n < 1 {
		return 1
	}
	return min(n, maxSpan)
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}

// foldLabel compares header labels ignoring accents, case and spacing.
// A transform.Chain is stateful, so each call builds its own.
func foldLabel(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, cleanText(s))
	if err != nil {
		folded = cleanText(s)
	}
	return strings.ToLower(folded)
}
