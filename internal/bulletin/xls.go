package bulletin

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/extrame/xls"
)

var (
	// ErrNoSheet is returned when a workbook has no readable worksheet.
	ErrNoSheet = errors.New("bulletin: workbook has no worksheet")
	// ErrNoWorkbook is returned for OLE2 containers without a Workbook stream.
	ErrNoWorkbook = errors.New("bulletin: file has no workbook stream")
	// ErrFormulaCell is returned when a cell holds a formula instead of a value.
	ErrFormulaCell = errors.New("bulletin: formula cells are not supported")
)

const (
	maxColumns      = 256          // BIFF8 column limit
	formulaCellText = "FormulaCol" // what the decoder renders for any formula
)

// Sheet is a rectangular grid of trimmed cell texts: every row has the same width
// (the widest row of the worksheet) and missing cells are "".
type Sheet [][]string

// Width returns the number of columns.
func (s Sheet) Width() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// NewSheet pads ragged rows to a rectangle, trims every cell and drops trailing empty rows.
func NewSheet(rows [][]string) Sheet {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	last := len(rows) - 1
	for last >= 0 && isBlankRow(rows[last]) {
		last--
	}

	out := make(Sheet, 0, last+1)
	for _, r := range rows[:last+1] {
		cells := make([]string, width)
		for i, c := range r {
			cells[i] = strings.TrimSpace(c)
		}
		out = append(out, cells)
	}
	return out
}

func isBlankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadSheet loads the first worksheet of a legacy Excel (.xls, BIFF8) bulletin.
//
// Numeric cells are read as plain numbers regardless of their display format,
// so a count styled "#,##0" or as a date still reads "3". Formula cells are
// rejected with ErrFormulaCell because the decoder does not expose their
// cached result.
func ReadSheet(path string) (sheet Sheet, err error) {
	// the BIFF decoder panics on some truncated files
	defer func() {
		if r := recover(); r != nil {
			sheet, err = nil, fmt.Errorf("read %s: corrupt workbook: %v", path, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if wb == nil {
		return nil, fmt.Errorf("open %s: %w", path, ErrNoWorkbook)
	}
	rawNumbers(wb)

	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, ErrNoSheet
	}

	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := sheetRow(ws, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells, err := rowCells(row)
		if err != nil {
			return nil, fmt.Errorf("read %s: row %d: %w", path, i+1, err)
		}
		rows = append(rows, cells)
	}
	return NewSheet(rows), nil
}

// rawNumbers resets every cell style to the General format. The decoder
// otherwise renders RK numbers under a custom or date format as timestamps.
func rawNumbers(wb *xls.WorkBook) {
	for _, xf := range wb.Xfs {
		switch x := xf.(type) {
		case *xls.Xf8:
			x.Format = 0
		case *xls.Xf5:
			x.Format = 0
		}
	}
}

// sheetRow returns nil for rows the file never defines.
func sheetRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

// rowCells reads a row's cells. Rows built from cell records alone carry no
// column bounds, so those are scanned up to the BIFF8 column limit and
// trimmed of trailing blanks.
func rowCells(row *xls.Row) ([]string, error) {
	last, bounded := row.LastCol(), true
	if last == 0 {
		last, bounded = maxColumns, false
	}

	cells := make([]string, last)
	for c := row.FirstCol(); c < last; c++ {
		v := row.Col(c)
		if v == formulaCellText {
			return nil, fmt.Errorf("column %d: %w", c+1, ErrFormulaCell)
		}
		cells[c] = v
	}
	if !bounded {
		n := len(cells)
		for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
			n--
		}
		cells = cells[:n]
	}
	return cells, nil
}
