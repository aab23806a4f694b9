package bulletin

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/shopspring/decimal"
)

// AnchorMarker introduces the metric-ton section of the oil bulletin.
const AnchorMarker = "Единица измерения: Метрическая тонна"

// Bulletin layout. Column indexes are zero-based; the count is always the sheet's last column.
const (
	anchorColumn      = 1
	rowsAfterAnchor   = 2 // the anchor row itself and the table header
	footerRows        = 2 // totals and legend
	colProductCode    = 1
	colProductName    = 2
	colDeliveryBasis  = 3
	colVolume         = 4
	colTotal          = 5
	minSheetWidth     = colTotal + 1
	placeholderValue  = "-"
	normalizedMissing = "0"
)

var (
	// ErrAnchorNotFound is returned when no row carries AnchorMarker.
	ErrAnchorNotFound = errors.New("bulletin: metric ton section not found")
	// ErrMalformedRow is returned when a data row cannot be interpreted.
	ErrMalformedRow = errors.New("bulletin: malformed data row")
)

// RawRow is one trade line of the bulletin with its six retained columns, already normalised.
type RawRow struct {
	ProductCode       string
	ProductName       string
	DeliveryBasisName string
	Volume            string
	Total             string
	Count             string
}

// FindAnchor returns the index of the first row whose anchor column contains AnchorMarker.
// Rows whose anchor cell is empty are skipped.
func FindAnchor(s Sheet) (int, error) {
	if s.Width() <= anchorColumn {
		return 0, ErrAnchorNotFound
	}
	for i, row := range s {
		cell := row[anchorColumn]
		if cell == "" {
			continue
		}
		if strings.Contains(cell, AnchorMarker) {
			return i, nil
		}
	}
	return 0, ErrAnchorNotFound
}

// Rows lazily yields the real trades of a bulletin sheet.
//
// Behavior:
//   - Locates the anchor row (FindAnchor); data starts two rows below it.
//   - Drops the final two footer rows.
//   - Keeps columns 1..5 and the last column, mapping "-" and blank cells to "0".
//   - Skips rows whose count (last column, truncated to an integer) is not strictly positive.
//
// On the first error the sequence yields (RawRow{}, err) and stops.
func Rows(s Sheet) iter.Seq2[RawRow, error] {
	return func(yield func(RawRow, error) bool) {
		anchor, err := FindAnchor(s)
		if err != nil {
			yield(RawRow{}, err)
			return
		}
		if s.Width() < minSheetWidth {
			yield(RawRow{}, fmt.Errorf("%w: sheet has %d columns, need at least %d", ErrMalformedRow, s.Width(), minSheetWidth))
			return
		}

		last := s.Width() - 1
		end := len(s) - footerRows
		for i := anchor + rowsAfterAnchor; i < end; i++ {
			cells := s[i]
			row := RawRow{
				ProductCode:       NormalizeCell(cells[colProductCode]),
				ProductName:       NormalizeCell(cells[colProductName]),
				DeliveryBasisName: NormalizeCell(cells[colDeliveryBasis]),
				Volume:            NormalizeCell(cells[colVolume]),
				Total:             NormalizeCell(cells[colTotal]),
				Count:             NormalizeCell(cells[last]),
			}

			n, err := ParseCount(row.Count)
			if err != nil {
				yield(RawRow{}, fmt.Errorf("%w: row %d: count %q: %v", ErrMalformedRow, i+1, row.Count, err))
				return
			}
			if n <= 0 {
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// NormalizeCell maps the placeholder "-" and blank cells to "0"; other values pass through.
func NormalizeCell(c string) string {
	c = strings.TrimSpace(c)
	if c == "" || c == placeholderValue {
		return normalizedMissing
	}
	return c
}

// ParseCount interprets a count cell as an integer, truncating any fraction toward zero.
// Group separators (spaces) and a decimal comma are accepted.
func ParseCount(s string) (int64, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}
