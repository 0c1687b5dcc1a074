package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/model"
)

// XLSXDecoder reads one worksheet of an Excel workbook. The first row is the header.
type XLSXDecoder struct {
	// Sheet names the worksheet; empty selects the first one.
	Sheet string
	// Decimal is written as the separator of numeric cells; zero means '.'.
	Decimal rune
}

// Format returns the decoder name.
func (d *XLSXDecoder) Format() string { return "xlsx" }

// Decode reads the worksheet's rows. Cells are read unformatted: date cells
// come back as 2006-01-02 and numeric cells as plain numbers without grouping.
func (d *XLSXDecoder) Decode(r io.Reader) ([]model.RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening workbook: %v", apperrors.ErrCorruptInput, err)
	}
	defer f.Close()

	sheet := d.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", apperrors.ErrCorruptInput)
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %q: %v", apperrors.ErrCorruptInput, sheet, err)
	}
	cells := &cellReader{f: f, sheet: sheet, decimal: d.Decimal, dates: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		cells.date1904 = *props.Date1904
	}

	var (
		header []string
		rows   []model.RawRow
	)
	for i, rec := range records {
		if blank(rec) {
			continue
		}
		if header == nil {
			header = headerKeys(rec)
			continue
		}
		for j := range rec {
			if rec[j], err = cells.value(j+1, i+1, rec[j]); err != nil {
				return nil, fmt.Errorf("%w: sheet %q: %v", apperrors.ErrCorruptInput, sheet, err)
			}
		}
		rows = append(rows, newRawRow(i+1, header, rec))
	}
	return rows, nil
}

// cellReader turns raw numeric cell values into text the row parser accepts.
type cellReader struct {
	f        *excelize.File
	sheet    string
	decimal  rune
	date1904 bool
	dates    map[int]bool // style index -> date format
}

func (c *cellReader) value(col, row int, raw string) (string, error) {
	if raw == "" {
		return raw, nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	typ, err := c.f.GetCellType(c.sheet, cell)
	if err != nil {
		return "", err
	}
	if typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber {
		return raw, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}

	isDate, err := c.isDate(cell)
	if err != nil {
		return "", err
	}
	if isDate {
		t, err := excelize.ExcelDateToTime(n, c.date1904)
		if err != nil {
			return "", fmt.Errorf("cell %s: %w", cell, err)
		}
		return t.Format("2006-01-02"), nil
	}

	// Stored doubles carry binary noise past 15 significant digits.
	n, _ = strconv.ParseFloat(strconv.FormatFloat(n, 'g', 15, 64), 64)
	s := strconv.FormatFloat(n, 'f', -1, 64)
	if c.decimal != 0 && c.decimal != '.' {
		s = strings.Replace(s, ".", string(c.decimal), 1)
	}
	return s, nil
}

func (c *cellReader) isDate(cell string) (bool, error) {
	idx, err := c.f.GetCellStyle(c.sheet, cell)
	if err != nil || idx == 0 {
		return false, err
	}
	if v, ok := c.dates[idx]; ok {
		return v, nil
	}
	style, err := c.f.GetStyle(idx)
	if err != nil {
		return false, err
	}
	v := dateNumFmt(style.NumFmt)
	if style.CustomNumFmt != nil {
		v = dateFormatCode(*style.CustomNumFmt)
	}
	c.dates[idx] = v
	return v, nil
}

// dateNumFmt reports whether a built-in number format shows a date.
func dateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true // East Asian date formats
	}
	return false
}

// dateFormatCode reports whether a custom format code has day or year tokens
// outside quoted literals and bracketed sections.
func dateFormatCode(code string) bool {
	var quoted, bracket bool
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
		case r == 'd', r == 'y':
			return true
		}
	}
	return false
}
