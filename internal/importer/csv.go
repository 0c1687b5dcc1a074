package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVDecoder reads delimited text exports.
type CSVDecoder struct {
	// Comma is the field delimiter. Zero sniffs ';', ',' or tab from the first line.
	Comma rune
	// Encoding is "utf-8" (default), "iso-8859-1" or "windows-1252".
	Encoding string
	// NoHeader treats the first line as data; cells are then addressed by index only.
	NoHeader bool
}

// Format returns the decoder name.
func (d *CSVDecoder) Format() string { return "csv" }

// Decode reads all rows. Blank lines and lines of empty cells are skipped.
func (d *CSVDecoder) Decode(r io.Reader) ([]model.RawRow, error) {
	r, err := d.transcode(r)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading csv: %v", apperrors.ErrCorruptInput, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.Comma = d.Comma
	if cr.Comma == 0 {
		cr.Comma = sniffDelimiter(data)
	}

	var (
		header []string
		rows   []model.RawRow
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptInput, err)
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		if header == nil && !d.NoHeader {
			header = headerKeys(rec)
			continue
		}
		rows = append(rows, newRawRow(line, header, rec))
	}
	return rows, nil
}

func (d *CSVDecoder) transcode(r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(d.Encoding, "_", "-")) {
	case "", "utf-8", "utf8":
		return r, nil
	case "iso-8859-1", "latin1", "latin-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", d.Encoding)
	}
}

// sniffDelimiter picks the most frequent candidate delimiter on the first line.
func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	best, count := ',', 0
	for _, c := range []rune{';', ',', '\t'} {
		if n := bytes.Count(first, []byte(string(c))); n > count {
			best, count = c, n
		}
	}
	return best
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// newRawRow pairs cells with header keys. Extra cells without a header stay positional.
func newRawRow(line int, header, rec []string) model.RawRow {
	row := model.RawRow{Line: line, Values: rec}
	if header == nil {
		return row
	}
	row.Named = make(map[string]string, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		if i < len(rec) {
			row.Named[h] = rec[i]
		} else {
			row.Named[h] = ""
		}
	}
	return row
}
