package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/model"
)

// Decoder converts an export file into raw rows. Decoders leave BatchID empty;
// Decode fills it from the file name.
type Decoder interface {
	Decode(r io.Reader) ([]model.RawRow, error)
	Format() string
}

// Registry holds decoders keyed by format.
type Registry struct {
	decoders map[string]Decoder
}

// FileInfo describes an importable file in the import directory.
type FileInfo struct {
	Name   string
	Path   string
	Format string
	Size   int64
}

// NewRegistry creates an empty decoder registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register adds a decoder. Panics on duplicate format.
func (r *Registry) Register(d Decoder) {
	key := strings.ToLower(d.Format())
	if _, ok := r.decoders[key]; ok {
		panic("duplicate decoder format: " + key)
	}
	r.decoders[key] = d
}

// Get returns the decoder for format, or nil.
func (r *Registry) Get(format string) Decoder {
	return r.decoders[strings.ToLower(format)]
}

// Formats returns the registered format names.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.decoders))
	for k := range r.decoders {
		out = append(out, k)
	}
	return out
}

// DefaultRegistry returns a registry with all built-in decoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVDecoder{})
	r.Register(&XLSXDecoder{})
	return r
}

// FormatFor infers the decoder format from a file name ("Journal.XLSX" -> "xlsx").
func FormatFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".txt", ".tsv":
		return "csv"
	}
	return strings.TrimPrefix(ext, ".")
}

// BatchIDFor derives the batch identifier of a file: its base name without extension.
func BatchIDFor(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Decode picks the decoder for name and stamps every row with the file's batch ID.
func (r *Registry) Decode(name string, rd io.Reader) ([]model.RawRow, error) {
	format := FormatFor(name)
	dec := r.Get(format)
	if dec == nil {
		return nil, fmt.Errorf("%w: no decoder for %q", apperrors.ErrCorruptInput, name)
	}
	rows, err := dec.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(name), err)
	}
	batch := BatchIDFor(name)
	for i := range rows {
		rows[i].BatchID = batch
	}
	return rows, nil
}

// DecodeFile opens path and decodes it.
func (r *Registry) DecodeFile(path string) ([]model.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return r.Decode(path, f)
}

// importDir is the subdirectory for files awaiting import.
const importDir = "import"

// processedDir is the subdirectory for imported files.
const processedDir = "import/processed"

// Scan returns the files in <root>/import/ that a registered decoder can read.
func (r *Registry) Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		format := FormatFor(e.Name())
		if r.Get(format) == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
			Format: format,
			Size:   info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, importDir, fileName)
	dstDir := filepath.Join(root, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
