package xlsxstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/parser"
)

// Reader queries the sheets of one xlsx container. A Reader keeps a single
// cursor and lazily loaded shared state; it must not be queried from
// several goroutines at once. Open one Reader per concurrent consumer.
type Reader struct {
	cfg      Config
	logger   *slog.Logger
	archive  *parser.Archive
	workbook *parser.Workbook

	closer   io.Closer
	tempPath string

	loaded  bool
	strings parser.SharedStrings
	styles  *parser.Styles
	closed  bool
}

// Open opens the container at path.
func Open(path string, cfg Config) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	r, err := newReader(f, info.Size(), cfg)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// OpenReader opens a container held by a random-access source. The
// source must stay valid until Close.
func OpenReader(ra io.ReaderAt, size int64, cfg Config) (*Reader, error) {
	return newReader(ra, size, cfg)
}

// OpenStream opens a container from a sequential source. The stream is
// copied to a temporary file in cfg.SpillDir, removed by Close.
func OpenStream(src io.Reader, cfg Config) (*Reader, error) {
	f, err := os.CreateTemp(cfg.SpillDir, "xlsxstream-src-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("buffer stream: %w", err)
	}
	cleanup := func(err error) error {
		return errors.Join(err, f.Close(), os.Remove(f.Name()))
	}

	size, err := io.Copy(f, src)
	if err != nil {
		return nil, cleanup(fmt.Errorf("buffer stream: %w", err))
	}
	r, err := newReader(f, size, cfg)
	if err != nil {
		return nil, cleanup(err)
	}
	r.closer = f
	r.tempPath = f.Name()
	return r, nil
}

func newReader(ra io.ReaderAt, size int64, cfg Config) (*Reader, error) {
	archive, err := parser.OpenArchive(ra, size)
	if err != nil {
		return nil, err
	}
	wb, err := parser.ReadWorkbook(archive)
	if err != nil {
		return nil, err
	}
	return &Reader{
		cfg:      cfg,
		logger:   cfg.logger(),
		archive:  archive,
		workbook: wb,
	}, nil
}

// Sheets returns the sheet records in workbook order.
func (r *Reader) Sheets() []models.SheetRecord {
	return r.workbook.Sheets
}

// SheetNames returns the sheet names in workbook order.
func (r *Reader) SheetNames() []string {
	names := make([]string, len(r.workbook.Sheets))
	for i, s := range r.workbook.Sheets {
		names[i] = s.Name
	}
	return names
}

// DefinedNames returns the workbook's defined names.
func (r *Reader) DefinedNames() []models.DefinedName {
	return r.workbook.Names
}

// Date1904 reports whether date serials count from 1904.
func (r *Reader) Date1904() bool {
	return r.workbook.Date1904
}

// Resolve maps a sheet name or alias to its record. An empty name selects
// the first sheet.
func (r *Reader) Resolve(name string) (models.SheetRecord, error) {
	sheets := r.workbook.Sheets
	if name == "" {
		return r.checkPart(sheets[0])
	}
	for _, s := range sheets {
		if s.Name == name {
			return r.checkPart(s)
		}
	}
	if real, ok := r.cfg.SheetAliases[name]; ok {
		for _, s := range sheets {
			if s.Name == real {
				return r.checkPart(s)
			}
		}
	}
	return models.SheetRecord{}, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// SheetByIndex returns the record at a 0-based workbook position.
func (r *Reader) SheetByIndex(i int) (models.SheetRecord, error) {
	if i < 0 || i >= len(r.workbook.Sheets) {
		return models.SheetRecord{}, fmt.Errorf("%w: index %d", ErrSheetNotFound, i)
	}
	return r.checkPart(r.workbook.Sheets[i])
}

func (r *Reader) checkPart(s models.SheetRecord) (models.SheetRecord, error) {
	if s.Path == "" || !r.archive.Has(s.Path) {
		return models.SheetRecord{}, fmt.Errorf("%w: sheet %q has no part %q", ErrContainerStructureInvalid, s.Name, s.Path)
	}
	return s, nil
}

// ensureLoaded reads styles and shared strings on first use.
func (r *Reader) ensureLoaded(ctx context.Context) error {
	if r.closed {
		return ErrClosed
	}
	if r.loaded {
		return nil
	}

	if rc, err := r.archive.Open(r.workbook.StylesPath); err == nil {
		styles, err := parser.ReadStyles(rc)
		rc.Close()
		if err != nil {
			// Without styles numbers stay numbers.
			r.logger.Warn("ignoring unreadable styles", "part", r.workbook.StylesPath, "error", err)
		} else {
			r.styles = styles
		}
	}

	sst, err := parser.LoadSharedStrings(ctx, r.archive, r.workbook.SharedStringsPath, parser.SpillConfig{
		Threshold: r.cfg.spillThreshold(),
		Dir:       r.cfg.SpillDir,
		Logger:    r.logger,
	})
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return err
		}
		return fmt.Errorf("load shared strings: %w", err)
	}
	r.strings = sst
	r.loaded = true
	return nil
}

func (r *Reader) coercer() *parser.Coercer {
	return &parser.Coercer{
		Strings:  r.strings,
		Styles:   r.styles,
		Date1904: r.workbook.Date1904,
		Embedded: r.archive.ReadAll,
	}
}

// Close releases the shared-string spill file and the source.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.strings != nil {
		errs = append(errs, r.strings.Close())
	}
	if r.closer != nil {
		errs = append(errs, r.closer.Close())
	}
	if r.tempPath != "" {
		if err := os.Remove(r.tempPath); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("failed to remove buffered source", "path", r.tempPath, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
