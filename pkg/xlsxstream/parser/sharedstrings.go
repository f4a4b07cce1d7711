package parser

import (
	"context"
	"database/sql"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"
)

// DefaultSpillThreshold is the shared-strings part size above which the
// table is kept on disk.
const DefaultSpillThreshold = 5 << 20

const spillBatchSize = 10000

// SharedStrings resolves shared-string indexes. Indexes outside [0, Len())
// resolve to no value.
type SharedStrings interface {
	Get(i int) (string, bool)
	Len() int
	Close() error
}

// SpillConfig controls when and where the table spills to disk.
type SpillConfig struct {
	// Threshold is the uncompressed part size in bytes above which the
	// table is stored on disk. Negative disables spilling.
	Threshold int64
	// Dir is the directory for the backing file ("" for os.TempDir).
	Dir    string
	Logger *slog.Logger
}

// LoadSharedStrings reads the shared-strings part. The storage variant is
// chosen once from the part size; a missing part yields an empty table.
func LoadSharedStrings(ctx context.Context, a *Archive, part string, cfg SpillConfig) (SharedStrings, error) {
	size := a.Size(part)
	if size < 0 {
		return memoryStrings(nil), nil
	}

	rc, err := a.Open(part)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Threshold < 0 || size <= cfg.Threshold {
		var table memoryStrings
		err := readSharedStrings(ctx, rc, func(s string) error {
			table = append(table, s)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return table, nil
	}

	logger.Debug("spilling shared strings to disk", "part", part, "size", size, "threshold", cfg.Threshold)
	ds, err := newDiskStrings(cfg.Dir, logger)
	if err != nil {
		return nil, err
	}
	if err := ds.fill(ctx, rc); err != nil {
		return nil, errors.Join(err, ds.Close())
	}
	return ds, nil
}

// readSharedStrings streams <si> items in index order.
func readSharedStrings(ctx context.Context, r io.Reader, add func(string) error) error {
	decoder := newDecoder(r)
	for n := 0; ; {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("shared strings: %w", err)
		}
		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "si" {
			continue
		}
		if n%spillBatchSize == 0 {
			if err := checkCancel(ctx); err != nil {
				return err
			}
		}
		n++
		s, err := readRichText(decoder)
		if err != nil {
			return fmt.Errorf("shared strings: %w", err)
		}
		if err := add(decodeEscapes(s)); err != nil {
			return err
		}
	}
}

// memoryStrings holds the whole table in a slice.
type memoryStrings []string

func (m memoryStrings) Get(i int) (string, bool) {
	if i < 0 || i >= len(m) {
		return "", false
	}
	return m[i], true
}

func (m memoryStrings) Len() int { return len(m) }

func (m memoryStrings) Close() error { return nil }

// diskStrings keeps the table in a temporary sqlite database.
type diskStrings struct {
	path   string
	db     *sql.DB
	get    *sql.Stmt
	n      int
	logger *slog.Logger
}

func newDiskStrings(dir string, logger *slog.Logger) (*diskStrings, error) {
	f, err := os.CreateTemp(dir, "xlsxstream-sst-*.db")
	if err != nil {
		return nil, fmt.Errorf("create spill file: %w", err)
	}
	ds := &diskStrings{path: f.Name(), logger: logger}
	if err := f.Close(); err != nil {
		return nil, errors.Join(err, ds.Close())
	}

	ds.db, err = sql.Open("sqlite", ds.path)
	if err != nil {
		return nil, errors.Join(err, ds.Close())
	}
	ds.db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = OFF",
		"PRAGMA synchronous = OFF",
		"CREATE TABLE sst (idx INTEGER PRIMARY KEY, value BLOB NOT NULL)",
	} {
		if _, err := ds.db.Exec(stmt); err != nil {
			return nil, errors.Join(fmt.Errorf("init spill store: %w", err), ds.Close())
		}
	}
	return ds, nil
}

// fill copies the part into the database in batched transactions.
func (ds *diskStrings) fill(ctx context.Context, r io.Reader) error {
	var tx *sql.Tx
	var insert *sql.Stmt
	commit := func() error {
		if tx == nil {
			return nil
		}
		err := tx.Commit()
		tx, insert = nil, nil
		return err
	}

	err := readSharedStrings(ctx, r, func(s string) error {
		if tx == nil {
			var err error
			if tx, err = ds.db.Begin(); err != nil {
				return err
			}
			if insert, err = tx.Prepare("INSERT INTO sst (idx, value) VALUES (?, ?)"); err != nil {
				return err
			}
		}
		if _, err := insert.Exec(ds.n, []byte(s)); err != nil {
			return err
		}
		ds.n++
		if ds.n%spillBatchSize == 0 {
			return commit()
		}
		return nil
	})
	if err != nil {
		if tx != nil {
			_ = tx.Rollback()
		}
		return err
	}
	if err := commit(); err != nil {
		return err
	}

	ds.get, err = ds.db.Prepare("SELECT value FROM sst WHERE idx = ?")
	return err
}

func (ds *diskStrings) Get(i int) (string, bool) {
	if i < 0 || i >= ds.n || ds.get == nil {
		return "", false
	}
	var b []byte
	if err := ds.get.QueryRow(i).Scan(&b); err != nil {
		ds.logger.Debug("shared string lookup failed", "index", i, "error", err)
		return "", false
	}
	return string(b), true
}

func (ds *diskStrings) Len() int { return ds.n }

// Close releases the database and removes the backing file.
func (ds *diskStrings) Close() error {
	var errs []error
	if ds.get != nil {
		errs = append(errs, ds.get.Close())
		ds.get = nil
	}
	if ds.db != nil {
		errs = append(errs, ds.db.Close())
		ds.db = nil
	}
	if ds.path != "" {
		if err := os.Remove(ds.path); err != nil && !os.IsNotExist(err) {
			ds.logger.Warn("failed to remove spill file", "path", ds.path, "error", err)
			errs = append(errs, err)
		}
		ds.path = ""
	}
	return errors.Join(errs...)
}
