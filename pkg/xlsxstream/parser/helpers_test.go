package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
)

// newTestArchive zips the given parts in memory.
func newTestArchive(t *testing.T, parts map[string]string) *Archive {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	a, err := OpenArchive(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenArchive failed: %v", err)
	}
	return a
}

// worksheet wraps sheetData rows (and optional trailing XML) in a sheet part.
func worksheet(dimension, rows, trailer string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`)
	if dimension != "" {
		sb.WriteString(`<dimension ref="` + dimension + `"/>`)
	}
	sb.WriteString(`<sheetViews><sheetView workbookViewId="0"/></sheetViews>`)
	sb.WriteString(`<sheetData>` + rows + `</sheetData>`)
	sb.WriteString(trailer)
	sb.WriteString(`</worksheet>`)
	return sb.String()
}

// openString adapts a string to an OpenFunc.
func openString(s string) OpenFunc {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

// scanAll runs a scanner over a sheet part and collects its rows.
func scanAll(t *testing.T, s *Scanner, xmlText string) []models.Row {
	t.Helper()
	var rows []models.Row
	err := s.Scan(context.Background(), strings.NewReader(xmlText), func(r models.Row) bool {
		rows = append(rows, r)
		return true
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return rows
}

func cellValue(t *testing.T, row models.Row, key string) models.Value {
	t.Helper()
	v, ok := row.Get(key)
	if !ok {
		t.Fatalf("row %d: key %q absent (keys %v)", row.Index, key, row.Keys())
	}
	return v
}
