package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// Archive indexes the parts of an xlsx container.
type Archive struct {
	zr    *zip.Reader
	files map[string]*zip.File
	lower map[string]*zip.File
}

// OpenArchive reads the zip directory of a container.
func OpenArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerStructureInvalid, err)
	}
	a := &Archive{
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
		lower: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "/")
		a.files[name] = f
		a.lower[strings.ToLower(name)] = f
	}
	return a, nil
}

// find looks a part up by exact name, then case-insensitively.
func (a *Archive) find(name string) (*zip.File, bool) {
	name = strings.TrimPrefix(name, "/")
	if f, ok := a.files[name]; ok {
		return f, true
	}
	f, ok := a.lower[strings.ToLower(name)]
	return f, ok
}

// Has reports whether the part exists.
func (a *Archive) Has(name string) bool {
	_, ok := a.find(name)
	return ok
}

// Open returns a new forward-only reader over a part.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	f, ok := a.find(name)
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	return f.Open()
}

// Size returns the uncompressed size of a part, or -1 if it does not exist.
func (a *Archive) Size(name string) int64 {
	f, ok := a.find(name)
	if !ok {
		return -1
	}
	return int64(f.UncompressedSize64)
}

// ReadAll reads a whole part; nil without error when it does not exist.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	f, ok := a.find(name)
	if !ok {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Names returns all part names matching prefix, in directory order.
func (a *Archive) Names(prefix string) []string {
	var names []string
	for _, f := range a.zr.File {
		name := strings.TrimPrefix(f.Name, "/")
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			names = append(names, name)
		}
	}
	return names
}
