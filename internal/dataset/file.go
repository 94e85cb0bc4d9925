// Package dataset validates and holds the operator-selected CSV source file.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// MaxSize is the largest accepted source file (1 GiB).
const MaxSize int64 = 1 << 30

// Extension is the required file name suffix. The check is case-sensitive.
const Extension = ".csv"

var (
	ErrInvalidFileType = errors.New("file must be a .csv file")
	ErrFileTooLarge    = errors.New("file size exceeds 1GB limit")
	ErrNotRegularFile  = errors.New("not a regular file")
	ErrUnreadable      = errors.New("file cannot be read")
)

// File is the session's active dataset handle. The bytes are never held in
// memory; Open re-reads the file for each request.
type File struct {
	Name     string
	Path     string
	Size     int64
	MimeHint string
	ModTime  time.Time
}

// Validate checks the name and size constraints without touching the filesystem.
func Validate(name string, size int64) error {
	if !strings.HasSuffix(name, Extension) {
		return ErrInvalidFileType
	}
	if size > MaxSize {
		return ErrFileTooLarge
	}
	return nil
}

// Select resolves path and returns a File if it names a regular, valid CSV file.
// The name is checked before the filesystem is consulted.
func Select(path string) (File, error) {
	path = NormalizePath(path)
	name := filepath.Base(path)
	if !strings.HasSuffix(name, Extension) {
		return File{}, fmt.Errorf("select %s: %w", name, ErrInvalidFileType)
	}

	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w: %w", name, ErrUnreadable, err)
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("select %s: %w", name, ErrNotRegularFile)
	}
	if err := Validate(name, info.Size()); err != nil {
		return File{}, fmt.Errorf("select %s: %w", name, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return File{
		Name:     name,
		Path:     abs,
		Size:     info.Size(),
		MimeHint: mimeHint(name),
		ModTime:  info.ModTime(),
	}, nil
}

// Open returns a fresh reader over the file contents.
func (f File) Open() (io.ReadCloser, error) {
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", f.Name, ErrUnreadable, err)
	}
	return r, nil
}

// SizeLabel renders the size for display, e.g. "2.0 MiB".
func (f File) SizeLabel() string {
	if f.Size < 0 {
		return "?"
	}
	return humanize.IBytes(uint64(f.Size))
}

// NormalizePath cleans a path typed or dropped into a terminal: surrounding
// quotes, shell-escaped spaces and a leading "~/" are handled.
func NormalizePath(raw string) string {
	p := strings.TrimSpace(raw)
	if len(p) >= 2 {
		if (p[0] == '"' && p[len(p)-1] == '"') || (p[0] == '\'' && p[len(p)-1] == '\'') {
			p = p[1 : len(p)-1]
		}
	}
	p = strings.ReplaceAll(p, `\ `, " ")
	p = strings.TrimPrefix(p, "file://")
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func mimeHint(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "text/csv"
}
