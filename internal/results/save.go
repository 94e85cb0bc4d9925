package results

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mkguldan/speakerfilter/internal/backend"
)

const filenameLayout = "2006-01-02T15-04-05"

// maxCollisions bounds the -N suffix search in Save.
const maxCollisions = 100

// ExportFilename returns speaker_report_<UTC timestamp>.<format>.
func ExportFilename(format backend.Format, t time.Time) string {
	return fmt.Sprintf("speaker_report_%s.%s", t.UTC().Format(filenameLayout), format)
}

// Save streams r into dir under ExportFilename. The data lands in a temporary
// file first and is renamed into place only after r is fully read, so a
// failed download leaves nothing behind. An existing report is never
// overwritten; a -1, -2, ... suffix is added instead.
func Save(dir string, format backend.Format, r io.Reader, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	name := ExportFilename(format, now)

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp report in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}

	dest, err := freePath(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("rename report to %s: %w", dest, err)
	}
	committed = true
	return dest, nil
}

func freePath(path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	candidate := path
	for i := 1; i <= maxCollisions; i++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	return "", fmt.Errorf("no free file name for %s", path)
}
