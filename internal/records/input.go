package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"jigpipe/internal/media"
)

// WorkItem is one pending entry from the input CSV.
type WorkItem struct {
	ID      string
	Library media.Library
}

// LoadInput streams the work-item CSV at path. When showProgress is set a
// byte-level bar tracks the decode, which matters for multi-gigabyte
// inventories.
func LoadInput(path string, showProgress bool) ([]WorkItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input csv %s: %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if showProgress {
		info, statErr := file.Stat()
		if statErr == nil {
			bar := progressbar.DefaultBytes(info.Size(), "reading input")
			reader = io.TeeReader(file, bar)
			defer func() { _ = bar.Finish() }()
		}
	}

	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var items []WorkItem
	line := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input csv %s line %d: %w", path, line+1, err)
		}
		line++
		if len(row) < 2 {
			return nil, fmt.Errorf("input csv %s line %d: want at least id,library, got %d fields", path, line, len(row))
		}
		id := strings.TrimSpace(row[0])
		if line == 1 && strings.EqualFold(id, "id") {
			continue // header row
		}
		if id == "" {
			return nil, fmt.Errorf("input csv %s line %d: empty id", path, line)
		}
		library, err := media.ParseLibrary(row[1])
		if err != nil {
			return nil, fmt.Errorf("input csv %s line %d: %w", path, line, err)
		}
		items = append(items, WorkItem{ID: id, Library: library})
	}
	return items, nil
}
