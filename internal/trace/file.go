package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extensions lists the file extensions read as instrument text.
var Extensions = []string{".jdx", ".dx", ".jcamp", ".txt"}

// IsTraceFile reports whether path has a trace file extension.
func IsTraceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseFile parses the trace file at path.
func ParseFile(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", filepath.Base(path), err)
	}
	return s, nil
}
