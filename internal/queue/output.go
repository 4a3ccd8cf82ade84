package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OutputDir builds root/YYYY[/MM[/DD[/HH]]] truncated at the requested
// granularity and creates the missing levels. Codes are case insensitive;
// an unrecognized code falls through to full year/month/day/hour nesting.
func OutputDir(root string, start time.Time, division string) (string, error) {
	parts := []struct {
		code   string
		layout string
	}{
		{"y", "2006"},
		{"m", "01"},
		{"d", "02"},
		{"h", "15"},
	}

	dir := root
	div := strings.ToLower(division)
	for _, p := range parts {
		dir = filepath.Join(dir, start.Format(p.layout))
		if p.code == div {
			break
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return dir, nil
}
