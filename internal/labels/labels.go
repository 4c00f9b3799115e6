// Package labels reads the identifier → label table.
//
// The file holds one "identifier,label" pair per line. The label is
// everything after the first comma. Lines without a comma or with an empty
// identifier are skipped.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parse reads a label table from r.
func Parse(r io.Reader) (map[string]string, error) {
	table := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		id, label, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ",")
		if !ok {
			continue
		}
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		table[id] = strings.TrimSpace(label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return table, nil
}

// Load reads a label table from the file at path.
func Load(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
