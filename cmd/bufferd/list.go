package main

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// entry is one line of a list file.
// Lines are "key" or "key=value"; the key identifies the entry across edits.
type entry struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

func (e entry) DiffIdentifier() string {
	return e.Key
}

func entryEqual(prev, next entry) bool {
	return prev.Value == next.Value
}

func entryLess(a, b entry) bool {
	return a.Key < b.Key
}

func readList(path string, unique bool) ([]entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseList(f, unique)
}

// parseList reads entries, skipping blank lines and lines starting with '#'.
// If unique is set, only the first entry for each key is kept.
func parseList(r io.Reader, unique bool) (out []entry, err error) {
	seen := make(map[string]struct{})

	s := bufio.NewScanner(r)
	for s.Scan() {
		e, ok := parseLine(s.Text())
		if !ok {
			continue
		}
		if unique {
			if _, dup := seen[e.Key]; dup {
				continue
			}
			seen[e.Key] = struct{}{}
		}
		out = append(out, e)
	}
	return out, s.Err()
}

func parseLine(line string) (e entry, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return e, false
	}
	key, value, _ := strings.Cut(line, "=")
	e.Key = strings.TrimSpace(key)
	e.Value = strings.TrimSpace(value)
	return e, e.Key != ""
}

func parseLines(lines []string) (out []entry) {
	for _, line := range lines {
		if e, ok := parseLine(line); ok {
			out = append(out, e)
		}
	}
	return out
}
