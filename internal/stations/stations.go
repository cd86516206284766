// Package stations loads the reference list of station names used to
// generate data.
package stations

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Load reads the station file at path. See Read.
func Load(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stations: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses "<name>;<baseValue>" lines and returns the names. Empty lines
// and lines starting with '#' are ignored. A line without ';' is taken whole.
func Read(r io.Reader) ([][]byte, error) {
	var names [][]byte
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := bytes.TrimSuffix(sc.Bytes(), []byte("\r"))
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		name, _, _ := bytes.Cut(line, []byte(";"))
		names = append(names, bytes.Clone(name))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}
	return names, nil
}
