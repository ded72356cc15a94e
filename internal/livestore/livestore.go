// Package livestore reads the records already accepted into the live store:
// monthly "YYYY-MM.rec" files anywhere under a root directory.
package livestore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/roach88/recsync/internal/parse"
	"github.com/roach88/recsync/internal/record"
)

// FilePattern matches live-store file names (base name only).
var FilePattern = regexp.MustCompile(`^\d{4}-\d{2}\.rec$`)

// File describes one live-store file that was read.
type File struct {
	Path   string
	Counts parse.Counts
}

// Result is everything read from the live store.
type Result struct {
	Root    string
	Files   []File
	Records []record.Record
}

// Find walks root and returns the paths of matching files in lexical order.
// Any walk error is returned.
func Find(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !FilePattern.MatchString(d.Name()) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}

// Read parses every live-store file under root with c.
// Lines are stripped up to the first '{' before decoding. A file that
// cannot be opened or read fails the whole read.
func Read(root string, c *parse.Collector) (*Result, error) {
	paths, err := Find(root)
	if err != nil {
		return nil, err
	}

	res := &Result{Root: root}
	for _, path := range paths {
		recs, counts, err := readFile(path, c)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, File{Path: path, Counts: counts})
		res.Records = append(res.Records, recs...)
	}
	return res, nil
}

func readFile(path string, c *parse.Collector) ([]record.Record, parse.Counts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, parse.Counts{}, fmt.Errorf("open live-store file: %w", err)
	}
	defer f.Close()

	recs, counts, err := c.Collect(parse.Lines(f, path, parse.StripToBrace))
	if err != nil {
		return nil, counts, fmt.Errorf("live-store file %s: %w", path, err)
	}
	return recs, counts, nil
}
