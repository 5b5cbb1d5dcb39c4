// Package dataset looks up sample images for a sign class by scanning YOLO label files.
package dataset

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const labelExt = ".txt"

// LabelRecord is the parsed content of one label file.
type LabelRecord struct {
	BaseName string
	Classes  map[int]struct{}
}

func (r LabelRecord) Has(classID int) bool {
	_, ok := r.Classes[classID]
	return ok
}

// ParseClasses collects the class index of every annotation line in text.
// Blank lines and lines whose first field is not a non-negative integer are skipped.
func ParseClasses(text string) map[int]struct{} {
	out := make(map[int]struct{})
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			continue
		}
		out[n] = struct{}{}
	}
	return out
}

// ReadRecord reads and parses a single label file.
func ReadRecord(path string) (LabelRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return LabelRecord{}, fmt.Errorf("%w: %s: %w", ErrReadFailure, filepath.Base(path), err)
	}
	return LabelRecord{
		BaseName: strings.TrimSuffix(filepath.Base(path), labelExt),
		Classes:  ParseClasses(string(b)),
	}, nil
}

// Scanner finds label files that reference a class.
type Scanner struct {
	dir string
}

func NewScanner(dir string) *Scanner {
	return &Scanner{dir: dir}
}

func (s *Scanner) Dir() string { return s.dir }

// Scan checks the directory and returns a sequence of base names whose label file
// contains target. Every call walks the directory again. A read error is yielded
// once and ends the sequence.
func (s *Scanner) Scan(target int) (iter.Seq2[string, error], error) {
	if !isDir(s.dir) {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, s.dir)
	}
	return func(yield func(string, error) bool) {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			yield("", fmt.Errorf("%w: list %s: %w", ErrReadFailure, s.dir, err))
			return
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), labelExt) {
				continue
			}
			rec, err := ReadRecord(filepath.Join(s.dir, e.Name()))
			if err != nil {
				yield("", err)
				return
			}
			if !rec.Has(target) {
				continue
			}
			if !yield(rec.BaseName, nil) {
				return
			}
		}
	}, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
