// Package compare reports the differences between two versions of a save
// folder, or between a version and the live folder.
package compare

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/jmcdonald/savekeep/internal/ports"
)

// Status values of a FileChange.
const (
	Modified = 'M'
	Added    = 'A'
	Deleted  = 'D'
)

// FileChange represents a change between two trees.
type FileChange struct {
	Path   string // slash separated, relative to the tree root
	Status rune
	Size1  int64
	Size2  int64
}

// Side names one of the two trees being compared.
type Side struct {
	Label string // version name, or "live"
	Dir   string
}

// DiffResult contains the comparison between two trees.
type DiffResult struct {
	Version1 string
	Version2 string
	Changes  []FileChange
	Added    int
	Modified int
	Deleted  int
}

// Empty reports whether the trees hold the same files.
func (r *DiffResult) Empty() bool {
	return len(r.Changes) == 0
}

// DiffLine represents a single line in the diff output.
type DiffLine struct {
	LineNum1 int  // 0 if added
	LineNum2 int  // 0 if deleted
	Type     rune // '+' added, '-' deleted, ' ' unchanged
	Content  string
}

// FileDiffResult contains the line-by-line diff of a single file.
type FileDiffResult struct {
	Path     string
	Version1 string
	Version2 string
	Lines    []DiffLine
	IsBinary bool
}

// Comparer reads trees through a FileSystem.
type Comparer struct {
	fs ports.FileSystem
}

// New creates a Comparer.
func New(fsys ports.FileSystem) *Comparer {
	return &Comparer{fs: fsys}
}

type fileInfo struct {
	path string
	size int64
}

// Diff compares the regular files of two trees. Directories listed in
// exclude are left out of both sides.
func (c *Comparer) Diff(from, to Side, exclude ...string) (*DiffResult, error) {
	files1, err := c.listFiles(from.Dir, exclude)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", from.Label, err)
	}
	files2, err := c.listFiles(to.Dir, exclude)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", to.Label, err)
	}

	result := &DiffResult{Version1: from.Label, Version2: to.Label}

	for rel, info1 := range files1 {
		info2, ok := files2[rel]
		switch {
		case !ok:
			result.Changes = append(result.Changes, FileChange{Path: rel, Status: Deleted, Size1: info1.size})
			result.Deleted++
		case info1.size != info2.size:
			result.Changes = append(result.Changes, FileChange{Path: rel, Status: Modified, Size1: info1.size, Size2: info2.size})
			result.Modified++
		default:
			sum1, err := c.checksum(info1.path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", from.Label, err)
			}
			sum2, err := c.checksum(info2.path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", to.Label, err)
			}
			if sum1 != sum2 {
				result.Changes = append(result.Changes, FileChange{Path: rel, Status: Modified, Size1: info1.size, Size2: info2.size})
				result.Modified++
			}
		}
	}
	for rel, info2 := range files2 {
		if _, ok := files1[rel]; !ok {
			result.Changes = append(result.Changes, FileChange{Path: rel, Status: Added, Size2: info2.size})
			result.Added++
		}
	}

	// M, A, D then by path
	order := map[rune]int{Modified: 0, Added: 1, Deleted: 2}
	sort.Slice(result.Changes, func(i, j int) bool {
		a, b := result.Changes[i], result.Changes[j]
		if a.Status != b.Status {
			return order[a.Status] < order[b.Status]
		}
		return a.Path < b.Path
	})
	return result, nil
}

func (c *Comparer) listFiles(root string, exclude []string) (map[string]*fileInfo, error) {
	info, err := c.fs.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	files := make(map[string]*fileInfo)
	err = c.fs.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if info.IsDir() {
			for _, ex := range exclude {
				if ex != "" && path != root && filepath.Clean(path) == filepath.Clean(ex) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files[filepath.ToSlash(rel)] = &fileInfo{path: path, size: info.Size()}
		return nil
	})
	return files, err
}

func (c *Comparer) checksum(path string) (uint32, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// FileDiff computes the line diff of one file between two trees. A file
// missing from one side diffs against empty content.
func (c *Comparer) FileDiff(from, to Side, rel string) (*FileDiffResult, error) {
	result := &FileDiffResult{Path: rel, Version1: from.Label, Version2: to.Label}

	content1, err := c.readOptional(from.Dir, rel)
	if err != nil {
		return nil, fmt.Errorf("reading %s from %s: %w", rel, from.Label, err)
	}
	content2, err := c.readOptional(to.Dir, rel)
	if err != nil {
		return nil, fmt.Errorf("reading %s from %s: %w", rel, to.Label, err)
	}

	if IsBinaryContent(content1) || IsBinaryContent(content2) {
		result.IsBinary = true
		return result, nil
	}
	result.Lines = LineDiff(content1, content2)
	return result, nil
}

func (c *Comparer) readOptional(dir, rel string) (string, error) {
	data, err := c.fs.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	return string(data), err
}

// LineDiff returns a line-oriented diff of two texts.
func LineDiff(content1, content2 string) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(content1, content2)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var lines []DiffLine
	n1, n2 := 0, 0
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				n1++
				n2++
				lines = append(lines, DiffLine{LineNum1: n1, LineNum2: n2, Type: ' ', Content: text})
			case diffmatchpatch.DiffDelete:
				n1++
				lines = append(lines, DiffLine{LineNum1: n1, Type: '-', Content: text})
			case diffmatchpatch.DiffInsert:
				n2++
				lines = append(lines, DiffLine{LineNum2: n2, Type: '+', Content: text})
			}
		}
	}
	return lines
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\n")
	}
	return parts
}

// IsBinaryContent checks if content appears to be binary
func IsBinaryContent(content string) bool {
	if len(content) == 0 {
		return false
	}
	sample := content
	if len(sample) > 8000 {
		sample = sample[:8000]
	}
	return strings.Contains(sample, "\x00") || !utf8.ValidString(sample)
}
