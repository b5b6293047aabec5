package manifest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Task is one input/output document pair produced by expanding a
// manifest's document patterns.
type Task struct {
	// Input is the path of the document to translate.
	Input string

	// Output is the path the translated document is written to.
	Output string
}

// Expand resolves the manifest's document patterns into concrete tasks.
//
// Patterns are matched against paths relative to the documents root,
// using slash-separated doublestar globs. Output paths mirror the
// document tree under the output directory, with the configured suffix
// appended. Results are sorted by input path so batch runs are
// deterministic.
//
// manifestDir is the directory the manifest was loaded from; a relative
// documents root or output dir is resolved against it.
func (m *Manifest) Expand(manifestDir string) ([]Task, error) {
	root := m.Documents.Root
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(manifestDir, root)
	}
	outDir := m.Output.Dir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(manifestDir, outDir)
	}

	includes := make([]string, 0, len(m.Documents.Includes))
	for _, pat := range m.Documents.Includes {
		pat = normalizePattern(pat)
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid glob pattern: %q", pat)
		}
		includes = append(includes, pat)
	}
	excludes := make([]string, 0, len(m.Documents.Excludes))
	for _, pat := range m.Documents.Excludes {
		pat = normalizePattern(pat)
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid glob pattern: %q", pat)
		}
		excludes = append(excludes, pat)
	}

	seen := make(map[string]bool)
	var tasks []Task
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if seen[rel] {
			return nil
		}

		included := false
		for _, pat := range includes {
			ok, merr := doublestar.Match(pat, rel)
			if merr != nil {
				return fmt.Errorf("matching %q against %q: %w", pat, rel, merr)
			}
			if ok {
				included = true
				break
			}
		}
		if !included {
			return nil
		}
		for _, pat := range excludes {
			ok, merr := doublestar.Match(pat, rel)
			if merr != nil {
				return fmt.Errorf("matching %q against %q: %w", pat, rel, merr)
			}
			if ok {
				return nil
			}
		}

		seen[rel] = true
		tasks = append(tasks, Task{
			Input:  path,
			Output: filepath.Join(outDir, filepath.FromSlash(rel)+m.Output.Suffix),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("expanding document patterns under %s: %w", root, walkErr)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Input < tasks[j].Input })
	return tasks, nil
}

// normalizePattern trims a leading "./" so manifests can write patterns
// either way.
func normalizePattern(pat string) string {
	return strings.TrimPrefix(pat, "./")
}
