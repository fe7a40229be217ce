package app

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// sourceExtensions are the file types the parser understands
var sourceExtensions = map[string]bool{
	".py":  true,
	".pyi": true,
	".c":   true,
	".h":   true,
}

// FileHelper discovers analyzable source files
type FileHelper struct {
	// RespectGitignore skips paths ignored by a .gitignore at a walk root
	RespectGitignore bool
}

// NewFileHelper creates a new FileHelper
func NewFileHelper() *FileHelper {
	return &FileHelper{}
}

// CollectSourceFiles collects Python and C files from paths. Directories are
// walked (recursively if asked) and their entries filtered by the include and
// exclude globs relative to the directory. Explicit file arguments are kept
// when they have a source extension and no exclude pattern matches them.
// The result is sorted and free of duplicates.
func (h *FileHelper) CollectSourceFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	include := compilePatterns(includePatterns)
	exclude := compilePatterns(excludePatterns)

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if h.IsSourceFile(path) && !matches(exclude, filepath.Base(path)) && !matches(exclude, path) {
				add(path)
			}
			continue
		}

		var gitignore *ignore.GitIgnore
		if h.RespectGitignore {
			gitignore, err = loadGitignore(path)
			if err != nil {
				return nil, err
			}
		}

		err = filepath.WalkDir(path, func(filePath string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(path, filePath)
			if relErr != nil || rel == "." {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				// Skip excluded directories early
				dirRel := rel + "/"
				if !recursive || matches(exclude, dirRel) || matches(gitignore, dirRel) {
					return filepath.SkipDir
				}
				return nil
			}

			if !h.IsSourceFile(filePath) || matches(exclude, rel) || matches(gitignore, rel) {
				return nil
			}
			if include != nil && !include.MatchesPath(rel) {
				return nil
			}
			add(filePath)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// IsSourceFile reports whether the extension is one the parser supports
func (h *FileHelper) IsSourceFile(path string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// FileExists checks if a file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// ReadFile reads file content
func (h *FileHelper) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// compilePatterns compiles glob patterns with gitignore semantics, so that
// "**/" and trailing "/**" behave the way users expect. Nil means no patterns.
func compilePatterns(patterns []string) *ignore.GitIgnore {
	var lines []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

func matches(patterns *ignore.GitIgnore, path string) bool {
	return patterns != nil && patterns.MatchesPath(path)
}

// loadGitignore reads root/.gitignore if there is one
func loadGitignore(root string) (*ignore.GitIgnore, error) {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return gi, err
}
