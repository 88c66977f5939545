// Package locator finds the root of the widget project by looking for a
// sentinel file, first directly in a list of candidate directories and then
// recursively below a list of search roots.
package locator // import "github.com/sinnahq/sinna/tools/widget-fixer/locator"

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sinnahq/sinna/tools/logger"
	"github.com/sinnahq/sinna/tools/utils"
	"github.com/spf13/afero"
)

// ErrProjectNotFound is returned when no candidate contains the sentinel.
var ErrProjectNotFound = errors.New("could not find the project root")

// errFound stops the walk once the root is found.
var errFound = errors.New("found")

// Locator searches for the directory containing Sentinel.
type Locator struct {
	Fs afero.Fs
	// Candidates are checked directly, in order.
	Candidates []string
	// SearchRoots are walked, in order, if no candidate matched. Roots that
	// don't exist are skipped.
	SearchRoots []string
	// Sentinel is the path, relative to the project root, of the marker file.
	Sentinel string
	// MaxDepth bounds how many levels below a search root are visited.
	MaxDepth int
}

// DefaultCandidates returns the working directory and its parent.
func DefaultCandidates(cwd string) []string {
	return []string{cwd, filepath.Dir(cwd)}
}

// DefaultSearchRoots returns the personal directories the project usually
// lives in: iCloud Drive and Documents.
func DefaultSearchRoots(home string) []string {
	if home == "" {
		return nil
	}
	return []string{
		filepath.Join(home, "Library", "Mobile Documents", "com~apple~CloudDocs"),
		filepath.Join(home, "Documents"),
	}
}

// Find returns the first directory that contains the sentinel file, or
// ErrProjectNotFound.
func (l *Locator) Find() (string, error) {
	if l.Sentinel == "" {
		return "", utils.MakeError("locator has no sentinel file configured")
	}

	for _, candidate := range l.Candidates {
		if candidate == "" {
			continue
		}
		ok, err := l.hasSentinel(candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return filepath.Clean(candidate), nil
		}
	}

	for _, searchRoot := range l.SearchRoots {
		if !utils.DirExists(l.Fs, searchRoot) {
			logger.Debugf("Skipping search root %s since it does not exist", searchRoot)
			continue
		}
		root, err := l.search(searchRoot)
		if err != nil {
			return "", err
		}
		if root != "" {
			return root, nil
		}
	}

	return "", ErrProjectNotFound
}

func (l *Locator) hasSentinel(dir string) (bool, error) {
	return utils.FileExists(l.Fs, filepath.Join(dir, filepath.FromSlash(l.Sentinel)))
}

// search walks below searchRoot, depth first and in lexical order, and
// returns the first directory holding the sentinel, or "".
func (l *Locator) search(searchRoot string) (string, error) {
	searchRoot = filepath.Clean(searchRoot)
	baseDepth := depth(searchRoot)

	var found string
	err := afero.Walk(l.Fs, searchRoot, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			// Unreadable directories (e.g. permission denied inside iCloud
			// Drive) are skipped rather than aborting the search.
			if info != nil && info.IsDir() && path != searchRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != searchRoot && skipDir(info.Name()) {
			return filepath.SkipDir
		}

		ok, statErr := l.hasSentinel(path)
		if statErr != nil {
			logger.Debugf("Skipping %s: %s", path, statErr)
			return nil
		}
		if ok {
			found = filepath.Clean(path)
			return errFound
		}

		if l.MaxDepth > 0 && depth(path)-baseDepth >= l.MaxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", utils.MakeError("error searching %s: %w", searchRoot, err)
	}

	return found, nil
}

// skipDir returns true for directories that can't hold the project, or that
// are too large to be worth walking.
func skipDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".")
}

func depth(path string) int {
	return strings.Count(filepath.ToSlash(path), "/")
}

// The home directory is only used to build DefaultSearchRoots, so failing to
// find it is not an error.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// Default returns a Locator with the default candidates and search roots for
// the given working directory, plus extraRoots.
func Default(fs afero.Fs, cwd, sentinel string, maxDepth int, extraRoots ...string) *Locator {
	return &Locator{
		Fs:          fs,
		Candidates:  DefaultCandidates(cwd),
		SearchRoots: append(DefaultSearchRoots(homeDir()), extraRoots...),
		Sentinel:    sentinel,
		MaxDepth:    maxDepth,
	}
}
