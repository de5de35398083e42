// Package discovery enumerates runnable scripts on the filesystem and
// groups them by directory. The lifecycle only consumes identity strings;
// grouping exists for display layers.
package discovery

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/scriptdeck/internal/logging"
	"github.com/aretw0/scriptdeck/pkg/domain"
)

// Script is one discovered runnable script.
type Script struct {
	Identity domain.ScriptIdentity `json:"identity"`
	Name     string                `json:"name"`
	// Params is the number of positional parameters the script body
	// references, from a static scan.
	Params int `json:"params"`
}

// Group collects the scripts of one directory.
type Group struct {
	Dir     string   `json:"dir"`
	Scripts []Script `json:"scripts"`
}

// Scanner walks configured roots looking for scripts.
type Scanner struct {
	roots      []string
	ignoreDirs map[string]struct{}
	exts       []string
	logger     *slog.Logger
}

// Option configures the Scanner.
type Option func(*Scanner)

// WithIgnoreDirs sets directory names skipped during the walk.
func WithIgnoreDirs(names []string) Option {
	return func(s *Scanner) {
		for _, n := range names {
			s.ignoreDirs[n] = struct{}{}
		}
	}
}

// WithExtensions sets the filename suffixes treated as scripts.
func WithExtensions(exts []string) Option {
	return func(s *Scanner) {
		if len(exts) > 0 {
			s.exts = exts
		}
	}
}

// WithLogger configures a logger for unreadable paths.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner over the given root directories.
func New(roots []string, opts ...Option) *Scanner {
	s := &Scanner{
		roots:      roots,
		ignoreDirs: make(map[string]struct{}),
		exts:       []string{".sh"},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks every root and returns scripts grouped by directory, sorted by
// directory then name. Unreadable subtrees are logged and skipped.
func (s *Scanner) Scan() ([]Group, error) {
	byDir := make(map[string][]Script)

	for _, root := range s.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("skipping unreadable path", "path", path, "err", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if _, ignore := s.ignoreDirs[d.Name()]; ignore && path != abs {
					return filepath.SkipDir
				}
				return nil
			}
			if !s.isScript(d.Name()) {
				return nil
			}
			dir := filepath.Dir(path)
			byDir[dir] = append(byDir[dir], Script{
				Identity: domain.ScriptIdentity(path),
				Name:     d.Name(),
				Params:   s.countParams(path),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	groups := make([]Group, 0, len(dirs))
	for _, dir := range dirs {
		scripts := byDir[dir]
		sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
		groups = append(groups, Group{Dir: dir, Scripts: scripts})
	}
	return groups, nil
}

// isScript checks the filename against configured extensions.
func (s *Scanner) isScript(name string) bool {
	for _, ext := range s.exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// countParams reads the script body for placeholder extraction. Read errors
// degrade to zero parameters.
func (s *Scanner) countParams(path string) int {
	body, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return CountPlaceholders(string(body))
}
