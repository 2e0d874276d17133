package search

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

const (
	defaultMaxFileSize = 10 << 20
	maxLineLength      = 1 << 20
)

// Native searches the tree in-process with Go's regexp. Patterns must be
// RE2 compatible; the Platform flag is ignored.
type Native struct {
	MaxFileSize int64
	log         *zap.SugaredLogger
}

func NewNative(log *zap.SugaredLogger) *Native {
	return &Native{MaxFileSize: defaultMaxFileSize, log: log}
}

func (n *Native) Content(ctx context.Context, pattern, root string, exclusions []string, _ Platform) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	excluded := ignore.CompileIgnoreLines(exclusions...)

	var lines []string
	err = n.walk(ctx, root, func(path string, d fs.DirEntry) error {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if excluded.MatchesPath(rel) || excluded.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || excluded.MatchesPath(rel) {
			return nil
		}

		hits, err := n.grepFile(path, re)
		if err != nil {
			n.log.Debugw("file only partially searched", "path", path, "error", err)
		}
		lines = append(lines, hits...)
		return nil
	})
	return lines, err
}

func (n *Native) Names(ctx context.Context, root, pattern string, _ Platform) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}

	var lines []string
	err = n.walk(ctx, root, func(path string, _ fs.DirEntry) error {
		if re.MatchString(path) {
			lines = append(lines, path)
		}
		return nil
	})
	return lines, err
}

// walk visits root and everything below it. A missing root or unreadable
// subtree yields no entries rather than an error.
func (n *Native) walk(ctx context.Context, root string, visit func(path string, d fs.DirEntry) error) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			n.log.Debugw("skipping path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return visit(path, d)
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

// grepFile returns "path:line:match" for every match, one line per match
func (n *Native) grepFile(path string, re *regexp.Regexp) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if n.MaxFileSize > 0 && info.Size() > n.MaxFileSize {
		n.log.Debugw("skipping large file", "path", path, "size", info.Size())
		return nil, nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, err
	}
	if !isText(mtype) {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for lineNo := 1; sc.Scan(); lineNo++ {
		for _, m := range re.FindAllString(sc.Text(), -1) {
			if m == "" {
				continue
			}
			out = append(out, path+":"+strconv.Itoa(lineNo)+":"+m)
		}
	}
	return out, sc.Err()
}

// isText walks the MIME hierarchy; every textual type descends from text/plain
func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
