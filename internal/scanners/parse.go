package scanners

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yorozuya-cybersecurity/catchit/internal/search"
)

var (
	// ErrEndOfOutput marks the blank line that ends search output
	ErrEndOfOutput  = errors.New("end of search output")
	ErrMalformedHit = errors.New("malformed search hit")
	ErrOutsideRoot  = errors.New("path is outside the scan root")
)

// RawHit is one search output line split into its parts
type RawHit struct {
	Path  string
	Line  int
	Match string
}

// ParseContentHit splits a "path:line:match" line. The line number is the
// first all-digit field after the path, so both the path and the match keep
// any colons of their own. Where paths carry a drive letter
// ("C:\src\a.go:3:x") the search for the line number starts after it.
//
// A blank line returns ErrEndOfOutput. A line without a positive line number
// returns ErrMalformedHit.
func ParseContentHit(line string, p search.Platform) (RawHit, error) {
	if strings.TrimSpace(line) == "" {
		return RawHit{}, ErrEndOfOutput
	}

	fields := strings.Split(line, ":")
	if len(fields) < 2 {
		return RawHit{}, fmt.Errorf("%w: %q", ErrMalformedHit, line)
	}

	start := 1
	if p.DriveLetters && isDriveLetter(fields[0]) && len(fields) >= 3 {
		start = 2
	}
	for i := start; i < len(fields); i++ {
		n, ok := lineNumber(fields[i])
		if !ok {
			continue
		}
		return RawHit{
			Path:  strings.Join(fields[:i], ":"),
			Line:  n,
			Match: strings.Join(fields[i+1:], ":"),
		}, nil
	}
	return RawHit{}, fmt.Errorf("%w: no line number in %q", ErrMalformedHit, line)
}

func lineNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ParsePathHit reads a name search line. Path output is one path per line, so
// apart from the end-of-output check the whole line is the path; a drive
// letter path ("C:\keys\a.pem") is two fields rejoined, which is the line again.
func ParsePathHit(line string, _ search.Platform) (string, error) {
	fields := strings.Split(line, ":")
	if strings.TrimSpace(fields[0]) == "" {
		return "", ErrEndOfOutput
	}
	if len(fields) == 2 {
		return fields[0] + ":" + fields[1], nil
	}
	return line, nil
}

func isDriveLetter(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Resolve makes path relative to root. Relative paths are read as the search
// printed them, i.e. relative to the working directory.
func Resolve(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrOutsideRoot, path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, path)
	}
	return rel, nil
}
