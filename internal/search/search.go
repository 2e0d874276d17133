// Package search runs the recursive content and name searches the scan
// engines are built on. Both backends emit the same raw line formats:
// "path:line:match" for content hits and "path" for name hits.
package search

import (
	"bufio"
	"context"
	_ "embed"
	"runtime"
	"strings"
)

// Searcher is the capability the scan engines depend on. Zero matches is an
// empty result, not an error.
type Searcher interface {
	Content(ctx context.Context, pattern, root string, exclusions []string, p Platform) ([]string, error)
	Names(ctx context.Context, root, pattern string, p Platform) ([]string, error)
}

//go:embed exclusions.txt
var exclusionList string

// DefaultExclusions returns the paths that are never content searched
func DefaultExclusions() []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(exclusionList))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Platform describes how the host prints paths and which grep dialect it has
type Platform struct {
	OS string
	// Flag selects the regex dialect passed to grep
	Flag string
	// DriveLetters is set where absolute paths start with "C:"
	DriveLetters bool
}

func HostPlatform() Platform {
	return ForOS(runtime.GOOS)
}

func ForOS(goos string) Platform {
	switch goos {
	case "windows":
		return Platform{OS: goos, Flag: "-E", DriveLetters: true}
	case "linux":
		return Platform{OS: goos, Flag: "-P"}
	default:
		return Platform{OS: goos, Flag: "-E"}
	}
}

// DefaultBashPath is the shell used when none is configured
func DefaultBashPath(goos string) string {
	if goos == "windows" {
		return `C:\Program Files\Git\bin\bash.exe`
	}
	return "bash"
}

func splitLines(out string) []string {
	out = strings.TrimRight(out, "\r\n")
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
