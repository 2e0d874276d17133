package scanners

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/yorozuya-cybersecurity/catchit/internal/entropy"
	"github.com/yorozuya-cybersecurity/catchit/internal/rules"
	"github.com/yorozuya-cybersecurity/catchit/internal/schema"
)

// ClassifyContent blocks when the rule is confident enough and the match is
// more random than the rule's entropy threshold. Equal entropy does not block.
func ClassifyContent(r rules.Rule, match string) schema.Classification {
	if r.CanBlock() && entropy.Base64(match) > r.Entropy {
		return schema.Blocking
	}
	return schema.NonBlocking
}

// ClassifyPath blocks on confidence alone; a file name has no token to score
func ClassifyPath(r rules.Rule) schema.Classification {
	if r.CanBlock() {
		return schema.Blocking
	}
	return schema.NonBlocking
}

// Allowlist drops known-safe hits: content matches and relative paths are
// compared against glob patterns such as "*EXAMPLE*" or "testdata/*".
type Allowlist struct {
	patterns []string
	globs    []glob.Glob
}

func NewAllowlist(patterns []string) (*Allowlist, error) {
	a := &Allowlist{}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile allowlist pattern %q: %w", p, err)
		}
		a.patterns = append(a.patterns, p)
		a.globs = append(a.globs, g)
	}
	return a, nil
}

// Match returns the first pattern s matches. A nil allowlist matches nothing.
func (a *Allowlist) Match(s string) (string, bool) {
	if a == nil {
		return "", false
	}
	for i, g := range a.globs {
		if g.Match(s) {
			return a.patterns[i], true
		}
	}
	return "", false
}
