// Package rules loads the detection rule set.
//
// A rule file has two sections, CODE_SCANNING for patterns matched against
// file contents and FILE_SCANNING for patterns matched against paths:
//
//	{
//	  "CODE_SCANNING": {"AWS-ID": {"regex": "AKIA[A-Z0-9]{16}", "confidence": 0.9, "entropy": 3}},
//	  "FILE_SCANNING": {"KEY": {"regex": "\\.key$", "confidence": 0.7}}
//	}
//
// Rules keep the order they are declared in. A rule with confidence 0 is
// disabled.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/yorozuya-cybersecurity/catchit/internal/schema"
)

const (
	SectionCode = "CODE_SCANNING"
	SectionFile = "FILE_SCANNING"

	// BlockingConfidence is the lowest confidence whose matches may block
	BlockingConfidence = 0.5
)

//go:embed regexs.json
var defaultRules []byte

var ErrNoSections = errors.New("rule file has neither " + SectionCode + " nor " + SectionFile)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Rule is one detection check
type Rule struct {
	Name       string
	Pattern    string
	Confidence float64
	// Entropy is the minimum base64 entropy a content match must exceed to block
	Entropy  float64
	Category schema.Category
}

// Active reports whether the rule is evaluated at all
func (r Rule) Active() bool {
	return r.Confidence > 0
}

// CanBlock reports whether the rule's confidence allows blocking findings
func (r Rule) CanBlock() bool {
	return r.Confidence >= BlockingConfidence
}

type Set struct {
	Content []Rule
	Path    []Rule
}

// Active returns the enabled rules of a category, in declaration order
func (s *Set) Active(c schema.Category) []Rule {
	src := s.Content
	if c == schema.CategoryFile {
		src = s.Path
	}
	var out []Rule
	for _, r := range src {
		if r.Active() {
			out = append(out, r)
		}
	}
	return out
}

// Validate returns the rules whose pattern Go's regexp cannot compile. The
// shell backend may still accept them (grep -P), so this is advisory.
func (s *Set) Validate() map[string]error {
	bad := map[string]error{}
	for _, rs := range [][]Rule{s.Content, s.Path} {
		for _, r := range rs {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				bad[string(r.Category)+"/"+r.Name] = err
			}
		}
	}
	return bad
}

// entry is one rule as written in the file. Pointers tell absent from zero.
type entry struct {
	Regex      *string  `json:"regex" yaml:"regex"`
	Confidence *float64 `json:"confidence" yaml:"confidence"`
	Entropy    *float64 `json:"entropy" yaml:"entropy"`
}

type namedEntry struct {
	name string
	entry
}

// Default returns the rule set compiled into the binary
func Default(log *zap.SugaredLogger) (*Set, error) {
	return Parse(defaultRules, FormatJSON, log)
}

// Load reads a rule file. The format follows the extension; anything other
// than .yaml/.yml is read as JSON.
func Load(path string, log *zap.SugaredLogger) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	set, err := Parse(data, format, log)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a rule file. Entries without a regex are logged and skipped;
// only a structurally broken document is an error.
func Parse(data []byte, format Format, log *zap.SugaredLogger) (*Set, error) {
	var (
		sections map[string][]namedEntry
		err      error
	)
	switch format {
	case FormatYAML:
		sections, err = decodeYAML(data)
	default:
		sections, err = decodeJSON(data)
	}
	if err != nil {
		return nil, err
	}

	code, hasCode := sections[SectionCode]
	file, hasFile := sections[SectionFile]
	if !hasCode && !hasFile {
		return nil, ErrNoSections
	}

	return &Set{
		Content: build(code, schema.CategoryCode, log),
		Path:    build(file, schema.CategoryFile, log),
	}, nil
}

func build(entries []namedEntry, c schema.Category, log *zap.SugaredLogger) []Rule {
	out := make([]Rule, 0, len(entries))
	for _, e := range entries {
		if e.Regex == nil {
			log.Errorw("regex missing, skipping rule", "rule", e.name, "category", c)
			continue
		}
		r := Rule{Name: e.name, Pattern: *e.Regex, Category: c}
		if e.Confidence != nil {
			r.Confidence = *e.Confidence
		}
		if e.Entropy != nil && c == schema.CategoryCode {
			r.Entropy = *e.Entropy
		}
		out = append(out, r)
	}
	return out
}
