package scanners

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yorozuya-cybersecurity/catchit/internal/rules"
	"github.com/yorozuya-cybersecurity/catchit/internal/schema"
	"github.com/yorozuya-cybersecurity/catchit/internal/search"
)

// ContentEngine matches content rules against file contents
type ContentEngine struct {
	searcher search.Searcher
	cfg      Config
	log      *zap.SugaredLogger
}

func NewContentEngine(s search.Searcher, cfg Config, log *zap.SugaredLogger) *ContentEngine {
	return &ContentEngine{searcher: s, cfg: cfg, log: log}
}

// Scan returns one result per content rule that found something and counts
// the findings into summary.
func (e *ContentEngine) Scan(ctx context.Context, rs []rules.Rule, root string, summary *schema.Summary) []schema.RuleResult {
	e.log.Infow("starting content scan", "root", root, "rules", len(rs))
	results := scanRules(ctx, e.log, e.cfg, schema.CategoryCode, rs, summary, func(ctx context.Context, r rules.Rule) ([]schema.Finding, error) {
		return e.scanRule(ctx, r, root)
	})
	e.log.Infow("content scan completed", "matched_rules", len(results))
	return results
}

func (e *ContentEngine) scanRule(ctx context.Context, r rules.Rule, root string) ([]schema.Finding, error) {
	lines, err := e.searcher.Content(ctx, r.Pattern, root, e.cfg.Exclusions, e.cfg.Platform)
	if err != nil {
		return nil, err
	}

	var findings []schema.Finding
	for _, line := range lines {
		hit, err := ParseContentHit(line, e.cfg.Platform)
		if errors.Is(err, ErrEndOfOutput) {
			break
		}
		if err != nil {
			e.log.Warnw("skipping search output line", "rule", r.Name, "error", err)
			continue
		}

		rel, err := Resolve(root, hit.Path)
		if err != nil {
			return nil, fmt.Errorf("line %d of %s: %w", hit.Line, hit.Path, err)
		}
		if pattern, ok := e.cfg.Allow.Match(hit.Match); ok {
			e.log.Debugw("match allowlisted", "rule", r.Name, "path", rel, "pattern", pattern)
			continue
		}

		findings = append(findings, schema.Finding{
			Path:  rel,
			Line:  hit.Line,
			Match: hit.Match,
			Type:  ClassifyContent(r, hit.Match),
		})
	}
	return findings, nil
}
