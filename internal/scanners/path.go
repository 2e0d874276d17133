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

// PathEngine matches path rules against file and directory names
type PathEngine struct {
	searcher search.Searcher
	cfg      Config
	log      *zap.SugaredLogger
}

func NewPathEngine(s search.Searcher, cfg Config, log *zap.SugaredLogger) *PathEngine {
	return &PathEngine{searcher: s, cfg: cfg, log: log}
}

func (e *PathEngine) Scan(ctx context.Context, rs []rules.Rule, root string, summary *schema.Summary) []schema.RuleResult {
	e.log.Infow("starting path scan", "root", root, "rules", len(rs))
	results := scanRules(ctx, e.log, e.cfg, schema.CategoryFile, rs, summary, func(ctx context.Context, r rules.Rule) ([]schema.Finding, error) {
		return e.scanRule(ctx, r, root)
	})
	e.log.Infow("path scan completed", "matched_rules", len(results))
	return results
}

func (e *PathEngine) scanRule(ctx context.Context, r rules.Rule, root string) ([]schema.Finding, error) {
	lines, err := e.searcher.Names(ctx, root, r.Pattern, e.cfg.Platform)
	if err != nil {
		return nil, err
	}

	var findings []schema.Finding
	for _, line := range lines {
		path, err := ParsePathHit(line, e.cfg.Platform)
		if errors.Is(err, ErrEndOfOutput) {
			break
		}

		rel, err := Resolve(root, path)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", path, err)
		}
		if pattern, ok := e.cfg.Allow.Match(rel); ok {
			e.log.Debugw("path allowlisted", "rule", r.Name, "path", rel, "pattern", pattern)
			continue
		}

		findings = append(findings, schema.Finding{Path: rel, Type: ClassifyPath(r)})
	}
	return findings, nil
}
