// Package scanners turns search output into classified findings.
package scanners

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yorozuya-cybersecurity/catchit/internal/rules"
	"github.com/yorozuya-cybersecurity/catchit/internal/schema"
	"github.com/yorozuya-cybersecurity/catchit/internal/search"
)

const DefaultTimeout = 2 * time.Second

// Config is shared by both engines
type Config struct {
	Platform   search.Platform
	Exclusions []string
	// Timeout bounds each rule's search. Zero means DefaultTimeout.
	Timeout time.Duration
	// Workers is how many rules are evaluated at once. Zero means one per CPU.
	Workers int
	Allow   *Allowlist
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

type evalFunc func(ctx context.Context, r rules.Rule) ([]schema.Finding, error)

// scanRules evaluates every active rule of category c and merges the results
// in declaration order. Workers only fill their own slot; the summary is
// written here, after all of them are done.
func scanRules(ctx context.Context, log *zap.SugaredLogger, cfg Config, c schema.Category,
	rs []rules.Rule, summary *schema.Summary, eval evalFunc) []schema.RuleResult {
	found := make([][]schema.Finding, len(rs))

	var g errgroup.Group
	g.SetLimit(cfg.workers())
	for i, r := range rs {
		if !r.Active() || r.Category != c {
			continue
		}
		g.Go(func() error {
			found[i] = evalRule(ctx, log, cfg.timeout(), r, eval)
			return nil
		})
	}
	_ = g.Wait()

	results := []schema.RuleResult{}
	for i, r := range rs {
		if len(found[i]) == 0 {
			continue
		}
		for _, f := range found[i] {
			summary.Record(c, f)
		}
		results = append(results, schema.RuleResult{
			Category: c,
			Rule:     r.Name,
			Pattern:  r.Pattern,
			Findings: found[i],
		})
	}
	return results
}

// evalRule runs one rule under its own timeout. Nothing that goes wrong here
// reaches the caller: it is logged and the rule counts as having no findings.
func evalRule(ctx context.Context, log *zap.SugaredLogger, timeout time.Duration, r rules.Rule, eval evalFunc) (findings []schema.Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorw("rule failed, skipping", "rule", r.Name, "panic", rec)
			findings = nil
		}
	}()

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	findings, err := eval(rctx, r)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		log.Errorw("search timed out", "rule", r.Name, "category", r.Category, "timeout", timeout)
		return nil
	case err != nil:
		log.Errorw("rule skipped", "rule", r.Name, "category", r.Category, "error", err)
		return nil
	}
	return findings
}
