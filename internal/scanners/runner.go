package scanners

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yorozuya-cybersecurity/catchit/internal/rules"
	"github.com/yorozuya-cybersecurity/catchit/internal/schema"
	"github.com/yorozuya-cybersecurity/catchit/internal/search"
)

// Runner drives a full scan: content rules first, then path rules
type Runner struct {
	rules   *rules.Set
	content *ContentEngine
	paths   *PathEngine
	started time.Time
	log     *zap.SugaredLogger
}

// NewRunner wires both engines to one searcher. started is the process start;
// the report's total execution time is measured from it.
func NewRunner(set *rules.Set, s search.Searcher, cfg Config, started time.Time, log *zap.SugaredLogger) *Runner {
	return &Runner{
		rules:   set,
		content: NewContentEngine(s, cfg, log),
		paths:   NewPathEngine(s, cfg, log),
		started: started,
		log:     log,
	}
}

func (r *Runner) Run(ctx context.Context, root string) *schema.Report {
	report := schema.NewReport()

	t := time.Now()
	report.Code = r.content.Scan(ctx, r.rules.Active(schema.CategoryCode), root, &report.Summary)
	report.Summary.ExecutionTime.Code = time.Since(t).Seconds()

	t = time.Now()
	report.File = r.paths.Scan(ctx, r.rules.Active(schema.CategoryFile), root, &report.Summary)
	report.Summary.ExecutionTime.File = time.Since(t).Seconds()

	report.Summary.ExecutionTime.Total = time.Since(r.started).Seconds()

	r.log.Infow("scan finished",
		"findings_code", report.Summary.Findings.Code,
		"findings_file", report.Summary.Findings.File,
		"blocking", report.Summary.Blocking(),
	)
	return report
}
