// Package audit runs the whole pipeline: listings, candidates, assessment, report and delivery.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/obentoo/aptaudit/internal/apt"
	"github.com/obentoo/aptaudit/internal/assess"
	"github.com/obentoo/aptaudit/internal/common/logger"
	"github.com/obentoo/aptaudit/internal/delivery"
	"github.com/obentoo/aptaudit/internal/model"
	"github.com/obentoo/aptaudit/internal/policy"
	"github.com/obentoo/aptaudit/internal/report"
)

// ErrInterrupted is returned when the run was cancelled before delivery
var ErrInterrupted = errors.New("audit interrupted")

// ListingLoader returns a parsed listing from a file or from apt.
type ListingLoader interface {
	Load(ctx context.Context, kind apt.Kind, path string) (*apt.ParseResult, error)
}

// CandidateAssessor attaches a verdict to every candidate and returns the failure count.
type CandidateAssessor interface {
	AssessAll(ctx context.Context, candidates []model.UpgradeCandidate) int
	Provider() assess.Provider
}

// Deliverer routes the rendered document.
type Deliverer interface {
	Deliver(ctx context.Context, doc string) delivery.Outcome
}

// Options selects inputs and output format for one run.
type Options struct {
	// InstalledFile and UpgradableFile override `apt list` when set
	InstalledFile  string
	UpgradableFile string
	Format         model.Format
	Host           string
}

// Result describes a completed run.
type Result struct {
	Report   *model.Report
	Document string
	Outcome  delivery.Outcome

	Installed  int
	Upgradable int
	Skipped    int
	Ignored    int
	Candidates int
	Failures   int
}

// Runner executes audits.
type Runner struct {
	loader    ListingLoader
	assessor  CandidateAssessor
	deliverer Deliverer
	policy    *policy.Policy
	now       func() time.Time
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithPolicy excludes the packages the policy ignores.
func WithPolicy(p *policy.Policy) RunnerOption {
	return func(r *Runner) {
		r.policy = p
	}
}

// WithClock sets the report timestamp source.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner.
func NewRunner(loader ListingLoader, assessor CandidateAssessor, deliverer Deliverer, opts ...RunnerOption) *Runner {
	r := &Runner{
		loader:    loader,
		assessor:  assessor,
		deliverer: deliverer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one audit.
// Input and render failures abort the run. Assessment failures only degrade
// verdicts. Delivery fails the run only when nothing was delivered.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}

	installed, err := r.loader.Load(ctx, apt.KindInstalled, opts.InstalledFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load installed packages: %w", err)
	}
	upgradable, err := r.loader.Load(ctx, apt.KindUpgradable, opts.UpgradableFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load upgradable packages: %w", err)
	}

	res.Installed = installed.Listing.Len()
	res.Upgradable = upgradable.Listing.Len()
	res.Skipped = installed.Skipped + upgradable.Skipped
	if res.Skipped > 0 {
		logger.Debug("skipped %d malformed listing lines", res.Skipped)
	}

	candidates := apt.BuildCandidates(installed.Listing, upgradable.Listing)
	kept := candidates[:0]
	for _, c := range candidates {
		if r.policy.Ignored(c.Name) {
			logger.Info("Ignoring %s (policy)", c.Name)
			res.Ignored++
			continue
		}
		kept = append(kept, c)
	}
	candidates = kept
	res.Candidates = len(candidates)
	logger.Info("Found %d upgrade candidates", res.Candidates)

	res.Failures = r.assessor.AssessAll(ctx, candidates)

	res.Report = &model.Report{
		Candidates:  candidates,
		Format:      opts.Format,
		Host:        opts.Host,
		GeneratedAt: r.now(),
	}
	if p := r.assessor.Provider(); p != nil {
		res.Report.Backend = p.Name()
		res.Report.Model = p.GetModel()
	}

	res.Document, err = report.Render(res.Report)
	if err != nil {
		return res, fmt.Errorf("failed to render report: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	res.Outcome = r.deliverer.Deliver(ctx, res.Document)
	if err := res.Outcome.Err(); err != nil {
		return res, err
	}

	return res, nil
}
