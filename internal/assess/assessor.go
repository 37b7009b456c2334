package assess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/obentoo/aptaudit/internal/common/logger"
	"github.com/obentoo/aptaudit/internal/model"
)

// DefaultTimeout bounds a single backend request
const DefaultTimeout = 30 * time.Second

// ErrMissingVersions is the failure recorded for candidates lacking a version
var ErrMissingVersions = errors.New("installed or candidate version missing")

// ContextFunc gathers the prompt context (changelog, configuration, hint) for a candidate.
// It may update the candidate, e.g. to record the configuration path it used.
type ContextFunc func(ctx context.Context, c *model.UpgradeCandidate) PromptInput

// Assessor asks a Provider for a verdict on each candidate, one request at a time.
type Assessor struct {
	provider    Provider
	limiter     *RateLimiter
	timeout     time.Duration
	contextFunc ContextFunc
}

// Option configures an Assessor.
type Option func(*Assessor)

// WithRateLimiter paces backend requests.
func WithRateLimiter(r *RateLimiter) Option {
	return func(a *Assessor) {
		a.limiter = r
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(a *Assessor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithContextFunc sets how prompt context is gathered.
func WithContextFunc(fn ContextFunc) Option {
	return func(a *Assessor) {
		a.contextFunc = fn
	}
}

// NewAssessor creates an Assessor over provider.
func NewAssessor(provider Provider, opts ...Option) *Assessor {
	a := &Assessor{
		provider: provider,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.limiter == nil {
		a.limiter = NewRateLimiter(DefaultRequestsPerMinute)
	}
	return a
}

// Provider returns the backend in use.
func (a *Assessor) Provider() Provider {
	return a.provider
}

// Assess returns the verdict and rationale for one candidate. It never fails:
// every error becomes VerdictUnknown with a rationale naming the failure.
func (a *Assessor) Assess(ctx context.Context, c model.UpgradeCandidate) (model.Verdict, string) {
	cl, _ := a.Evaluate(ctx, &c)
	return cl.Verdict, cl.Rationale
}

// Evaluate is Assess with the full classification and the underlying error, if any.
// The candidate may be updated by the ContextFunc.
func (a *Assessor) Evaluate(ctx context.Context, c *model.UpgradeCandidate) (Classification, error) {
	if !c.HasVersions() {
		return failed(ErrMissingVersions), ErrMissingVersions
	}

	if _, disabled := a.provider.(DisabledProvider); disabled {
		return failed(ErrAssessmentDisabled), ErrAssessmentDisabled
	}

	in := PromptInput{Candidate: *c}
	if a.contextFunc != nil {
		in = a.contextFunc(ctx, c)
		in.Candidate = *c
	}
	prompt := BuildPrompt(in)

	if err := a.limiter.Wait(ctx); err != nil {
		return failed(err), err
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	answer, err := a.provider.Complete(reqCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %v", ErrRequestTimeout, a.timeout, err)
		}
		return failed(err), err
	}

	return Classify(answer), nil
}

// failed builds the unknown outcome for an error
func failed(err error) Classification {
	return Classification{
		Verdict:   model.VerdictUnknown,
		Rationale: "Assessment failed: " + err.Error(),
	}
}

// AssessAll attaches an outcome to every candidate, in order, and returns the
// number of failed assessments. Once ctx is cancelled no further request is
// sent and the remaining candidates are marked unknown.
func (a *Assessor) AssessAll(ctx context.Context, candidates []model.UpgradeCandidate) int {
	failures := 0
	total := len(candidates)

	for i := range candidates {
		c := &candidates[i]

		if err := ctx.Err(); err != nil {
			c.SetAssessment(model.VerdictUnknown, "Assessment skipped: "+err.Error())
			failures++
			continue
		}

		logger.Debug("[%d/%d] assessing %s %s -> %s", i+1, total, c.Name, c.InstalledVersion, c.CandidateVersion)

		cl, err := a.Evaluate(ctx, c)
		c.SetAssessment(cl.Verdict, cl.Rationale)
		c.Breaking = cl.Breaking

		if err != nil {
			failures++
			if !errors.Is(err, ErrAssessmentDisabled) {
				logger.Warn("assessment of %s failed: %v", c.Name, err)
			}
			continue
		}

		logger.Debug("%s: %s", c.Name, c.Verdict)
	}

	return failures
}
