package assess

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/time/rate"

	"github.com/obentoo/aptaudit/internal/model"
)

// stubProvider answers from a function and records prompts
type stubProvider struct {
	answer  func(prompt string) (string, error)
	prompts []string
}

func (s *stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.answer(prompt)
}

func (s *stubProvider) Name() string     { return "stub" }
func (s *stubProvider) GetModel() string { return "stub-model" }

// fastLimiter disables pacing for tests
func fastLimiter() *RateLimiter {
	r := NewRateLimiter(0)
	r.SetLimit(rate.Inf, 1000)
	return r
}

func candidate(name, installed, cand string) model.UpgradeCandidate {
	return model.UpgradeCandidate{PackageRecord: model.PackageRecord{
		Name: name, InstalledVersion: installed, CandidateVersion: cand,
	}}
}

// TestAssessSuccess tests that a backend answer is classified
func TestAssessSuccess(t *testing.T) {
	p := &stubProvider{answer: func(string) (string, error) {
		return "Only security fixes.\nBREAKING: no\nVERDICT: SAFE", nil
	}}
	a := NewAssessor(p, WithRateLimiter(fastLimiter()))

	v, rationale := a.Assess(context.Background(), candidate("openssl", "3.0.14-1", "3.0.15-1"))
	if v != model.VerdictSafe {
		t.Errorf("Verdict = %q, want safe", v)
	}
	if rationale != "Only security fixes." {
		t.Errorf("Rationale = %q", rationale)
	}
	if len(p.prompts) != 1 || !strings.Contains(p.prompts[0], "openssl") {
		t.Errorf("unexpected prompts %v", p.prompts)
	}
}

// TestAssessMissingVersions tests that incomplete candidates are not sent
func TestAssessMissingVersions(t *testing.T) {
	p := &stubProvider{answer: func(string) (string, error) { return "VERDICT: SAFE", nil }}
	a := NewAssessor(p, WithRateLimiter(fastLimiter()))

	v, rationale := a.Assess(context.Background(), candidate("foo", "", "1.1"))
	if v != model.VerdictUnknown {
		t.Errorf("Verdict = %q, want unknown", v)
	}
	if !strings.Contains(rationale, "version missing") {
		t.Errorf("Rationale = %q", rationale)
	}
	if len(p.prompts) != 0 {
		t.Error("no request may be sent for a candidate without versions")
	}
}

// TestAssessDisabled tests the "none" provider
func TestAssessDisabled(t *testing.T) {
	a := NewAssessor(DisabledProvider{}, WithRateLimiter(fastLimiter()))
	v, rationale := a.Assess(context.Background(), candidate("foo", "1.0", "1.1"))
	if v != model.VerdictUnknown || !strings.Contains(rationale, "assessment disabled") {
		t.Errorf("got %q / %q", v, rationale)
	}
}

// TestAssessTimeout tests that a hanging backend is bounded by the assessor timeout
func TestAssessTimeout(t *testing.T) {
	hang := &hangingProvider{}
	a := NewAssessor(hang, WithRateLimiter(fastLimiter()), WithTimeout(20*time.Millisecond))

	cl, err := a.Evaluate(context.Background(), &model.UpgradeCandidate{PackageRecord: model.PackageRecord{
		Name: "foo", InstalledVersion: "1.0", CandidateVersion: "1.1",
	}})
	if !errors.Is(err, ErrRequestTimeout) {
		t.Errorf("Expected ErrRequestTimeout, got: %v", err)
	}
	if cl.Verdict != model.VerdictUnknown || cl.Rationale == "" {
		t.Errorf("unexpected classification %+v", cl)
	}
}

// hangingProvider blocks until its context is done
type hangingProvider struct{}

func (hangingProvider) Complete(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
func (hangingProvider) Name() string     { return "hang" }
func (hangingProvider) GetModel() string { return "" }

// TestAssessAllIsolatesFailures tests that one failure does not affect the others
func TestAssessAllIsolatesFailures(t *testing.T) {
	p := &stubProvider{answer: func(prompt string) (string, error) {
		if strings.Contains(prompt, "package bar ") {
			return "", errors.New("connection refused")
		}
		return "BREAKING: yes\nVERDICT: RISKY", nil
	}}
	a := NewAssessor(p, WithRateLimiter(fastLimiter()))

	candidates := []model.UpgradeCandidate{
		candidate("foo", "1.0", "1.1"),
		candidate("bar", "2.0", "2.1"),
		candidate("baz", "3.0", "4.0"),
	}

	failures := a.AssessAll(context.Background(), candidates)
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}

	if candidates[0].Verdict != model.VerdictRisky || !candidates[0].Breaking {
		t.Errorf("foo: %+v", candidates[0])
	}
	if candidates[1].Verdict != model.VerdictUnknown || !strings.Contains(candidates[1].Rationale, "connection refused") {
		t.Errorf("bar: %+v", candidates[1])
	}
	if candidates[2].Verdict != model.VerdictRisky {
		t.Errorf("baz: %+v", candidates[2])
	}
	for _, c := range candidates {
		if !c.Assessed() {
			t.Errorf("%s not assessed: %+v", c.Name, c)
		}
	}
}

// TestAssessAllStopsOnCancel tests that a cancelled run sends no further requests
func TestAssessAllStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &stubProvider{answer: func(string) (string, error) {
		cancel()
		return "VERDICT: SAFE", nil
	}}
	a := NewAssessor(p, WithRateLimiter(fastLimiter()))

	candidates := []model.UpgradeCandidate{
		candidate("foo", "1.0", "1.1"),
		candidate("bar", "2.0", "2.1"),
		candidate("baz", "3.0", "3.1"),
	}
	a.AssessAll(ctx, candidates)

	if len(p.prompts) != 1 {
		t.Errorf("Expected 1 request before cancellation, got %d", len(p.prompts))
	}
	for _, c := range candidates[1:] {
		if c.Verdict != model.VerdictUnknown || !strings.Contains(c.Rationale, "skipped") {
			t.Errorf("%s: %+v", c.Name, c)
		}
	}
}

// TestContextFuncFeedsPrompt tests that gathered context reaches the prompt
func TestContextFuncFeedsPrompt(t *testing.T) {
	p := &stubProvider{answer: func(string) (string, error) { return "VERDICT: SAFE", nil }}
	a := NewAssessor(p,
		WithRateLimiter(fastLimiter()),
		WithContextFunc(func(_ context.Context, c *model.UpgradeCandidate) PromptInput {
			c.ConfigPath = "/etc/foo.conf"
			return PromptInput{Changelog: "foo (1.1) unstable", ConfigContent: "key=value"}
		}),
	)

	candidates := []model.UpgradeCandidate{candidate("foo", "1.0", "1.1")}
	a.AssessAll(context.Background(), candidates)

	if candidates[0].ConfigPath != "/etc/foo.conf" {
		t.Errorf("ConfigPath = %q", candidates[0].ConfigPath)
	}
	for _, want := range []string{"foo (1.1) unstable", "key=value", "/etc/foo.conf"} {
		if !strings.Contains(p.prompts[0], want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

// TestAssessAllUnreachableBackend tests that every candidate ends unknown with a reason
func TestAssessAllUnreachableBackend(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("all candidates unknown with a non-empty rationale", prop.ForAll(
		func(n int) bool {
			p := &stubProvider{answer: func(string) (string, error) {
				return "", errors.New("dial tcp: connection refused")
			}}
			a := NewAssessor(p, WithRateLimiter(fastLimiter()))

			candidates := make([]model.UpgradeCandidate, n)
			for i := range candidates {
				candidates[i] = candidate("pkg", "1.0", "2.0")
			}

			if a.AssessAll(context.Background(), candidates) != n {
				return false
			}
			for _, c := range candidates {
				if c.Verdict != model.VerdictUnknown || c.Rationale == "" {
					return false
				}
			}
			return len(p.prompts) == n
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

// TestRateLimiterDefaults tests the default pacing
func TestRateLimiterDefaults(t *testing.T) {
	r := NewRateLimiter(0)
	if got := float64(r.Limit()); got != 1 {
		t.Errorf("default limit = %v events/s, want 1 (60 per minute)", got)
	}
	r.SetLimit(rate.Inf, 1)
	if err := r.Wait(context.Background()); err != nil {
		t.Errorf("Wait: %v", err)
	}
}
