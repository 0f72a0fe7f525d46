package research

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// fakeCompleter scripts per-call outcomes
type fakeCompleter struct {
	calls   int
	prompts []string
	replies []string // one per call; "" means fail
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	idx := f.calls
	f.calls++
	if idx >= len(f.replies) || f.replies[idx] == "" {
		return "", fmt.Errorf("provider down")
	}
	return f.replies[idx], nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "console"})
}

func testInput() contracts.ResearchInput {
	return contracts.ResearchInput{
		Game: contracts.Game{
			GameID:   "g1",
			HomeTeam: "Boston Celtics",
			AwayTeam: "Los Angeles Lakers",
			StartsAt: time.Date(2026, 1, 15, 0, 30, 0, 0, time.UTC),
		},
		BetType:        contracts.BetTotal,
		PredictedTotal: 231.0,
		MarketTotal:    224.5,
		ConfScore:      4.2,
	}
}

func TestRetryPolicyTransformsOnRetry(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		Transform:   SimplifyPrompt,
	}

	var seen []string
	out, err := policy.Do(context.Background(), "Question\n\nContext:\n- data", func(ctx context.Context, p string) (string, error) {
		seen = append(seen, p)
		if len(seen) < 3 {
			return "", fmt.Errorf("flaky")
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if out != "ok" {
		t.Errorf("Do() = %q, want ok", out)
	}
	if len(seen) != 3 {
		t.Fatalf("got %d attempts, want 3", len(seen))
	}

	// Attempt 1 passes the prompt through untouched
	if seen[0] != "Question\n\nContext:\n- data" {
		t.Errorf("attempt 1 prompt modified: %q", seen[0])
	}
	// Attempt 2 appends the format relaxation
	if !strings.Contains(seen[1], "plain sentences instead") {
		t.Errorf("attempt 2 missing relaxation: %q", seen[1])
	}
	// Attempt 3 drops the context block entirely
	if strings.Contains(seen[2], "Context:") {
		t.Errorf("attempt 3 still carries context: %q", seen[2])
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}

	_, err := policy.Do(context.Background(), "p", func(ctx context.Context, p string) (string, error) {
		return "", fmt.Errorf("down")
	})

	if err == nil {
		t.Fatal("Do() = nil, want error after exhaustion")
	}
	if !strings.Contains(err.Error(), "all 2 attempts failed") {
		t.Errorf("error = %v, want attempt count", err)
	}
}

func TestEnsembleFallsBackToSecondProvider(t *testing.T) {
	primary := &fakeCompleter{replies: []string{"", "", ""}}
	secondary := &fakeCompleter{replies: []string{`{"summary":"Pace mismatch drives the total gap.","angle":"tempo"}`}}

	e := &Ensemble{
		clients: []namedClient{
			{name: "openai", client: primary},
			{name: "anthropic", client: secondary},
		},
		policy: RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, Transform: SimplifyPrompt},
		logger: testLogger(),
		now:    func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) },
	}

	narrative, err := e.Narrative(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Narrative() error = %v", err)
	}

	if primary.calls != 3 {
		t.Errorf("primary calls = %d, want 3 (policy exhausted)", primary.calls)
	}
	if narrative.Summary != "Pace mismatch drives the total gap." {
		t.Errorf("Summary = %q", narrative.Summary)
	}
	if narrative.Angle != "tempo" {
		t.Errorf("Angle = %q, want tempo", narrative.Angle)
	}
	if len(narrative.Providers) != 1 || narrative.Providers[0] != "anthropic" {
		t.Errorf("Providers = %v, want [anthropic]", narrative.Providers)
	}
	if narrative.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

func TestEnsembleAllProvidersFail(t *testing.T) {
	e := &Ensemble{
		clients: []namedClient{
			{name: "openai", client: &fakeCompleter{}},
		},
		policy: RetryPolicy{MaxAttempts: 1},
		logger: testLogger(),
		now:    time.Now,
	}

	_, err := e.Narrative(context.Background(), testInput())
	if err == nil {
		t.Fatal("Narrative() = nil, want error when every provider fails")
	}
}

func TestEnsembleNoProviders(t *testing.T) {
	e := NewEnsemble(config.ResearchConfig{}, testLogger())

	_, err := e.Narrative(context.Background(), testInput())
	if err == nil {
		t.Fatal("Narrative() = nil, want error with no providers configured")
	}
}

func TestParseNarrativeFencedJSON(t *testing.T) {
	raw := "```json\n{\"summary\":\"Market underrates the rest edge.\",\"angle\":\"schedule\"}\n```"

	n := parseNarrative(raw)
	if n.Summary != "Market underrates the rest edge." {
		t.Errorf("Summary = %q", n.Summary)
	}
	if n.Angle != "schedule" {
		t.Errorf("Angle = %q, want schedule", n.Angle)
	}
}

func TestParseNarrativePlainText(t *testing.T) {
	n := parseNarrative("The model likes the over because both defenses travel poorly.")
	if n.Summary != "The model likes the over because both defenses travel poorly." {
		t.Errorf("Summary = %q", n.Summary)
	}
	if n.Angle != "" {
		t.Errorf("Angle = %q, want empty", n.Angle)
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	in := testInput()
	a := buildPrompt(in)
	b := buildPrompt(in)
	if a != b {
		t.Error("buildPrompt() not deterministic")
	}
	if !strings.Contains(a, "Context:") {
		t.Errorf("prompt missing context block: %q", a)
	}
	if !strings.Contains(a, "model total 231.0 vs market total 224.5") {
		t.Errorf("prompt missing totals line: %q", a)
	}
}
