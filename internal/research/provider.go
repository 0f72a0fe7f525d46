package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
	"github.com/wonny/delphi/v2/backend/pkg/redis"
)

const systemPrompt = `You are a basketball betting analyst. You receive a model's view of one NBA game versus the market. Write a short, factual note on where the disagreement comes from. Respond with JSON: {"summary": "...", "angle": "..."}. No predictions beyond the given numbers, no hedging filler.`

// completer is the slice of LLMClient the ensemble needs; tests
// substitute fakes.
type completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type namedClient struct {
	name   string
	client completer
}

// Ensemble asks the configured providers in order and keeps the first
// usable narrative. Every provider failing is an error for the caller
// to treat as non-fatal.
// ⭐ SSOT: S6 리서치 앙상블은 여기서만
type Ensemble struct {
	clients  []namedClient
	policy   RetryPolicy
	cache    *redis.Cache // optional, see WithCache
	cacheTTL time.Duration
	logger   *logger.Logger
	now      func() time.Time
}

// NewEnsemble builds an ensemble from the configured providers. A
// provider with no API key is left out; an ensemble with no providers
// returns an error from Narrative rather than failing construction.
func NewEnsemble(cfg config.ResearchConfig, log *logger.Logger) *Ensemble {
	e := &Ensemble{
		policy:   DefaultRetryPolicy(),
		cacheTTL: cfg.CacheTTL,
		logger:   log,
		now:      time.Now,
	}

	if cfg.OpenAIKey != "" {
		e.clients = append(e.clients, namedClient{
			name: "openai",
			client: NewLLMClient(LLMConfig{
				Provider:    "openai",
				Model:       cfg.OpenAIModel,
				APIKey:      cfg.OpenAIKey,
				BaseURL:     "https://api.openai.com/v1",
				Temperature: 0.4,
				Timeout:     cfg.BaseTimeout,
			}, log),
		})
	}

	if cfg.AnthropicKey != "" {
		e.clients = append(e.clients, namedClient{
			name: "anthropic",
			client: NewLLMClient(LLMConfig{
				Provider: "anthropic",
				Model:    cfg.AnthropicModel,
				APIKey:   cfg.AnthropicKey,
				BaseURL:  "https://api.anthropic.com/v1",
				Timeout:  cfg.BaseTimeout,
			}, log),
		})
	}

	return e
}

// WithCache enables caching of generated narratives. A run that fails
// downstream of research and gets replayed reuses the narrative it
// already paid for instead of asking the providers again.
func (e *Ensemble) WithCache(cache *redis.Cache) *Ensemble {
	e.cache = cache
	return e
}

// Narrative implements contracts.ResearchProvider
func (e *Ensemble) Narrative(ctx context.Context, input contracts.ResearchInput) (*contracts.Narrative, error) {
	if len(e.clients) == 0 {
		return nil, fmt.Errorf("no research providers configured")
	}

	cacheKey := fmt.Sprintf("narrative:%s:%s", input.Game.GameID, input.BetType)
	if e.cache != nil {
		var cached contracts.Narrative
		if found, _ := e.cache.Get(ctx, cacheKey, &cached); found {
			return &cached, nil
		}
	}

	prompt := buildPrompt(input)

	var lastErr error
	for _, nc := range e.clients {
		client := nc.client
		out, err := e.policy.Do(ctx, prompt, func(ctx context.Context, p string) (string, error) {
			return client.Complete(ctx, systemPrompt, p)
		})
		if err != nil {
			lastErr = err
			e.logger.WithError(err).WithField("provider", nc.name).Warn("Research provider failed")
			continue
		}

		narrative := parseNarrative(out)
		narrative.Providers = []string{nc.name}
		narrative.GeneratedAt = e.now().UTC()

		if e.cache != nil {
			if err := e.cache.Set(ctx, cacheKey, narrative, e.cacheTTL); err != nil {
				e.logger.WithError(err).Debug("Failed to cache narrative")
			}
		}

		return narrative, nil
	}

	return nil, fmt.Errorf("all research providers failed: %w", lastErr)
}

// buildPrompt lays out the model-vs-market picture. The layout is
// deterministic so S6 replays hash identically in dry runs.
func buildPrompt(input contracts.ResearchInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Game: %s at %s (%s)\n",
		input.Game.AwayTeam, input.Game.HomeTeam, input.Game.StartsAt.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Target market: %s\n\n", input.BetType)

	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- model total %.1f vs market total %.1f\n", input.PredictedTotal, input.MarketTotal)
	fmt.Fprintf(&b, "- model margin %+.1f vs market spread %+.1f (home line)\n", input.PredictedMargin, input.MarketSpread)
	fmt.Fprintf(&b, "- confidence score %.2f\n", input.ConfScore)

	return b.String()
}

// parseNarrative decodes the provider's JSON reply, tolerating markdown
// fences. Anything undecodable becomes a plain-text summary.
func parseNarrative(raw string) *contracts.Narrative {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed struct {
		Summary string `json:"summary"`
		Angle   string `json:"angle"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil && parsed.Summary != "" {
		return &contracts.Narrative{Summary: parsed.Summary, Angle: parsed.Angle}
	}

	return &contracts.Narrative{Summary: cleaned}
}
