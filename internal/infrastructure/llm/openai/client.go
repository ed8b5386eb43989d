package openai

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible API. It carries no state beyond
// connection settings; Embedder and Generator wrap it with the retry,
// breaker and rate-limit policy each call class needs.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	embedModel  string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	executor    *resilience.Executor
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	EmbedModel  string
	Temperature float64
	MaxTokens   int
}

func New(cfg Config) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		embedModel:  cfg.EmbedModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		executor:    resilience.NewExecutor(resilience.LLMConfig()),
	}
}

type Embedder struct {
	client  *Client
	limiter *rate.Limiter
}

// NewEmbedder rate-limits embedding calls client-side: rebuilds push whole
// corpora through this path and upstream quotas are per-second.
func NewEmbedder(client *Client, ratePerSec float64) *Embedder {
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	return &Embedder{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}

	err := e.client.executor.Execute(ctx, "openai.embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/embeddings", request, &response, "embed")
	}, classifyOpenAIError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "openai.embed", wrapTemporaryIfNeeded("openai.embed", err))
	}

	if len(response.Data) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "openai.embed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Data)))
	}

	sort.Slice(response.Data, func(i, j int) bool { return response.Data[i].Index < response.Data[j].Index })
	vectors := make([][]float32, len(response.Data))
	for i, item := range response.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "openai.embed_query",
			fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"model": g.client.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": g.client.temperature,
		"max_tokens":  g.client.maxTokens,
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	err := g.client.executor.Execute(ctx, "openai.complete", func(ctx context.Context) error {
		return g.client.postJSON(ctx, "/chat/completions", request, &response, "complete")
	}, classifyOpenAIError)
	if err != nil {
		return "", domain.WrapError(domain.ErrCompletionService, "openai.complete", wrapTemporaryIfNeeded("openai.complete", err))
	}

	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrCompletionService, "openai.complete",
			fmt.Errorf("response has no choices"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
