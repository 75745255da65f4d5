package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"docchat/internal/backoff"
	"docchat/pkg/types"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// DefaultOpenAIModel targets 384-dimension output so local and remote
	// providers produce interchangeable indexes.
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOpenAIURL   = "https://api.openai.com/v1/embeddings"

	// LocalDimension matches the all-MiniLM-L6-v2 family.
	LocalDimension = 384

	// MaxBatchSize caps texts per upstream request; larger batches are
	// split.
	MaxBatchSize = 100

	requestTimeout = 30 * time.Second
)

// OpenAIConfig configures the OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	Dimension         int // requested output dimension; 0 keeps the model default
	RequestsPerSecond float64
}

// OpenAIProvider calls an OpenAI-compatible embeddings endpoint with
// client-side rate limiting and backoff on upstream 429s.
type OpenAIProvider struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	cache      *Cache
	limiter    *rate.Limiter
	retry      backoff.Policy
}

// NewOpenAIProvider creates the remote provider. A nil cache disables
// caching.
func NewOpenAIProvider(cfg OpenAIConfig, cache *Cache) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", types.ErrEmbedding)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIURL
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = LocalDimension
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	return &OpenAIProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2*int(cfg.RequestsPerSecond)),
		retry:      backoff.Default(),
	}, nil
}

// Embed implements Embedder. Cached texts are served locally; only the
// remainder goes upstream, in batches of at most MaxBatchSize.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	var missing []int
	for i, text := range texts {
		if p.cache != nil {
			if vec, ok := p.cache.Get(contentHash(text)); ok {
				vectors[i] = vec
				continue
			}
		}
		missing = append(missing, i)
	}

	for start := 0; start < len(missing); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		batchTexts := make([]string, len(batch))
		for j, idx := range batch {
			batchTexts[j] = texts[idx]
		}

		embedded, err := backoff.Retry(ctx, p.retry, func() ([][]float32, error) {
			return p.callAPI(ctx, batchTexts)
		})
		if err != nil {
			if types.IsRateLimit(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", types.ErrEmbedding, err)
		}
		if len(embedded) != len(batchTexts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", types.ErrEmbedding, len(embedded), len(batchTexts))
		}

		for j, idx := range batch {
			vectors[idx] = embedded[j]
			if p.cache != nil {
				p.cache.Set(contentHash(texts[idx]), embedded[j])
			}
		}
	}

	return vectors, nil
}

func (p *OpenAIProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody := map[string]any{
		"input": texts,
		"model": p.cfg.Model,
	}
	if p.cfg.Dimension > 0 {
		reqBody["dimensions"] = p.cfg.Dimension
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: embeddings endpoint returned 429", types.ErrRateLimit)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vectors := make([][]float32, len(apiResp.Data))
	for i, data := range apiResp.Data {
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

// Dimension implements Embedder.
func (p *OpenAIProvider) Dimension() int { return p.cfg.Dimension }

// Provider implements Embedder.
func (p *OpenAIProvider) Provider() string { return ProviderOpenAI }

// Close implements Embedder.
func (p *OpenAIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic hash-derived vectors without any
// network dependency. Useful offline and in tests; not semantically
// meaningful embeddings.
type LocalProvider struct {
	cache *Cache
}

// NewLocalProvider creates the offline provider.
func NewLocalProvider(cache *Cache) *LocalProvider {
	return &LocalProvider{cache: cache}
}

// Embed implements Embedder.
func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		hash := contentHash(text)
		if p.cache != nil {
			if vec, ok := p.cache.Get(hash); ok {
				vectors[i] = vec
				continue
			}
		}
		vec := localVector(text)
		vectors[i] = vec
		if p.cache != nil {
			p.cache.Set(hash, vec)
		}
	}
	return vectors, nil
}

// localVector expands a chained SHA-256 over the text into a unit-length
// 384-dimension vector.
func localVector(text string) []float32 {
	vec := make([]float32, LocalDimension)
	digest := sha256.Sum256([]byte(text))
	for i := 0; i < LocalDimension; i++ {
		if i%len(digest) == 0 && i > 0 {
			digest = sha256.Sum256(digest[:])
		}
		vec[i] = float32(digest[i%len(digest)])/255.0 - 0.5
	}
	return normalize(vec)
}

// normalize scales v to unit length.
func normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Dimension implements Embedder.
func (p *LocalProvider) Dimension() int { return LocalDimension }

// Provider implements Embedder.
func (p *LocalProvider) Provider() string { return ProviderLocal }

// Close implements Embedder.
func (p *LocalProvider) Close() error { return nil }
