package process

import (
	"net/http"
	"strings"

	"github.com/cxy13h/chat-to-responses-proxy/internal/cache"
	"github.com/cxy13h/chat-to-responses-proxy/internal/convert"
	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/variant"
)

// RequestProcessor handles request processing
type RequestProcessor struct {
	modelsConfig core.ModelsConfig
	baseURL      string
	httpClient   *http.Client
	cache        core.Cache
	metrics      core.MetricsCollector
	logger       core.Logger
	builder      *convert.RequestBuilder
	assembler    *convert.ResponseAssembler
	ids          core.IDGenerator
}

// NewRequestProcessor creates a new request processor
func NewRequestProcessor(
	modelsConfig core.ModelsConfig,
	baseURL string,
	httpClient *http.Client,
	c core.Cache,
	metrics core.MetricsCollector,
	logger core.Logger,
	ids core.IDGenerator,
) *RequestProcessor {
	return &RequestProcessor{
		modelsConfig: modelsConfig,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		cache:        c,
		metrics:      metrics,
		logger:       logger,
		builder:      convert.NewRequestBuilder(ids, logger),
		assembler:    convert.NewResponseAssembler(ids),
		ids:          ids,
	}
}

// Assembler exposes the response assembler for the non-streaming path.
func (p *RequestProcessor) Assembler() *convert.ResponseAssembler {
	return p.assembler
}

// IDs exposes the id generator for per-stream state.
func (p *RequestProcessor) IDs() core.IDGenerator {
	return p.ids
}

// Endpoint returns the upstream URL the canonical request is sent to.
func (p *RequestProcessor) Endpoint() string {
	return p.baseURL + core.ResponsesEndpointPath
}

// BuildVariantsResult request build result
type BuildVariantsResult struct {
	Variants []map[string]any
	CacheHit bool
}

// BuildVariants converts a chat request into its upstream variant sequence,
// with the whole conversion cached on the request shape. Cached variants are
// never mutated after generation, so sharing them across requests is safe.
func (p *RequestProcessor) BuildVariants(request *core.ChatCompletionRequest) (BuildVariantsResult, error) {
	cacheKey := cache.GenerateRequestCacheKey(request)

	if cachedAny, found := p.cache.Get(cacheKey); found {
		if variants, ok := cachedAny.([]map[string]any); ok {
			p.metrics.RecordCacheHit()
			return BuildVariantsResult{Variants: variants, CacheHit: true}, nil
		}
		p.logger.Warn("Cache format mismatch for request (key: %s), rebuilding", cache.TruncateCacheKey(cacheKey, 16))
	}

	p.metrics.RecordCacheMiss()
	upstream := p.builder.Build(request, p.ResolveModel(request.Model))
	variants, err := variant.Generate(upstream)
	if err != nil {
		return BuildVariantsResult{}, err
	}

	p.cache.Set(cacheKey, variants, core.RequestBuildCacheTTL)

	p.logger.Debug("Built upstream request: model=%s->%s, input=%d, variants=%d",
		request.Model, upstream.Model, len(upstream.Input), len(variants))

	return BuildVariantsResult{Variants: variants, CacheHit: false}, nil
}

// ResolveModel maps a client-facing model id to the upstream model name.
// Unmapped models pass through unchanged.
func (p *RequestProcessor) ResolveModel(modelID string) string {
	if upstream, exists := p.modelsConfig.Models[modelID]; exists {
		return upstream
	}
	return modelID
}
