package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"
)

// UpstreamError carries the status and body of the final upstream rejection.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream rejected request: status=%d", e.StatusCode)
}

// isSchemaMismatch reports whether a status signals a dialect rejection that
// the next variant might avoid.
func isSchemaMismatch(status int) bool {
	return status == core.StatusSchemaMismatch || status == core.StatusUnprocessableEntity
}

// Dispatch walks the variant sequence in order, sending each as the full
// request body until one is accepted. Transport failures short-circuit
// immediately since they signal connectivity trouble rather than a dialect
// mismatch. Schema-mismatch statuses advance to the next variant; any other
// error status, or a mismatch on the last variant, is reported as the final
// failure. Each variant is sent at most once. The caller owns the returned
// response body.
func (p *RequestProcessor) Dispatch(ctx context.Context, authorization string, variants []map[string]any) (*http.Response, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("no request variants to send")
	}

	endpoint := p.Endpoint()
	var lastErr *UpstreamError

	for i, v := range variants {
		payload, err := util.MarshalJSON(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
		req.Header.Set(core.HeaderAccept, core.ContentTypeEventStream)
		req.Header.Set(core.HeaderCacheControl, core.CacheControlNoCache)
		if authorization != "" {
			req.Header.Set(core.HeaderAuthorization, authorization)
		}

		p.metrics.RecordVariantAttempt()
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("upstream unreachable: %w", err)
		}

		if resp.StatusCode < http.StatusBadRequest {
			if i > 0 {
				p.logger.Debug("Upstream accepted variant %d of %d", i+1, len(variants))
			}
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))
		resp.Body.Close()
		lastErr = &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}

		if !isSchemaMismatch(resp.StatusCode) {
			return nil, lastErr
		}
		p.metrics.RecordVariantRejection()
		p.logger.Debug("Upstream rejected variant %d of %d with status %d", i+1, len(variants), resp.StatusCode)
	}

	return nil, lastErr
}
