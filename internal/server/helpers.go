package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/metrics"
	"github.com/cxy13h/chat-to-responses-proxy/internal/process"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"

	"github.com/gin-gonic/gin"
)

// setStreamingHeaders sets streaming response HTTP headers
func setStreamingHeaders(c *gin.Context) {
	c.Header(core.HeaderContentType, core.ContentTypeEventStream)
	c.Header(core.HeaderCacheControl, core.CacheControlNoCache)
	c.Header(core.HeaderConnection, core.ConnectionKeepAlive)
}

// writeSSEData writes SSE format data
func writeSSEData(w io.Writer, data []byte) (int, error) {
	return fmt.Fprintf(w, "%s%s\n\n", core.StreamChunkPrefix, string(data))
}

// respondWithOpenAIError returns OpenAI format error response
func respondWithOpenAIError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// respondWithUpstreamError relays the upstream's final rejection to the
// client. The upstream body is passed through structurally when it parses as
// JSON so the client sees the provider's own error shape.
func respondWithUpstreamError(c *gin.Context, upstreamErr *process.UpstreamError) {
	var parsed map[string]any
	if err := util.UnmarshalJSON([]byte(upstreamErr.Body), &parsed); err == nil && len(parsed) > 0 {
		c.JSON(upstreamErr.StatusCode, parsed)
		return
	}
	respondWithOpenAIError(c, upstreamErr.StatusCode, upstreamErr.Body)
}

// trackPerformanceWithMetrics records performance metrics
func trackPerformanceWithMetrics(m *metrics.MetricsService, startTime time.Time) func() {
	return func() {
		duration := time.Since(startTime)
		m.RecordHTTPRequest(duration)
	}
}

// recordRequestResultWithMetrics records request result
func recordRequestResultWithMetrics(m *metrics.MetricsService, success bool, startTime time.Time, model string) {
	if success {
		metrics.RecordSuccessWithMetrics(m, startTime, model)
	} else {
		metrics.RecordFailureWithMetrics(m, startTime, model)
	}
}

// withPanicRecoveryWithMetrics wraps handler with panic recovery
func withPanicRecoveryWithMetrics(
	c *gin.Context,
	m *metrics.MetricsService,
	startTime time.Time,
	resp **http.Response,
	logger core.Logger,
) func() {
	return func() {
		if r := recover(); r != nil {
			logger.Error("Panic in handler: %v", r)

			if resp != nil && *resp != nil && (*resp).Body != nil {
				_ = (*resp).Body.Close()
			}

			metrics.RecordFailureWithMetrics(m, startTime, "")

			respondWithOpenAIError(c, http.StatusInternalServerError, "internal server error")
		}
	}
}
