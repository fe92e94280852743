package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"

	"github.com/gin-gonic/gin"
)

// responsesPassthrough forwards a native Responses API request to the
// upstream unchanged. Clients that already speak the upstream dialect get a
// transparent tunnel, with variant probing reserved for the chat route.
func (s *Server) responsesPassthrough(c *gin.Context) {
	startTime := time.Now()
	defer trackPerformanceWithMetrics(s.metricsService, startTime)()

	req, err := http.NewRequestWithContext(
		c.Request.Context(),
		http.MethodPost,
		s.requestProcessor.Endpoint(),
		c.Request.Body,
	)
	if err != nil {
		recordRequestResultWithMetrics(s.metricsService, false, startTime, "")
		respondWithOpenAIError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	if accept := c.GetHeader(core.HeaderAccept); accept != "" {
		req.Header.Set(core.HeaderAccept, accept)
	}
	if authorization := c.GetHeader(core.HeaderAuthorization); authorization != "" {
		req.Header.Set(core.HeaderAuthorization, authorization)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		recordRequestResultWithMetrics(s.metricsService, false, startTime, "")
		s.config.Logger.Error("Passthrough request failed: %v", err)
		respondWithOpenAIError(c, http.StatusBadGateway, "upstream unreachable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get(core.HeaderContentType)
	c.Status(resp.StatusCode)
	c.Header(core.HeaderContentType, contentType)

	if strings.Contains(contentType, core.ContentTypeEventStream) {
		c.Header(core.HeaderCacheControl, core.CacheControlNoCache)
		c.Header(core.HeaderConnection, core.ConnectionKeepAlive)
		buf := make([]byte, 4096)
		for {
			n, rerr := resp.Body.Read(buf)
			if n > 0 {
				if _, werr := c.Writer.Write(buf[:n]); werr != nil {
					break
				}
				c.Writer.Flush()
			}
			if rerr != nil {
				break
			}
		}
	} else {
		_, _ = io.Copy(c.Writer, resp.Body)
	}

	recordRequestResultWithMetrics(s.metricsService, resp.StatusCode < http.StatusBadRequest, startTime, "")
}
