package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/cxy13h/chat-to-responses-proxy/internal/config"
	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/process"
	"github.com/cxy13h/chat-to-responses-proxy/internal/sse"

	"github.com/gin-gonic/gin"
)

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, s.models)
}

func (s *Server) retrieveModel(c *gin.Context) {
	item := config.GetModelItem(s.models, c.Param("model"))
	if item == nil {
		respondWithOpenAIError(c, http.StatusNotFound, "model not found")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) chatCompletions(c *gin.Context) {
	startTime := time.Now()

	var resp *http.Response
	defer withPanicRecoveryWithMetrics(c, s.metricsService, startTime, &resp, s.config.Logger)()
	defer trackPerformanceWithMetrics(s.metricsService, startTime)()

	var request core.ChatCompletionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		recordRequestResultWithMetrics(s.metricsService, false, startTime, "")
		respondWithOpenAIError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	buildResult, err := s.requestProcessor.BuildVariants(&request)
	if err != nil {
		recordRequestResultWithMetrics(s.metricsService, false, startTime, request.Model)
		s.config.Logger.Error("Failed to build upstream request: %v", err)
		respondWithOpenAIError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	authorization := c.GetHeader(core.HeaderAuthorization)
	//nolint:bodyclose // resp.Body ownership passes to the streaming or buffering path below
	resp, err = s.requestProcessor.Dispatch(c.Request.Context(), authorization, buildResult.Variants)
	if err != nil {
		recordRequestResultWithMetrics(s.metricsService, false, startTime, request.Model)
		var upstreamErr *process.UpstreamError
		if errors.As(err, &upstreamErr) {
			respondWithUpstreamError(c, upstreamErr)
			return
		}
		s.config.Logger.Error("Upstream dispatch failed: %v", err)
		respondWithOpenAIError(c, http.StatusBadGateway, "upstream unreachable")
		return
	}

	if request.Stream {
		s.handleStreamingResponse(c, resp, &request, startTime)
	} else {
		s.handleBufferedResponse(c, resp, &request, startTime)
	}
}

// handleStreamingResponse transcodes the upstream event stream into client
// chat completion chunks. The transcoder owns the upstream body.
func (s *Server) handleStreamingResponse(c *gin.Context, resp *http.Response, request *core.ChatCompletionRequest, startTime time.Time) {
	setStreamingHeaders(c)

	chatID := s.requestProcessor.IDs().NewID(core.ResponseIDPrefix)
	transcoder := sse.NewTranscoder(chatID, request.Model, time.Now().Unix(), s.config.Logger)

	err := transcoder.Run(resp.Body, func(data string) error {
		if _, werr := writeSSEData(c.Writer, []byte(data)); werr != nil {
			return werr
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		s.config.Logger.Error("Stream transcoding failed: %v", err)
		recordRequestResultWithMetrics(s.metricsService, false, startTime, request.Model)
		return
	}

	recordRequestResultWithMetrics(s.metricsService, true, startTime, request.Model)
}

// handleBufferedResponse collects the whole upstream answer, whether JSON or
// an event stream, and assembles one chat completion from it.
func (s *Server) handleBufferedResponse(c *gin.Context, resp *http.Response, request *core.ChatCompletionRequest, startTime time.Time) {
	defer func() { _ = resp.Body.Close() }()

	obj, err := sse.Collect(resp.Body, resp.Header.Get(core.HeaderContentType), core.MaxResponseBodySize)
	if err != nil {
		s.config.Logger.Error("Failed to collect upstream response: %v", err)
		recordRequestResultWithMetrics(s.metricsService, false, startTime, request.Model)
		respondWithOpenAIError(c, http.StatusBadGateway, "invalid upstream response")
		return
	}

	response := s.requestProcessor.Assembler().BuildChatResponse(obj, request)
	recordRequestResultWithMetrics(s.metricsService, true, startTime, request.Model)
	c.JSON(http.StatusOK, response)
}
