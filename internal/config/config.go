package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"

	"github.com/bytedance/sonic"
)

// ServerConfig server configuration
type ServerConfig struct {
	Port               string
	GinMode            string
	UpstreamBaseURL    string
	ModelsConfigPath   string
	RateLimitPerMinute int
	HTTPClientSettings HTTPClientSettings
	Storage            core.StorageInterface
	Logger             core.Logger
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	RequestTimeout      time.Duration
}

// DefaultHTTPClientSettings default HTTP client settings
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:        core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:     core.HTTPMaxConnsPerHost,
		IdleConnTimeout:     core.HTTPIdleConnTimeout,
		TLSHandshakeTimeout: core.HTTPTLSHandshakeTimeout,
		RequestTimeout:      core.HTTPRequestTimeout,
	}
}

// LoadModels loads model data for the /v1/models listing
func LoadModels(path string, logger core.Logger) (core.ModelList, error) {
	result := core.ModelList{Object: core.ModelListObjectType}

	config, err := LoadModelsConfig(path)
	if err != nil {
		return result, err
	}

	now := time.Now().Unix()
	modelKeys := make([]string, 0, len(config.Models))
	for modelKey := range config.Models {
		modelKeys = append(modelKeys, modelKey)
	}
	sort.Strings(modelKeys)

	for _, modelKey := range modelKeys {
		result.Data = append(result.Data, core.ModelInfo{
			ID:      modelKey,
			Object:  core.ModelObjectType,
			Created: now,
			OwnedBy: core.ModelOwner,
		})
	}

	logger.Info("Loaded %d models from %s", len(config.Models), path)
	return result, nil
}

// LoadModelsConfig loads the model name mapping. The file may be either a
// {"models": {client: upstream}} object or a bare list of model ids that map
// to themselves. A missing file yields an empty mapping, since unmapped
// models pass through to the upstream unchanged.
func LoadModelsConfig(path string) (core.ModelsConfig, error) {
	var config core.ModelsConfig

	data, err := os.ReadFile(path) //nolint:gosec // G304: path from config, not user input
	if err != nil {
		if os.IsNotExist(err) {
			config.Models = make(map[string]string)
			return config, nil
		}
		return config, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := sonic.Unmarshal(data, &config); err != nil || config.Models == nil {
		var modelIDs []string
		if err := sonic.Unmarshal(data, &modelIDs); err != nil {
			return config, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		config.Models = make(map[string]string)
		for _, modelID := range modelIDs {
			config.Models[modelID] = modelID
		}
	}

	if config.Models == nil {
		config.Models = make(map[string]string)
	}

	return config, nil
}

// GetModelItem finds a model by ID
func GetModelItem(models core.ModelList, modelID string) *core.ModelInfo {
	for _, model := range models.Data {
		if model.ID == modelID {
			return &model
		}
	}
	return nil
}

// GetModelsConfig loads both the listing and the mapping
func GetModelsConfig(path string, logger core.Logger) (core.ModelList, core.ModelsConfig, error) {
	models, err := LoadModels(path, logger)
	if err != nil {
		return models, core.ModelsConfig{}, fmt.Errorf("failed to load models: %w", err)
	}

	modelsConfig, err := LoadModelsConfig(path)
	if err != nil {
		return models, core.ModelsConfig{}, fmt.Errorf("failed to load model mappings: %w", err)
	}

	return models, modelsConfig, nil
}

// LoadServerConfigFromEnv loads server config from environment variables
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	port := util.GetEnvWithDefault("PORT", core.DefaultPort)
	ginMode := util.GetEnvWithDefault("GIN_MODE", core.DefaultGinMode)
	upstreamBaseURL := util.GetEnvWithDefault("UPSTREAM_BASE_URL", core.DefaultUpstreamBaseURL)
	modelsConfigPath := util.GetEnvWithDefault("MODELS_CONFIG_PATH", core.DefaultModelsConfigPath)

	rateLimit := 0
	if raw := os.Getenv("RATE_LIMIT_PER_MINUTE"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			logger.Warn("Invalid RATE_LIMIT_PER_MINUTE %q, rate limiting disabled", raw)
		} else {
			rateLimit = parsed
		}
	}

	logger.Info("Upstream base URL: %s", upstreamBaseURL)

	config := ServerConfig{
		Port:               port,
		GinMode:            ginMode,
		UpstreamBaseURL:    upstreamBaseURL,
		ModelsConfigPath:   modelsConfigPath,
		RateLimitPerMinute: rateLimit,
		HTTPClientSettings: DefaultHTTPClientSettings(),
	}

	return config, nil
}
