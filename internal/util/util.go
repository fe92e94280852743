package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// MarshalJSON wraps Sonic for performance
func MarshalJSON(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// UnmarshalJSON wraps Sonic for performance
func UnmarshalJSON(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// GenerateRandomID generates a prefixed random ID (crypto-secure)
func GenerateRandomID(prefix string) string {
	b := make([]byte, 10)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s%s", prefix, hex.EncodeToString(b))
}

// RandomIDGenerator is the default core.IDGenerator. Chat-completion ids use a
// UUID, everything else a random hex token, both carrying the given prefix.
type RandomIDGenerator struct{}

// NewID implements core.IDGenerator.
func (RandomIDGenerator) NewID(prefix string) string {
	if prefix == core.ResponseIDPrefix {
		return prefix + uuid.New().String()
	}
	return GenerateRandomID(prefix)
}

// CoerceString coerces a duck-typed value to a string: strings pass through,
// nil becomes the fallback, anything else is JSON-serialized. Never fails;
// unencodable values degrade to fmt's default formatting.
func CoerceString(v any, fallback string) string {
	switch t := v.(type) {
	case nil:
		return fallback
	case string:
		return t
	default:
		data, err := sonic.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// StringField reads a string field from a duck-typed map, empty if absent or
// not a string.
func StringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// IntField reads a numeric field from a duck-typed map as int, falling back
// to def when absent or non-numeric. JSON numbers decode as float64.
func IntField(m map[string]any, key string, def int) int {
	switch t := m[key].(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	default:
		return def
	}
}

// ParseEnvList parses comma-separated env var to trimmed slice
func ParseEnvList(envVar string) []string {
	if envVar == "" {
		return nil
	}
	parts := strings.Split(envVar, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// GetEnvWithDefault gets env var with default value
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
