package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadModelsConfig_MappingShape(t *testing.T) {
	path := writeConfigFile(t, `{"models":{"gpt-alias":"gpt-upstream","o-mini":"o-mini"}}`)

	cfg, err := LoadModelsConfig(path)
	if err != nil {
		t.Fatalf("LoadModelsConfig: %v", err)
	}
	if cfg.Models["gpt-alias"] != "gpt-upstream" {
		t.Errorf("mapping wrong: %v", cfg.Models)
	}
}

func TestLoadModelsConfig_ListShape(t *testing.T) {
	path := writeConfigFile(t, `["gpt-a","gpt-b"]`)

	cfg, err := LoadModelsConfig(path)
	if err != nil {
		t.Fatalf("LoadModelsConfig: %v", err)
	}
	if cfg.Models["gpt-a"] != "gpt-a" || cfg.Models["gpt-b"] != "gpt-b" {
		t.Errorf("list entries should map to themselves: %v", cfg.Models)
	}
}

func TestLoadModelsConfig_MissingFile(t *testing.T) {
	cfg, err := LoadModelsConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(cfg.Models) != 0 {
		t.Errorf("expected empty mapping, got %v", cfg.Models)
	}
}

func TestLoadModelsConfig_Garbage(t *testing.T) {
	path := writeConfigFile(t, "not json")
	if _, err := LoadModelsConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadModels_SortedListing(t *testing.T) {
	path := writeConfigFile(t, `{"models":{"zeta":"z","alpha":"a"}}`)

	models, err := LoadModels(path, &core.NopLogger{})
	if err != nil {
		t.Fatalf("LoadModels: %v", err)
	}
	if models.Object != core.ModelListObjectType {
		t.Errorf("object = %q", models.Object)
	}
	if len(models.Data) != 2 || models.Data[0].ID != "alpha" || models.Data[1].ID != "zeta" {
		t.Errorf("listing not sorted: %+v", models.Data)
	}
	if models.Data[0].OwnedBy != core.ModelOwner {
		t.Errorf("owner = %q", models.Data[0].OwnedBy)
	}
}

func TestGetModelItem(t *testing.T) {
	models := core.ModelList{
		Object: core.ModelListObjectType,
		Data: []core.ModelInfo{
			{ID: "alpha", Object: core.ModelObjectType},
			{ID: "zeta", Object: core.ModelObjectType},
		},
	}

	item := GetModelItem(models, "zeta")
	if item == nil || item.ID != "zeta" {
		t.Errorf("lookup failed: %+v", item)
	}
	if GetModelItem(models, "missing") != nil {
		t.Error("unknown id should yield nil")
	}
}

func TestLoadServerConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("UPSTREAM_BASE_URL", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")

	cfg, err := LoadServerConfigFromEnv(&core.NopLogger{})
	if err != nil {
		t.Fatalf("LoadServerConfigFromEnv: %v", err)
	}
	if cfg.Port != core.DefaultPort {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.UpstreamBaseURL != core.DefaultUpstreamBaseURL {
		t.Errorf("upstream = %q", cfg.UpstreamBaseURL)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("rate limit default = %d", cfg.RateLimitPerMinute)
	}
}

func TestLoadServerConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("UPSTREAM_BASE_URL", "https://alt.example.com/v1")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "60")

	cfg, err := LoadServerConfigFromEnv(&core.NopLogger{})
	if err != nil {
		t.Fatalf("LoadServerConfigFromEnv: %v", err)
	}
	if cfg.Port != "9000" || cfg.UpstreamBaseURL != "https://alt.example.com/v1" || cfg.RateLimitPerMinute != 60 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
