package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LLM.Model != "gpt-4.1" {
		t.Errorf("llm.model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("llm.base_url = %q", cfg.LLM.BaseURL)
	}
	if cfg.Market.RatePerMinute != 5 {
		t.Errorf("market.rate_per_minute = %d", cfg.Market.RatePerMinute)
	}
	if cfg.Agent.MaxRounds != 8 {
		t.Errorf("agent.max_rounds = %d", cfg.Agent.MaxRounds)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("api.port = %d", cfg.API.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging.level = %q", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
llm:
  model: gpt-4.1-mini
  temperature: 0.3
market:
  polygon_key: pk_test
  rate_per_minute: 100
agent:
  max_rounds: 4
api:
  port: 9090
  cors_origins:
    - https://finchat.example.com
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LLM.Model != "gpt-4.1-mini" || cfg.LLM.Temperature != 0.3 {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Market.PolygonKey != "pk_test" || cfg.Market.RatePerMinute != 100 {
		t.Errorf("market = %+v", cfg.Market)
	}
	if cfg.Agent.MaxRounds != 4 {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "https://finchat.example.com" {
		t.Errorf("cors = %v", cfg.API.CORSOrigins)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}

	// Unset values keep their defaults.
	if cfg.LLM.MaxOutputTokens != 4096 {
		t.Errorf("llm.max_output_tokens = %d", cfg.LLM.MaxOutputTokens)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverridesKeys(t *testing.T) {
	t.Setenv("FINCHAT_LLM_OPENAI_KEY", "sk-env-test-key")
	t.Setenv("FINCHAT_MARKET_POLYGON_KEY", "pk-env-test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.OpenAIKey != "sk-env-test-key" {
		t.Errorf("openai key = %q", cfg.LLM.OpenAIKey)
	}
	if cfg.Market.PolygonKey != "pk-env-test-key" {
		t.Errorf("polygon key = %q", cfg.Market.PolygonKey)
	}
}

func TestCheckAPIKeys(t *testing.T) {
	t.Setenv("FINCHAT_LLM_OPENAI_KEY", "")
	t.Setenv("FINCHAT_MARKET_POLYGON_KEY", "")

	cfg := &Config{}
	cfg.LLM.OpenAIKey = "sk-abcdefghijklmnop"

	statuses := CheckAPIKeys(cfg)
	if len(statuses) != 2 {
		t.Fatalf("statuses = %d", len(statuses))
	}

	openai := statuses[0]
	if !openai.IsSet || openai.Source != KeySourceConfig {
		t.Errorf("openai status = %+v", openai)
	}
	if openai.Masked != "sk-...nop" {
		t.Errorf("masked = %q", openai.Masked)
	}

	polygon := statuses[1]
	if polygon.IsSet || polygon.Source != KeySourceNone {
		t.Errorf("polygon status = %+v", polygon)
	}
}

func TestMaskKey(t *testing.T) {
	if maskKey("short") != "***" {
		t.Error("short keys must be fully masked")
	}
	if maskKey("sk-1234567890") != "sk-...890" {
		t.Errorf("got %q", maskKey("sk-1234567890"))
	}
}
