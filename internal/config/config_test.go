package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.UpstreamTimeout != 15*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 15s", cfg.UpstreamTimeout)
	}
	if cfg.EnrichConcurrency != 5 || cfg.EnrichMaxKeywords != 50 {
		t.Errorf("enrich = %d/%d, want 5/50", cfg.EnrichConcurrency, cfg.EnrichMaxKeywords)
	}
	if cfg.SessionTTL != 6*time.Hour {
		t.Errorf("SessionTTL = %v, want 6h", cfg.SessionTTL)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadFrom_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("LOOKUP_CACHE_TTL", "1m")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Port != "9090" || cfg.RedisAddr != "redis:6380" || cfg.RedisDB != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != "debug" || !cfg.LogPretty {
		t.Errorf("logging = %q/%v", cfg.LogLevel, cfg.LogPretty)
	}
	if cfg.UpstreamTimeout != 3*time.Second || cfg.LookupCacheTTL != time.Minute {
		t.Errorf("durations = %v/%v", cfg.UpstreamTimeout, cfg.LookupCacheTTL)
	}
}

func TestLoadFrom_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ENRICH_MAX_KEYWORDS=7\nUSER_AGENT=from-file/2.0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Register restore, then make sure the keys are unset so the file applies
	t.Setenv("ENRICH_MAX_KEYWORDS", "")
	os.Unsetenv("ENRICH_MAX_KEYWORDS")
	t.Setenv("USER_AGENT", "from-env/1.0")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.EnrichMaxKeywords != 7 {
		t.Errorf("EnrichMaxKeywords = %d, want 7", cfg.EnrichMaxKeywords)
	}
	// The environment wins over the file
	if cfg.UserAgent != "from-env/1.0" {
		t.Errorf("UserAgent = %q, want from-env/1.0", cfg.UserAgent)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantKey string
	}{
		{name: "bad log level", key: "LOG_LEVEL", value: "verbose", wantKey: "LOG_LEVEL"},
		{name: "non numeric port", key: "PORT", value: "http", wantKey: "PORT"},
		{name: "redis db out of range", key: "REDIS_DB", value: "42", wantKey: "REDIS_DB"},
		{name: "bad base url", key: "MELI_BASE_URL", value: "not a url", wantKey: "MELI_BASE_URL"},
		{name: "zero concurrency", key: "ENRICH_CONCURRENCY", value: "0", wantKey: "ENRICH_CONCURRENCY"},
		{name: "redis addr without port", key: "REDIS_ADDR", value: "redis", wantKey: "REDIS_ADDR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadFrom("")
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("error %q does not name %s", err, tt.wantKey)
			}
		})
	}
}

func TestConfig_StringMasksPassword(t *testing.T) {
	cfg := &Config{RedisPassword: "s3cret"}
	s := cfg.String()
	if strings.Contains(s, "s3cret") {
		t.Error("String() leaks the Redis password")
	}
	if !strings.Contains(s, "RedisPassword: ********") {
		t.Error("String() should show a masked password")
	}

	empty := (&Config{}).String()
	if !strings.Contains(empty, "RedisPassword: (empty)") {
		t.Error("String() should mark an empty password")
	}
}

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"Port":               "PORT",
		"RedisDB":            "REDIS_DB",
		"MeliBaseURL":        "MELI_BASE_URL",
		"LookupCacheTTL":     "LOOKUP_CACHE_TTL",
		"UpstreamMaxRetries": "UPSTREAM_MAX_RETRIES",
	}
	for in, want := range tests {
		if got := envName(in); got != want {
			t.Errorf("envName(%q) = %q, want %q", in, got, want)
		}
	}
}
