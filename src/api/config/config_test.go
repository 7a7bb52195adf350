package config

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "mysql" || cfg.Port != "8080" || cfg.StoreRetries != 3 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != cfg.FrontendURL {
		t.Fatalf("cors should default to the frontend, got %v", cfg.CORSOrigins)
	}
	if cfg.RateWindow != time.Minute || cfg.WinnersAllowPartial || cfg.EnableSSL {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("PORT", "9000")
	settings := map[string]string{
		"port":                  "7000",
		"cors_origins":          "https://a.example, https://b.example",
		"winners_allow_partial": "true",
		"rate_window":           "30s",
		"store_retries":         "nope",
	}

	cfg, err := Load(func(name string) string { return settings[name] })
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("environment should win, got %s", cfg.Port)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors from settings: %v", cfg.CORSOrigins)
	}
	if !cfg.WinnersAllowPartial || cfg.RateWindow != 30*time.Second || cfg.StoreRetries != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	t.Run("short secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "short")
		if _, err := Load(nil); err == nil {
			t.Fatal("want error")
		}
	})
	t.Run("driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", secret)
		t.Setenv("DB_DRIVER", "oracle")
		if _, err := Load(nil); err == nil {
			t.Fatal("want error")
		}
	})
}

func TestLoadWarnsOnPartialWinners(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	if _, err := Load(nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected log output %q", buf.String())
	}

	t.Setenv("WINNERS_ALLOW_PARTIAL", "true")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.WinnersAllowPartial || !strings.Contains(buf.String(), "WINNERS_ALLOW_PARTIAL") {
		t.Fatalf("partial winners enabled without a warning: %q", buf.String())
	}
}
