package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Pricing.RatePerKm != 2000 {
		t.Errorf("rate = %v, want 2000", cfg.Pricing.RatePerKm)
	}
	if cfg.Maps.Timeout != 5*time.Second {
		t.Errorf("maps timeout = %v", cfg.Maps.Timeout)
	}
	if cfg.Redis.GeoCacheTTL != 24*time.Hour {
		t.Errorf("geo cache ttl = %v", cfg.Redis.GeoCacheTTL)
	}
	if len(cfg.KafkaBrokers()) != 0 {
		t.Errorf("expected no kafka brokers by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CARPOOL_HTTP_ADDR", ":9090")
	t.Setenv("CARPOOL_PRICING_RATE_PER_KM", "2500")
	t.Setenv("CARPOOL_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CARPOOL_DB_AUTO_MIGRATE", "true")
	t.Setenv("CARPOOL_AUTH_MODE", "jwt")
	t.Setenv("CARPOOL_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("http addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Pricing.RatePerKm != 2500 {
		t.Errorf("rate = %v", cfg.Pricing.RatePerKm)
	}
	if !cfg.DB.AutoMigrate {
		t.Errorf("expected auto migrate")
	}
	brokers := cfg.KafkaBrokers()
	if len(brokers) != 2 || brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", brokers)
	}
	if cfg.Geo().Timeout != 5*time.Second {
		t.Errorf("geo config not carried over")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"zero rate", map[string]string{"CARPOOL_PRICING_RATE_PER_KM": "0"}},
		{"unknown auth mode", map[string]string{"CARPOOL_AUTH_MODE": "basic"}},
		{"jwt without secret", map[string]string{"CARPOOL_AUTH_MODE": "jwt"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
