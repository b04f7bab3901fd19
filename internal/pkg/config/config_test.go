package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != EnvDevelopment || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if got := cfg.ListenAddr(); got != "127.0.0.1:8080" {
		t.Fatalf("shell must bind loopback by default, got %q", got)
	}
	if cfg.Credentials.Backend != BackendFile || cfg.Credentials.Profile != "default" {
		t.Fatalf("unexpected credential defaults: %+v", cfg.Credentials)
	}
	if !cfg.TwoFactor.Enabled || cfg.TwoFactor.TTL != 5*time.Minute {
		t.Fatalf("unexpected two-factor defaults: %+v", cfg.TwoFactor)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.API.Timeout)
	}
	if got := cfg.APIEndpoint(); got != "http://localhost:8000" {
		t.Fatalf("unexpected endpoint %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestAPIEndpoint(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"development", map[string]string{"ENV": "development", "API_ENDPOINT_DEV": "http://dev:8000"}, "http://dev:8000"},
		{"production", map[string]string{"ENV": "production", "API_ENDPOINT_PROD": "https://api.example.org"}, "https://api.example.org"},
		{"unknown env", map[string]string{"ENV": "staging"}, ""},
		{"override", map[string]string{"ENV": "production", "API_ENDPOINT": "http://override"}, "http://override"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(tc.env))
			if err != nil {
				t.Fatalf("LoadFrom: %v", err)
			}
			if got := cfg.APIEndpoint(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"CREDENTIAL_BACKEND": "etcd"}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown backend to be rejected")
	}

	cfg, err = LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"ENV": "production"}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing production endpoint to be rejected")
	}
}

func TestLoadFrom_InvalidDuration(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"TWO_FACTOR_TTL": "soon"}))
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestListenAddr(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"default", map[string]string{}, "127.0.0.1:8080"},
		{"port only", map[string]string{"PORT": "9090"}, "127.0.0.1:9090"},
		{"all interfaces", map[string]string{"HOST": "0.0.0.0"}, "0.0.0.0:8080"},
		{"ipv6 loopback", map[string]string{"HOST": "::1", "PORT": "8443"}, "[::1]:8443"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(tc.env))
			if err != nil {
				t.Fatalf("LoadFrom: %v", err)
			}
			if got := cfg.ListenAddr(); got != tc.want {
				t.Fatalf("ListenAddr() = %q, want %q", got, tc.want)
			}
		})
	}
}
