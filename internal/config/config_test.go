package config

import (
	"flag"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DBPath != "decoryard.sqlite3" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if !cfg.Standalone() {
		t.Error("no endpoint configured should mean standalone mode")
	}
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("DECORYARD_ADDR", ":9090")
	t.Setenv("DECORYARD_API_ENDPOINT", "https://api.example.com")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.APIEndpoint != "https://api.example.com" {
		t.Errorf("APIEndpoint = %q", cfg.APIEndpoint)
	}
	if cfg.Standalone() {
		t.Error("configured endpoint should disable standalone mode")
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("DECORYARD_ADDR", ":9090")

	cfg, err := Load([]string{"-addr", ":7070", "-user", "Boss"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("Addr = %q, want :7070", cfg.Addr)
	}
	if cfg.AdminUser != "Boss" {
		t.Errorf("AdminUser = %q, want Boss", cfg.AdminUser)
	}
}

func TestRejectsPositionalArgs(t *testing.T) {
	if _, err := Load([]string{"extra"}); err == nil {
		t.Error("expected error for positional argument")
	}
}

func TestHelpRequest(t *testing.T) {
	_, err := Load([]string{"-h"})
	if err != flag.ErrHelp {
		t.Errorf("err = %v, want flag.ErrHelp", err)
	}
}
