package main

import (
	"testing"
	"time"

	"laundrydesk/backend/internal/config"
	"laundrydesk/backend/internal/workflow"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cfg := config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"http://127.0.0.1:3000"}},
		Auth:   config.AuthConfig{Secret: "short"},
	}
	if err := validateSecurityConfig(cfg); err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigRejectsWildcardOriginInProduction(t *testing.T) {
	cfg := config.Config{
		Server: config.ServerConfig{AppEnv: "production", AllowedOrigins: []string{"*"}},
		Auth:   config.AuthConfig{Secret: "0123456789abcdef0123456789abcdef"},
	}
	if err := validateSecurityConfig(cfg); err == nil {
		t.Fatalf("expected wildcard origin to be rejected in production")
	}

	cfg.Server.AppEnv = "development"
	if err := validateSecurityConfig(cfg); err != nil {
		t.Fatalf("expected wildcard origin to pass in development, got %v", err)
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	cfg := config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"https://desk.example.com"}},
		Auth:   config.AuthConfig{Secret: "0123456789abcdef0123456789abcdef"},
	}
	if err := validateSecurityConfig(cfg); err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestEngineOptionsParsesConfiguration(t *testing.T) {
	opts, err := engineOptions(config.EngineConfig{
		TaxRatePercent:   "10",
		TxTimeoutSeconds: 7,
		RevenuePolicy:    "delivery",
		ConsumptionRules: "WASHING>DRYING:SOFTENER:2",
	})
	if err != nil {
		t.Fatalf("engine options: %v", err)
	}
	if opts.TaxRatePercent.String() != "10" {
		t.Fatalf("unexpected tax rate %s", opts.TaxRatePercent)
	}
	if opts.RevenuePolicy != workflow.RevenueOnDelivery {
		t.Fatalf("unexpected revenue policy %s", opts.RevenuePolicy)
	}
	if len(opts.Rules) != 1 || opts.Rules[0].Quantity != 2 {
		t.Fatalf("unexpected rules %v", opts.Rules)
	}
	if opts.TxTimeout != 7*time.Second {
		t.Fatalf("unexpected tx timeout %s", opts.TxTimeout)
	}
}

func TestEngineOptionsRejectsBadValues(t *testing.T) {
	bad := []config.EngineConfig{
		{TaxRatePercent: "seven", ConsumptionRules: config.DefaultConsumptionRules},
		{TaxRatePercent: "7.5", RevenuePolicy: "invoice", ConsumptionRules: config.DefaultConsumptionRules},
		{TaxRatePercent: "7.5", ConsumptionRules: "WASHING>DRYING:SOFTENER"},
	}
	for _, cfg := range bad {
		if _, err := engineOptions(cfg); err == nil {
			t.Fatalf("expected %+v to be rejected", cfg)
		}
	}
}
