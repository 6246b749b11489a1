package stripe

import (
	"context"
	"testing"

	"github.com/rogermolina/residencia-backend/pkg/config"
)

func TestNewClientValidatesKeyAgainstEnv(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{"test env with test key", config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "test"}, false},
		{"test env with live key", config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_1", Env: "test"}, true},
		{"live env with live key", config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_1", Env: "live"}, false},
		{"unknown env", config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "staging"}, true},
		{"missing api key", config.StripeConfig{Secret: "whsec_1", Env: "test"}, true},
		{"missing webhook secret", config.StripeConfig{APIKey: "sk_test_123", Env: "test"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tc.cfg, nil)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewClientDefaultsCurrency(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Currency() != "usd" {
		t.Fatalf("expected usd default, got %q", client.Currency())
	}
}
