package config

import (
	"strings"
	"testing"

	"racebook/internal/wallet"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_PASSWORD", "test-password")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Betting.MinBetSOL.Sign() <= 0 {
		t.Errorf("default min bet must be positive, got %s", cfg.Betting.MinBetSOL)
	}
	if cfg.Betting.MaxBetSOL.LessThan(cfg.Betting.MinBetSOL) {
		t.Error("default max bet must not be below the min bet")
	}
	if cfg.Server.Port == "" {
		t.Error("expected a default server port")
	}
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_PASSWORD", "test-password")
	if _, err := Load(); err == nil {
		t.Error("expected an error without JWT_SECRET")
	}

	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_PASSWORD", "")
	if _, err := Load(); err == nil {
		t.Error("expected an error without ADMIN_PASSWORD")
	}
}

// The passphrase minimum lives in the wallet package; the config layer
// enforces the same number.
func TestLoadRejectsShortPassphrase(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WALLET_PASSPHRASE", strings.Repeat("x", wallet.MinPassphraseLength-1))

	if _, err := Load(); err == nil {
		t.Error("expected an error for a passphrase below the minimum length")
	}

	t.Setenv("WALLET_PASSPHRASE", strings.Repeat("x", wallet.MinPassphraseLength))
	if _, err := Load(); err != nil {
		t.Errorf("minimum-length passphrase should load, got %v", err)
	}
}

func TestLoadRejectsSplitWithoutOpsWallet(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OPERATIONS_SPLIT_PERCENT", "10")
	t.Setenv("OPERATIONS_WALLET_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Error("expected an error when a split is set without an operations wallet")
	}
}
