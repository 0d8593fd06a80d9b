package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	unsetEnv(t, "WALLET_ADDRESS")
	unsetEnv(t, "PRIVATE_KEY")
	unsetEnv(t, "TELEGRAM_CHAT_ID")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "" +
		"# wallet\n" +
		"WALLET_ADDRESS=0xabc\n" +
		"PRIVATE_KEY=\"deadbeef\"\n" +
		"TELEGRAM_CHAT_ID='42'\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("WALLET_ADDRESS"); got != "0xabc" {
		t.Fatalf("WALLET_ADDRESS expected 0xabc, got %q", got)
	}
	if got := os.Getenv("PRIVATE_KEY"); got != "deadbeef" {
		t.Fatalf("PRIVATE_KEY expected deadbeef, got %q", got)
	}
	if got := os.Getenv("TELEGRAM_CHAT_ID"); got != "42" {
		t.Fatalf("TELEGRAM_CHAT_ID expected 42, got %q", got)
	}
}

func TestLoadEnvDoesNotOverrideExisting(t *testing.T) {
	t.Setenv("RPC_URL", "existing")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RPC_URL=http://other\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("RPC_URL"); got != "existing" {
		t.Fatalf("RPC_URL expected existing, got %q", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if old, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { _ = os.Setenv(key, old) })
	} else {
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
	_ = os.Unsetenv(key)
}
