package security_test

import (
	"testing"

	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	"github.com/oficinaflow/oficinaflow-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
		TempPasswordLen:  12,
	}
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := security.GenerateTempPassword(12)
	if err != nil {
		t.Fatalf("GenerateTempPassword returned error: %v", err)
	}
	if len(pw) != 12 {
		t.Fatalf("expected 12 chars, got %d", len(pw))
	}

	short, err := security.GenerateTempPassword(3)
	if err != nil {
		t.Fatalf("GenerateTempPassword returned error: %v", err)
	}
	if len(short) != 8 {
		t.Fatalf("expected short lengths to be raised to 8, got %d", len(short))
	}

	if _, err := security.GenerateTempPassword(0); err == nil {
		t.Fatal("expected error for non-positive length")
	}
}

func TestResolveCredential_GeneratesWhenNoHash(t *testing.T) {
	cred, err := security.ResolveCredential("", testPasswordConfig())
	if err != nil {
		t.Fatalf("ResolveCredential returned error: %v", err)
	}
	if !cred.Generated() {
		t.Fatal("expected a generated password")
	}
	ok, err := security.VerifyPassword(cred.Plain, cred.Hash)
	if err != nil || !ok {
		t.Fatalf("generated hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestResolveCredential_ReusesStoredHash(t *testing.T) {
	cfg := testPasswordConfig()
	hash, err := security.HashPassword("chosen-at-signup", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	cred, err := security.ResolveCredential(hash, cfg)
	if err != nil {
		t.Fatalf("ResolveCredential returned error: %v", err)
	}
	if cred.Generated() {
		t.Fatal("stored hash should not produce a generated password")
	}
	if cred.Hash != hash {
		t.Fatal("expected stored hash to be reused")
	}

	if _, err := security.ResolveCredential("garbage", cfg); err == nil {
		t.Fatal("expected malformed stored hash to fail")
	}
}
