package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

var cheap = config.PasswordConfig{
	ArgonMemoryKB:    1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerify(t *testing.T) {
	hasher := security.NewPasswordHasher(cheap)

	hash, err := hasher.Hash("very-secure-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected hash layout %q", hash)
	}

	match, stale, err := hasher.Verify("very-secure-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for valid hash: %v", err)
	}
	if !match || stale {
		t.Fatalf("expected fresh match, got match=%v stale=%v", match, stale)
	}

	match, _, err = hasher.Verify("bogus-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for wrong password: %v", err)
	}
	if match {
		t.Fatal("Verify matched an incorrect password")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	_, err := security.NewPasswordHasher(cheap).Hash("12345")
	if !errors.Is(err, security.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestVerifyFlagsHashFromOlderCost(t *testing.T) {
	old := security.NewPasswordHasher(cheap)
	hash, err := old.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	raised := cheap
	raised.ArgonTime = 2
	match, stale, err := security.NewPasswordHasher(raised).Verify("secret1", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !match || !stale {
		t.Fatalf("expected stale match, got match=%v stale=%v", match, stale)
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	hasher := security.NewPasswordHasher(cheap)
	for _, encoded := range []string{
		"not-a-hash",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$$a2V5",
	} {
		if _, _, err := hasher.Verify("irrelevant", encoded); !errors.Is(err, security.ErrInvalidHash) {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
}

func TestRandomUpperBase36(t *testing.T) {
	value, err := security.RandomUpperBase36(9)
	if err != nil {
		t.Fatalf("RandomUpperBase36 returned error: %v", err)
	}
	if len(value) != 9 {
		t.Fatalf("expected 9 characters, got %q", value)
	}
	for _, r := range value {
		if !(r >= '0' && r <= '9') && !(r >= 'A' && r <= 'Z') {
			t.Fatalf("unexpected character %q in %q", r, value)
		}
	}
	if _, err := security.RandomUpperBase36(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
