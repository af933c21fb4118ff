package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("everything-has-to-be-somewhere")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=15000,t=2,p=1$") {
		t.Errorf("hash has unexpected prefix: %q", hash)
	}
	if err := VerifyPassword(hash, "everything-has-to-be-somewhere"); err != nil {
		t.Errorf("VerifyPassword() with correct password: %v", err)
	}
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	err = VerifyPassword(hash, "battery staple")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("VerifyPassword() error = %v, want ErrPasswordMismatch", err)
	}
}

func TestHashPassword_SaltsAreUnique(t *testing.T) {
	a, err := HashPassword("same password")
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashPassword("same password")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two hashes of the same password are identical; salt is not random")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong algorithm", "$bcrypt$v=19$m=15000,t=2,p=1$abc$def"},
		{"missing fields", "$argon2id$v=19$m=15000,t=2,p=1$onlyonefield"},
		{"bad version", "$argon2id$v=18$m=15000,t=2,p=1$gZiV/M1gPc22ElAH/Jh1Hw$CWOrkoo7oJBQ/iyh7uJ0LO2aLEfrHwTWllSAxT0zRno"},
		{"bad salt encoding", "$argon2id$v=19$m=15000,t=2,p=1$!!!$CWOrkoo7oJBQ/iyh7uJ0LO2aLEfrHwTWllSAxT0zRno"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword(tt.hash, "whatever")
			if err == nil {
				t.Fatal("expected error for malformed hash")
			}
			if errors.Is(err, ErrPasswordMismatch) {
				t.Error("malformed hash reported as mismatch; must be a distinct error")
			}
		})
	}
}

func TestVerifyPassword_DummyHashParses(t *testing.T) {
	// the decoy hash must stay verifiable or the timing equalization in
	// ValidateCredentials silently stops doing real work
	err := VerifyPassword(dummyHash, "any password at all")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("dummy hash verification error = %v, want ErrPasswordMismatch", err)
	}
}
