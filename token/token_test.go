package token

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateParseRoundtrip(t *testing.T) {
	codec, err := NewCodec(nil)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	id, secret, raw, err := codec.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if raw == "" {
		t.Fatal("empty raw token")
	}

	gotID, gotSecret, err := codec.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if gotID != id {
		t.Errorf("id mismatch: %v vs %v", gotID, id)
	}
	if gotSecret != secret {
		t.Error("secret mismatch after roundtrip")
	}
}

func TestGenerateUnique(t *testing.T) {
	codec, _ := NewCodec(nil)

	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		_, _, raw, err := codec.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if seen[raw] {
			t.Fatalf("duplicate raw token on iteration %d", i)
		}
		seen[raw] = true
	}
}

func TestParseMalformed(t *testing.T) {
	codec, _ := NewCodec(nil)

	cases := []string{
		"",
		"abc",
		"!!!not-base64!!!",
		"aGVsbG8=",
		strings.Repeat("A", 63),
		strings.Repeat("A", 65),
		strings.Repeat("A", 128),
	}

	for _, input := range cases {
		if _, _, err := codec.Parse(input); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("Parse(%q): expected ErrMalformedToken, got %v", input, err)
		}
	}
}

func TestVerify(t *testing.T) {
	codec, _ := NewCodec(nil)

	_, secret, _, err := codec.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	hash := codec.HashSecret(secret)
	if !codec.Verify(secret, hash) {
		t.Fatal("Verify rejected the matching secret")
	}

	var wrong Secret
	copy(wrong[:], secret[:])
	wrong[0] ^= 0xFF
	if codec.Verify(wrong, hash) {
		t.Fatal("Verify accepted a tampered secret")
	}
}

func TestPepperChangesHash(t *testing.T) {
	plain, _ := NewCodec(nil)
	peppered, err := NewCodec([]byte("per-deployment-pepper"))
	if err != nil {
		t.Fatalf("NewCodec with pepper failed: %v", err)
	}

	_, secret, _, err := plain.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if plain.HashSecret(secret) == peppered.HashSecret(secret) {
		t.Fatal("pepper did not change the secret hash")
	}
	if peppered.Verify(secret, plain.HashSecret(secret)) {
		t.Fatal("peppered codec verified an unkeyed hash")
	}
}

func TestPepperTooLong(t *testing.T) {
	if _, err := NewCodec(make([]byte, 65)); !errors.Is(err, ErrPepperTooLong) {
		t.Fatalf("expected ErrPepperTooLong, got %v", err)
	}
}

func TestParseIDRoundtrip(t *testing.T) {
	id, err := NewID()
	if err != nil {
		t.Fatalf("NewID failed: %v", err)
	}

	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("ParseID failed: %v", err)
	}
	if parsed != id {
		t.Fatal("ParseID roundtrip mismatch")
	}

	if _, err := ParseID("too-short"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}
