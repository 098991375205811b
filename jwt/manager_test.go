package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func newEdManager(t *testing.T) *Manager {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "tokenfamily-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestCreateParseRoundtrip(t *testing.T) {
	m := newEdManager(t)

	tok, err := m.CreateAccess("user-1", "fam-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	claims, err := m.ParseAccess(tok)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UID != "user-1" || claims.FID != "fam-1" {
		t.Fatalf("claims lost: %+v", claims)
	}
}

func TestParseRejectsTampered(t *testing.T) {
	m := newEdManager(t)

	tok, err := m.CreateAccess("user-1", "fam-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	tampered := tok[:len(tok)-2] + "xx"
	if _, err := m.ParseAccess(tampered); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestParseRejectsWrongMethod(t *testing.T) {
	ed := newEdManager(t)

	hs, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := hs.CreateAccess("user-1", "fam-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := ed.ParseAccess(tok); err == nil {
		t.Fatal("hs256 token accepted by ed25519 verifier")
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("k")}); err == nil {
		t.Fatal("zero TTL accepted")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("hs256 without key accepted")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: "rs999"}); err == nil {
		t.Fatal("unknown method accepted")
	}
}
