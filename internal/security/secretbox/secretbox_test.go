package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func newKey(t *testing.T) string {
	t.Helper()
	k := make([]byte, 32)
	if _, err := rand.Read(k); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(k)
}

func TestSealOpen(t *testing.T) {
	box, err := New(newKey(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sealed, err := box.Seal("EAAG-access-token")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if strings.Contains(sealed, "EAAG") {
		t.Fatalf("sealed value leaks plaintext: %q", sealed)
	}
	again, _ := box.Seal("EAAG-access-token")
	if again == sealed {
		t.Fatal("nonce reuse: two seals produced the same output")
	}
	plain, err := box.Open(sealed)
	if err != nil || plain != "EAAG-access-token" {
		t.Fatalf("Open = %q, %v", plain, err)
	}
}

func TestOpenRejectsTamperingAndWrongKey(t *testing.T) {
	box, _ := New(newKey(t))
	other, _ := New(newKey(t))
	sealed, _ := box.Seal("rt")

	if _, err := other.Open(sealed); err != ErrOpen {
		t.Fatalf("wrong key: want ErrOpen, got %v", err)
	}
	parts := strings.SplitN(sealed, "|", 2)
	ct, _ := base64.StdEncoding.DecodeString(parts[1])
	ct[0] ^= 0xff
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(ct)
	if _, err := box.Open(tampered); err != ErrOpen {
		t.Fatalf("tampered: want ErrOpen, got %v", err)
	}
	if _, err := box.Open("not-sealed"); err != ErrOpen {
		t.Fatalf("garbage: want ErrOpen, got %v", err)
	}
}

func TestEmptyPassesThrough(t *testing.T) {
	box, _ := New(newKey(t))
	if s, err := box.Seal(""); s != "" || err != nil {
		t.Fatalf("Seal(\"\") = %q, %v", s, err)
	}
	if s, err := box.Open(""); s != "" || err != nil {
		t.Fatalf("Open(\"\") = %q, %v", s, err)
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New(base64.StdEncoding.EncodeToString([]byte("short"))); err != ErrInvalidKey {
		t.Fatalf("want ErrInvalidKey, got %v", err)
	}
}
