package hipaa

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, 32)
	return key
}

func newTestCodec(t *testing.T) *FieldCodec {
	t.Helper()
	codec, err := NewFieldCodec(testKey(t))
	if err != nil {
		t.Fatalf("NewFieldCodec: %v", err)
	}
	return codec
}

func TestNewFieldCodec_RejectsBadKeyLength(t *testing.T) {
	if _, err := NewFieldCodec([]byte("short")); err == nil {
		t.Fatal("expected error for 5-byte key")
	}
	if _, err := NewFieldCodec(bytes.Repeat([]byte{1}, 16)); err == nil {
		t.Fatal("expected error for 16-byte key")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	cases := []string{
		"",
		"a",
		"John Smith",
		"123-45-6789",
		"unicode: ñ, 北京, émoji 🙂",
		strings.Repeat("long plaintext ", 500),
	}
	for _, plaintext := range cases {
		envelope, err := codec.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if got := strings.Count(envelope, ":"); got != 2 {
			t.Fatalf("envelope %q: expected 2 colons, got %d", envelope, got)
		}
		decrypted, err := codec.Decrypt(envelope)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	codec := newTestCodec(t)
	a, err := codec.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := codec.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical envelopes")
	}
}

func TestDecrypt_TamperedCiphertextFailsClosed(t *testing.T) {
	codec := newTestCodec(t)
	envelope, err := codec.Encrypt("sensitive value")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	parts := strings.Split(envelope, ":")

	// Flip a hex character in every position of the ciphertext and mac
	// segments; each alteration must surface as an IntegrityError, never as
	// different plaintext.
	for seg := 1; seg <= 2; seg++ {
		for i := 0; i < len(parts[seg]); i++ {
			tampered := make([]string, 3)
			copy(tampered, parts)
			tampered[seg] = flipHexChar(parts[seg], i)

			out, err := codec.Decrypt(strings.Join(tampered, ":"))
			if err == nil {
				t.Fatalf("segment %d index %d: tampered envelope decrypted to %q", seg, i, out)
			}
			var ie *IntegrityError
			if !errors.As(err, &ie) {
				t.Fatalf("segment %d index %d: expected IntegrityError, got %v", seg, i, err)
			}
		}
	}
}

func flipHexChar(s string, i int) string {
	b := []byte(s)
	if b[i] == '0' {
		b[i] = '1'
	} else {
		b[i] = '0'
	}
	return string(b)
}

func TestDecrypt_LegacyTwoPartEnvelope(t *testing.T) {
	key := testKey(t)
	codec := newTestCodec(t)

	// Build a legacy envelope directly: iv:ciphertext, no mac.
	plaintext := "written before integrity tagging"
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		t.Fatalf("generate iv: %v", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	ct := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(ct, []byte(plaintext))
	legacy := hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct)

	got, err := codec.Decrypt(legacy)
	if err != nil {
		t.Fatalf("Decrypt legacy envelope: %v", err)
	}
	if got != plaintext {
		t.Errorf("legacy decrypt: got %q, want %q", got, plaintext)
	}
}

func TestNeedsIntegrityUpgrade(t *testing.T) {
	codec := newTestCodec(t)

	tagged, err := codec.Encrypt("value")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if codec.NeedsIntegrityUpgrade(tagged) {
		t.Error("three-part envelope reported as needing upgrade")
	}

	legacy := tagged[:strings.LastIndex(tagged, ":")]
	if !codec.NeedsIntegrityUpgrade(legacy) {
		t.Error("two-part envelope not reported as needing upgrade")
	}
}

func TestUpgrade_RewritesLegacyEnvelope(t *testing.T) {
	codec := newTestCodec(t)

	tagged, err := codec.Encrypt("value to upgrade")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	legacy := tagged[:strings.LastIndex(tagged, ":")]

	upgraded, err := codec.Upgrade(legacy)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if codec.NeedsIntegrityUpgrade(upgraded) {
		t.Fatal("upgraded envelope still lacks a mac")
	}
	got, err := codec.Decrypt(upgraded)
	if err != nil {
		t.Fatalf("Decrypt upgraded: %v", err)
	}
	if got != "value to upgrade" {
		t.Errorf("upgraded decrypt: got %q", got)
	}
}

func TestUpgrade_TaggedEnvelopeUnchanged(t *testing.T) {
	codec := newTestCodec(t)
	tagged, err := codec.Encrypt("already tagged")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	out, err := codec.Upgrade(tagged)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if out != tagged {
		t.Error("upgrading an already-tagged envelope changed it")
	}
}

func TestDecrypt_MalformedEnvelopes(t *testing.T) {
	codec := newTestCodec(t)

	cases := []string{
		"not-an-envelope",
		"a:b:c:d",
		"zzzz:aabb",
		"aabb:zzzz",
		hex.EncodeToString([]byte("shortiv")) + ":" + "aabb",
	}
	for _, envelope := range cases {
		if _, err := codec.Decrypt(envelope); err == nil {
			t.Errorf("Decrypt(%q): expected error", envelope)
		}
	}
}
