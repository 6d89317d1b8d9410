package hipaa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// FieldCodec provides field-level encryption for PHI values using
// AES-256-CTR with an HMAC-SHA256 integrity tag. The serialized envelope is
// "iv:ciphertext:mac" (colon-delimited hex). Older rows carry the two-part
// legacy envelope "iv:ciphertext" written before integrity tagging existed;
// Decrypt still accepts those, and Upgrade rewrites them into the tagged
// form.
type FieldCodec struct {
	key    []byte
	macKey []byte
}

// IntegrityError is returned when an envelope's MAC does not verify. It must
// never be swallowed: a failed verification means the ciphertext was altered
// and no plaintext may be returned.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "phi integrity violation: " + e.Reason
}

// NewFieldCodec creates a FieldCodec with the given 32-byte AES-256 key. The
// MAC key is derived from the master key so callers configure a single
// secret.
func NewFieldCodec(key []byte) (*FieldCodec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("phi codec: key must be 32 bytes, got %d", len(key))
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("phi-integrity"))

	return &FieldCodec{
		key:    key,
		macKey: mac.Sum(nil),
	}, nil
}

// Encrypt encrypts plaintext with a fresh random IV and returns the
// three-part envelope.
func (c *FieldCodec) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("phi encrypt: generate iv: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("phi encrypt: create cipher: %w", err)
	}

	ct := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(ct, []byte(plaintext))

	tag := c.tag(iv, ct)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct) + ":" + hex.EncodeToString(tag), nil
}

// Decrypt parses an envelope and returns the plaintext. Three-part envelopes
// are verified with a constant-time MAC comparison before decryption and fail
// closed with an IntegrityError on mismatch. Two-part legacy envelopes
// decrypt without verification.
func (c *FieldCodec) Decrypt(envelope string) (string, error) {
	iv, ct, mac, err := splitEnvelope(envelope)
	if err != nil {
		return "", err
	}

	if mac != nil {
		if !hmac.Equal(mac, c.tag(iv, ct)) {
			return "", &IntegrityError{Reason: "mac verification failed"}
		}
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("phi decrypt: create cipher: %w", err)
	}

	pt := make([]byte, len(ct))
	cipher.NewCTR(block, iv).XORKeyStream(pt, ct)
	return string(pt), nil
}

// NeedsIntegrityUpgrade reports whether the envelope lacks a MAC segment.
func (c *FieldCodec) NeedsIntegrityUpgrade(envelope string) bool {
	return strings.Count(envelope, ":") == 1
}

// Upgrade re-encrypts a legacy two-part envelope into the three-part tagged
// form. Already-tagged envelopes are returned unchanged after verification.
func (c *FieldCodec) Upgrade(envelope string) (string, error) {
	if !c.NeedsIntegrityUpgrade(envelope) {
		if _, err := c.Decrypt(envelope); err != nil {
			return "", err
		}
		return envelope, nil
	}

	plaintext, err := c.Decrypt(envelope)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext)
}

func (c *FieldCodec) tag(iv, ct []byte) []byte {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(iv)
	mac.Write(ct)
	return mac.Sum(nil)
}

// splitEnvelope parses "iv:ciphertext[:mac]" hex segments. The mac return is
// nil for legacy two-part envelopes.
func splitEnvelope(envelope string) (iv, ct, mac []byte, err error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, nil, nil, fmt.Errorf("phi decrypt: malformed envelope: expected 2 or 3 segments, got %d", len(parts))
	}

	iv, err = hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("phi decrypt: decode iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, nil, nil, fmt.Errorf("phi decrypt: iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	ct, err = hex.DecodeString(parts[1])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("phi decrypt: decode ciphertext: %w", err)
	}

	if len(parts) == 3 {
		mac, err = hex.DecodeString(parts[2])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("phi decrypt: decode mac: %w", err)
		}
	}

	return iv, ct, mac, nil
}
