package hipaa

import (
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"
)

// FieldEncryptor is the subset of FieldCodec that repositories use at the
// read/write edge.
type FieldEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
}

// Service wraps a FieldCodec and adds a disabled mode for development
// environments where no encryption key is configured.
type Service struct {
	codec   *FieldCodec
	enabled bool
}

// NewService creates the PHI encryption service.
//
// If key is empty, encryption is disabled (development mode) and a warning is
// logged. All Encrypt/Decrypt calls become no-ops that return the value
// as-is.
//
// If key is non-empty, it must be a valid 64-character hex string encoding a
// 32-byte AES-256 key. An invalid key is a startup error so the application
// refuses to run misconfigured.
func NewService(key string, logger zerolog.Logger) (*Service, error) {
	if key == "" {
		logger.Warn().Msg("PHI encryption disabled: PHI_ENCRYPTION_KEY is not set")
		return &Service{enabled: false}, nil
	}

	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
	}

	codec, err := NewFieldCodec(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("create PHI codec: %w", err)
	}

	logger.Info().Msg("PHI field-level encryption enabled")
	return &Service{codec: codec, enabled: true}, nil
}

// Codec returns the underlying FieldCodec, or nil when encryption is
// disabled.
func (s *Service) Codec() *FieldCodec {
	return s.codec
}

// Encrypt encrypts a single PHI field value, or returns it unchanged when
// encryption is disabled.
func (s *Service) Encrypt(value string) (string, error) {
	if !s.enabled {
		return value, nil
	}
	return s.codec.Encrypt(value)
}

// Decrypt decrypts a single PHI field value, or returns it unchanged when
// encryption is disabled.
func (s *Service) Decrypt(value string) (string, error) {
	if !s.enabled {
		return value, nil
	}
	return s.codec.Decrypt(value)
}

// IsEnabled returns true if encryption is active.
func (s *Service) IsEnabled() bool {
	return s.enabled
}
