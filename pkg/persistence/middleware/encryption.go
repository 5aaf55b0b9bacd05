package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// SealedDialogID marks the single frame an encrypted stack is stored as.
const SealedDialogID = "__sealed__"

const encryptedKey = "__encrypted__"

type encryptionMiddleware struct {
	next   ports.StateStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts dialog stacks using AES-GCM (Envelope Encryption)
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, id domain.Identity, stack *domain.DialogStack) error {
	// 1. Serialize real frames
	frames := stack.Frames
	if frames == nil {
		frames = []domain.Frame{}
	}
	plainText, err := json.Marshal(frames)
	if err != nil {
		return fmt.Errorf("failed to marshal stack: %w", err)
	}

	// 2. Encrypt
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt stack: %w", err)
	}

	// 3. Create envelope
	// A single opaque frame hides dialog ids, step positions and answers.
	// The version stays in the clear so the next store can compare-and-set it.
	envelope := &domain.DialogStack{
		Version: stack.Version,
		Frames: []domain.Frame{{
			DialogID: SealedDialogID,
			Results: map[string]any{
				encryptedKey: base64.StdEncoding.EncodeToString(ciphertext),
			},
		}},
	}

	if err := m.next.Save(ctx, id, envelope); err != nil {
		return err
	}
	stack.Version = envelope.Version
	return nil
}

func (m *encryptionMiddleware) Load(ctx context.Context, id domain.Identity) (*domain.DialogStack, error) {
	// 1. Load envelope
	envelope, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	// 2. Extract ciphertext
	if len(envelope.Frames) != 1 || envelope.Frames[0].DialogID != SealedDialogID {
		// Fail secure: a plain stack under an encrypting store is never trusted.
		return nil, errors.New("stack is missing encrypted data envelope")
	}
	encryptedStr, ok := envelope.Frames[0].Results[encryptedKey].(string)
	if !ok {
		return nil, errors.New("stack envelope has no ciphertext")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	// 3. Decrypt (Try Active, then Fallback)
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt stack: %w", err)
	}

	// 4. Deserialize
	stack := &domain.DialogStack{Version: envelope.Version}
	if err := json.Unmarshal(plainText, &stack.Frames); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted stack: %w", err)
	}
	if stack.Frames == nil {
		stack.Frames = []domain.Frame{}
	}

	return stack, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id domain.Identity) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]domain.Identity, error) {
	return m.next.List(ctx)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}

// DecodeKey parses a 32 byte key given as base64 or hex, as found in
// configuration files and environment variables.
func DecodeKey(s string) ([]byte, error) {
	if k, err := base64.StdEncoding.DecodeString(s); err == nil && len(k) == 32 {
		return k, nil
	}
	if k, err := hex.DecodeString(s); err == nil && len(k) == 32 {
		return k, nil
	}
	return nil, errors.New("encryption key must be 32 bytes, base64 or hex encoded")
}
