package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// sealedPrefix marks a node text stored encrypted.
const sealedPrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SnapshotStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals node texts with AES-GCM.
// Ids, kinds, positions and connections stay readable so stores can still be listed and diffed.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, owner string, doc codec.Document) error {
	sealed := doc
	sealed.Nodes = slices.Clone(doc.Nodes)
	for i, n := range sealed.Nodes {
		if n.Text == "" {
			continue
		}
		ciphertext, err := encrypt([]byte(n.Text), m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt node %s: %w", n.ID, err)
		}
		sealed.Nodes[i].Text = sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	}
	return m.next.Save(ctx, owner, sealed)
}

// Load fails on non-empty texts that were not sealed, so a plaintext snapshot
// is never mistaken for a protected one.
func (m *encryptionMiddleware) Load(ctx context.Context, owner string) (codec.Document, error) {
	doc, err := m.next.Load(ctx, owner)
	if err != nil {
		return codec.Document{}, err
	}

	doc.Nodes = slices.Clone(doc.Nodes)
	for i, n := range doc.Nodes {
		if n.Text == "" {
			continue
		}
		encoded, ok := strings.CutPrefix(n.Text, sealedPrefix)
		if !ok {
			return codec.Document{}, fmt.Errorf("%w: node %s is not encrypted", domain.ErrMalformedSnapshot, n.ID)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return codec.Document{}, fmt.Errorf("failed to decode ciphertext base64: %w", err)
		}
		plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return codec.Document{}, fmt.Errorf("failed to decrypt node %s: %w", n.ID, err)
		}
		doc.Nodes[i].Text = string(plain)
	}
	return doc, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, owner string) error {
	return m.next.Delete(ctx, owner)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return list(ctx, m.next)
}

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
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
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
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
