package s3client

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const (
	cseModeAESGCM          = "aes-gcm"
	cseMetaKey             = "x-foodback-cse"
	cseMetaContentType     = "x-foodback-content-type"
	cseMetaContentEncoding = "x-foodback-content-encoding"
)

func parseAESGCMKeyHex(keyHex string) ([]byte, error) {
	keyHex = strings.TrimSpace(keyHex)
	if keyHex == "" {
		return nil, fmt.Errorf("client-side encryption key is required")
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid client-side key hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("client-side key must be 32 bytes (AES-256)")
	}
	return raw, nil
}

func encryptAESGCM(plaintext []byte, key []byte) ([]byte, error) {
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
	out := make([]byte, 0, len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// applyCSE encrypts payload when a key is configured and moves the content
// headers into object metadata.
func (a *Archiver) applyCSE(payload []byte, contentType, contentEncoding string) ([]byte, string, string, map[string]string, error) {
	if len(a.cseKey) == 0 {
		return payload, contentType, contentEncoding, nil, nil
	}
	enc, err := encryptAESGCM(payload, a.cseKey)
	if err != nil {
		return nil, "", "", nil, err
	}
	meta := map[string]string{cseMetaKey: cseModeAESGCM}
	if contentType != "" {
		meta[cseMetaContentType] = contentType
	}
	if contentEncoding != "" {
		meta[cseMetaContentEncoding] = contentEncoding
	}
	return enc, "application/octet-stream", "", meta, nil
}

func (a *Archiver) validateSecurityConfig() error {
	if a.configErr != nil {
		return a.configErr
	}
	if a.requireSSE && a.sseMode == "" {
		return fmt.Errorf("s3client: server-side encryption (SSE) is required")
	}
	return nil
}
