package mailbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/oauth2"
)

// sealToken encrypts an oauth2.Token for storage in Settings, AES-GCM with a
// key derived from MAILBOX_CREDENTIALS_KEY so a leaked settings table alone
// doesn't yield a usable refresh token.
func sealToken(key string, tok *oauth2.Token) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	plain, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("marshal token: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plain, nil)
	return hex.EncodeToString(sealed), nil
}

// unsealToken reverses sealToken.
func unsealToken(key, raw string) (*oauth2.Token, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	sealed, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sealed token: %w", err)
	}
	size := gcm.NonceSize()
	if len(sealed) < size {
		return nil, fmt.Errorf("sealed token too short")
	}
	nonce, ciphertext := sealed[:size], sealed[size:]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt token: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(plain, tok); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return tok, nil
}

func newGCM(key string) (cipher.AEAD, error) {
	if key == "" {
		return nil, fmt.Errorf("MAILBOX_CREDENTIALS_KEY is not configured")
	}
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("build cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
