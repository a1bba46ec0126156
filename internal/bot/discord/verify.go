package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
)

// Signature headers sent with every interaction.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// ParsePublicKey decodes the application's hex-encoded Ed25519 public key.
func ParsePublicKey(hexKey string) (ed25519.PublicKey, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, ErrInvalidPublicKey.Err(err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	return ed25519.PublicKey(key), nil
}

// Verify reports whether body was signed by key. Discord signs the timestamp header
// followed by the raw body.
func Verify(key ed25519.PublicKey, header http.Header, body []byte) bool {
	sig, err := hex.DecodeString(header.Get(HeaderSignature))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	timestamp := header.Get(HeaderTimestamp)
	if timestamp == "" {
		return false
	}
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	return ed25519.Verify(key, msg, sig)
}
