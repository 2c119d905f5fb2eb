package webpush

import (
	"crypto/ecdh"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

// decodeBase64 accepts base64url as published by PushSubscription.toJSON(),
// padded or not, and falls back to the standard alphabet.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	// encoding/base64 skips line breaks; a key never contains them.
	if strings.ContainsAny(s, "\r\n") {
		return nil, errors.New("line break inside base64 value")
	}
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.Strict().DecodeString(s)
	}
	return base64.RawURLEncoding.Strict().DecodeString(s)
}

// DecodePublicKey turns a base64url p256dh value into a P-256 public key.
// Only the uncompressed point form is accepted.
func DecodePublicKey(s string) (*ecdh.PublicKey, error) {
	raw, err := decodeBase64(s)
	if err != nil {
		return nil, &KeyError{Field: "p256dh", Err: err}
	}
	key, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, &KeyError{Field: "p256dh", Err: errors.Wrapf(err, "%d bytes", len(raw))}
	}
	return key, nil
}

// DecodeAuthSecret turns a base64url auth value into raw bytes.
func DecodeAuthSecret(s string) ([]byte, error) {
	raw, err := decodeBase64(s)
	if err != nil {
		return nil, &KeyError{Field: "auth", Err: err}
	}
	if len(raw) == 0 {
		return nil, &KeyError{Field: "auth", Err: errors.New("empty secret")}
	}
	return raw, nil
}
