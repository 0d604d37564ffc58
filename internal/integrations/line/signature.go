package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// Verifier checks the X-Line-Signature header against the channel secret.
type Verifier struct {
	getter      Getter
	paramPrefix string

	secret cachedParam
}

func NewVerifier(ps Getter, paramPrefix string) (*Verifier, error) {
	if ps == nil {
		return nil, errors.New("line: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("line: parameter prefix must not be empty")
	}
	return &Verifier{getter: ps, paramPrefix: paramPrefix}, nil
}

// Verify reports whether signature is the base64 HMAC-SHA256 of body. An
// error means the channel secret could not be loaded.
func (v *Verifier) Verify(ctx context.Context, body []byte, signature string) (bool, error) {
	secret, err := v.secret.get(ctx, v.getter, v.paramPrefix+"/line-channel-secret")
	if err != nil {
		return false, err
	}
	return ValidSignature(secret, body, signature), nil
}

// ValidSignature compares signature to the expected value in constant time.
func ValidSignature(secret string, body []byte, signature string) bool {
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(secret, body))
}

// Sign returns the raw HMAC-SHA256 of body keyed by secret.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
