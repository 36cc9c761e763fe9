package flow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

var errSecretKeyRequired = errors.New("flow secret key is required")

// Signer computes the request signature Flow expects: parameter names
// sorted ascending, each name concatenated directly with its value (no
// separator), HMAC-SHA256 over the result, lowercase hex. This is the
// only place that convention lives.
type Signer struct {
	secret []byte
}

// NewSigner validates the shared secret and builds a Signer.
func NewSigner(secret string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errSecretKeyRequired
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign produces the signature for the given parameter set. The caller
// must not include the signature parameter itself.
func (s *Signer) Sign(params map[string]string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", errSecretKeyRequired
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	for _, k := range keys {
		payload.WriteString(k)
		payload.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload.String()))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
