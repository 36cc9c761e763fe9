package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const downloadTokenBytes = 32

// NewDownloadToken returns a URL-safe random token for one-time download
// links. 32 bytes of entropy keeps the token unguessable.
func NewDownloadToken() (string, error) {
	raw := make([]byte, downloadTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate download token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
