package security

import "crypto/subtle"

// SecretsMatch compares two shared secrets in constant time so response
// timing never leaks how many leading bytes matched.
func SecretsMatch(provided, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
