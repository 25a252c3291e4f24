package security

import "crypto/subtle"

// APIKeyMatches compares a presented credential with the configured one in constant time
func APIKeyMatches(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
