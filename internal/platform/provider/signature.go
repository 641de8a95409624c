package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
)

// hmacHex computes the hex-encoded HMAC of body under the given hash
func hmacHex(newHash func() hash.Hash, secret string, body []byte) string {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyHMACSHA512 checks a hex-encoded HMAC-SHA512 signature in constant time
func verifyHMACSHA512(secret string, body []byte, signature string) bool {
	expected := hmacHex(sha512.New, secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// verifyHMACSHA256 checks a hex-encoded HMAC-SHA256 signature in constant time
func verifyHMACSHA256(secret string, body []byte, signature string) bool {
	expected := hmacHex(sha256.New, secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
