// Package mail canonicalizes email addresses into the encoded form used as a
// storage and lookup key by both the subscription and token stores.
package mail

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// minEncodedLength is the shortest string treated as already encoded.
const minEncodedLength = 16

// encodedPattern matches the character set accepted as already encoded.
// Both the standard and URL-safe base64 alphabets are accepted.
var encodedPattern = regexp.MustCompile(`^[A-Za-z0-9+/_=-]+$`)

// Normalize returns the canonical encoded representation of raw.
//
// The input may be a plain address or an address that was already encoded by
// a client. Plain addresses are trimmed and encoded with standard base64
// (padding included). Already-encoded values are returned trimmed and
// otherwise unchanged. An empty input yields an empty output.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if LooksEncoded(s) {
		return s
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// LooksEncoded reports whether s is treated as an already-encoded address.
// A long string without '@' built only from the base64 alphabet is accepted
// even when it does not decode; existing stored keys depend on this.
func LooksEncoded(s string) bool {
	if strings.Contains(s, "@") {
		return false
	}
	if len(s) < minEncodedLength {
		return false
	}
	return encodedPattern.MatchString(s)
}

// Decode attempts to recover the plain address from an encoded key.
func Decode(encoded string) (string, bool) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Redact returns a log-safe form of an encoded key: the first character of
// the local part and the full domain, e.g. "j***@example.com".
func Redact(encoded string) string {
	plain, ok := Decode(encoded)
	if !ok {
		return "[encoded]"
	}
	at := strings.LastIndex(plain, "@")
	if at <= 0 {
		return "[redacted]"
	}
	return plain[:1] + "***" + plain[at:]
}
