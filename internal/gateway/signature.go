// Package gateway implements the payment gateway wire protocol: parameter
// canonicalization, HMAC-SHA512 signing and the redirect/callback formats.
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

const (
	SignatureField     = "vnp_SecureHash"
	SignatureTypeField = "vnp_SecureHashType"
)

// Canonicalize renders params as the string the gateway signs: signature
// fields and empty values dropped, keys in ordinal byte order, keys and values
// query-escaped, pairs joined by '&'.
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == SignatureField || k == SignatureTypeField || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	// sort.Strings compares bytes, not locale collation.
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// Sign returns the lowercase hex HMAC-SHA512 of canonical keyed by secret.
func Sign(canonical, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether received is the signature of canonical under secret.
// Hex case is ignored. Empty inputs never verify.
func Verify(received, canonical, secret string) bool {
	if received == "" || canonical == "" || secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(received))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(canonical, secret))
	return hmac.Equal(got, want)
}
