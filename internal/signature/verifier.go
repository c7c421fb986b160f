// Package signature verifies HMAC-SHA256 signatures on payment webhooks.
//
// Two header layouts are understood:
//
//	t=<unix seconds>,v1=<hex digest>   digest over "<t>.<body>"
//	sha256=<hex digest>                digest over the raw body (legacy)
//
// All digest comparisons go through hmac.Equal.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const legacyPrefix = "sha256="

// Verifier checks webhook signature headers against a shared secret
type Verifier struct {
	// Tolerance rejects timestamped signatures older or newer than this
	// relative to Now. Zero disables the check.
	Tolerance time.Duration
	Now       func() time.Time
}

// Verify reports whether header is a valid signature of rawBody under secret
// using the default Verifier (no timestamp tolerance).
func Verify(rawBody []byte, header, secret string) bool {
	return Verifier{}.Verify(rawBody, header, secret)
}

// Verify reports whether header is a valid signature of rawBody under secret.
// Malformed headers yield false.
func (v Verifier) Verify(rawBody []byte, header, secret string) bool {
	header = strings.TrimSpace(header)
	if header == "" || secret == "" {
		return false
	}

	if strings.HasPrefix(header, legacyPrefix) {
		return verifyLegacy(rawBody, strings.TrimPrefix(header, legacyPrefix), secret)
	}
	return v.verifyTimestamped(rawBody, header, secret)
}

func verifyLegacy(rawBody []byte, digestHex, secret string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(digestHex))
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(got, compute(secret, rawBody))
}

func (v Verifier) verifyTimestamped(rawBody []byte, header, secret string) bool {
	var ts string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			ts = strings.TrimSpace(value)
		case "v1":
			candidates = append(candidates, strings.TrimSpace(value))
		}
	}
	if ts == "" || len(candidates) == 0 {
		return false
	}
	if !v.withinTolerance(ts) {
		return false
	}

	expected := compute(secret, signedPayload(ts, rawBody))
	valid := false
	for _, c := range candidates {
		got, err := hex.DecodeString(c)
		if err != nil || len(got) != sha256.Size {
			continue
		}
		// keep scanning so the loop does not exit early on a match
		if hmac.Equal(got, expected) {
			valid = true
		}
	}
	return valid
}

func (v Verifier) withinTolerance(ts string) bool {
	if v.Tolerance <= 0 {
		return true
	}
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	skew := now().Sub(time.Unix(secs, 0))
	if skew < 0 {
		skew = -skew
	}
	return skew <= v.Tolerance
}

// SignTimestamped builds a "t=...,v1=..." header for body.
func SignTimestamped(rawBody []byte, ts, secret string) string {
	digest := compute(secret, signedPayload(ts, rawBody))
	return "t=" + ts + ",v1=" + hex.EncodeToString(digest)
}

// SignLegacy builds a "sha256=..." header for body.
func SignLegacy(rawBody []byte, secret string) string {
	return legacyPrefix + hex.EncodeToString(compute(secret, rawBody))
}

func signedPayload(ts string, rawBody []byte) []byte {
	msg := make([]byte, 0, len(ts)+1+len(rawBody))
	msg = append(msg, ts...)
	msg = append(msg, '.')
	return append(msg, rawBody...)
}

func compute(secret string, msg []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(msg)
	return mac.Sum(nil)
}
