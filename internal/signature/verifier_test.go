package signature

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test"

var testBody = []byte(`{"type":"payment.succeeded","data":{"user":{"id":"u1","username":"Ann"},"id":"pay_1"}}`)

func TestVerifyTimestamped(t *testing.T) {
	valid := SignTimestamped(testBody, "1700000000", testSecret)

	tests := []struct {
		name   string
		body   []byte
		header string
		secret string
		want   bool
	}{
		{name: "valid signature", body: testBody, header: valid, secret: testSecret, want: true},
		{name: "spaces around pairs", body: testBody, header: strings.ReplaceAll(valid, ",", " , "), secret: testSecret, want: true},
		{name: "extra unknown keys", body: testBody, header: valid + ",v0=deadbeef", secret: testSecret, want: true},
		{name: "altered body", body: []byte(string(testBody) + " "), header: valid, secret: testSecret, want: false},
		{name: "wrong secret", body: testBody, header: valid, secret: "whsec_other", want: false},
		{name: "different timestamp", body: testBody, header: strings.Replace(valid, "1700000000", "1700000001", 1), secret: testSecret, want: false},
		{name: "missing t", body: testBody, header: valid[strings.Index(valid, "v1="):], secret: testSecret, want: false},
		{name: "missing v1", body: testBody, header: "t=1700000000", secret: testSecret, want: false},
		{name: "v1 not hex", body: testBody, header: "t=1700000000,v1=zzzz", secret: testSecret, want: false},
		{name: "v1 truncated", body: testBody, header: valid[:len(valid)-2], secret: testSecret, want: false},
		{name: "empty header", body: testBody, header: "", secret: testSecret, want: false},
		{name: "garbage header", body: testBody, header: ",,,=,t", secret: testSecret, want: false},
		{name: "empty secret", body: testBody, header: valid, secret: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(tt.body, tt.header, tt.secret))
		})
	}
}

func TestVerifyTimestamped_MultipleV1(t *testing.T) {
	valid := SignTimestamped(testBody, "1700000000", testSecret)
	good := valid[strings.Index(valid, "v1="):]
	header := "t=1700000000,v1=" + strings.Repeat("00", 32) + "," + good

	assert.True(t, Verify(testBody, header, testSecret))
}

func TestVerifyLegacy(t *testing.T) {
	valid := SignLegacy(testBody, testSecret)

	assert.True(t, Verify(testBody, valid, testSecret))
	assert.False(t, Verify([]byte(`{"type":"payment.succeeded"}`), valid, testSecret))
	assert.False(t, Verify(testBody, "sha256=", testSecret))
	assert.False(t, Verify(testBody, "sha256=not-hex", testSecret))
	assert.False(t, Verify(testBody, "sha256="+strings.Repeat("ab", 16), testSecret))
	assert.False(t, Verify(testBody, valid, "whsec_other"))
}

func TestVerifier_Tolerance(t *testing.T) {
	signedAt := time.Unix(1700000000, 0)
	header := SignTimestamped(testBody, "1700000000", testSecret)

	fresh := Verifier{Tolerance: 5 * time.Minute, Now: func() time.Time { return signedAt.Add(time.Minute) }}
	assert.True(t, fresh.Verify(testBody, header, testSecret))

	stale := Verifier{Tolerance: 5 * time.Minute, Now: func() time.Time { return signedAt.Add(10 * time.Minute) }}
	assert.False(t, stale.Verify(testBody, header, testSecret))

	future := Verifier{Tolerance: 5 * time.Minute, Now: func() time.Time { return signedAt.Add(-10 * time.Minute) }}
	assert.False(t, future.Verify(testBody, header, testSecret))

	nonNumeric := SignTimestamped(testBody, "yesterday", testSecret)
	assert.False(t, fresh.Verify(testBody, nonNumeric, testSecret))
	assert.True(t, Verify(testBody, nonNumeric, testSecret))
}
