package auth

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFCodec_IssueAndValidate(t *testing.T) {
	codec := NewCSRFCodec("test-secret")

	token, err := codec.Issue()
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 64) // 32 random bytes, hex encoded

	result := codec.Validate(token, token)
	assert.True(t, result.Valid)
	assert.False(t, result.NeedsRefresh)
}

func TestCSRFCodec_SignatureVerifiedWithoutStoredMatch(t *testing.T) {
	codec := NewCSRFCodec("test-secret")

	token, err := codec.Issue()
	require.NoError(t, err)

	// Stored token differs, so validation must fall through to the
	// signature path and still succeed.
	result := codec.Validate(token, "some-other-stored-token")
	assert.True(t, result.Valid)
}

func TestCSRFCodec_TamperedSignature(t *testing.T) {
	codec := NewCSRFCodec("test-secret")

	token, err := codec.Issue()
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	result := codec.Validate(tampered, "unrelated")
	assert.False(t, result.Valid)
}

func TestCSRFCodec_MalformedInput(t *testing.T) {
	codec := NewCSRFCodec("test-secret")

	for _, token := range []string{
		"",
		"no-dots",
		"one.dot",
		"too.many.dots.here",
		"nonce.not-a-number.sig",
	} {
		result := codec.Validate(token, "stored")
		assert.False(t, result.Valid, "token %q should be invalid", token)
	}

	// Missing stored token fails even for a well-formed presented token.
	token, err := codec.Issue()
	require.NoError(t, err)
	assert.False(t, codec.Validate(token, "").Valid)
}

func TestCSRFCodec_HardExpiry(t *testing.T) {
	codec := NewCSRFCodec("test-secret")
	token := issueWithAge(codec, 61*time.Minute)

	result := codec.Validate(token, "unrelated")
	assert.False(t, result.Valid)
}

func TestCSRFCodec_SoftExpirySignalsRefresh(t *testing.T) {
	codec := NewCSRFCodec("test-secret")
	token := issueWithAge(codec, 51*time.Minute)

	result := codec.Validate(token, "unrelated")
	assert.True(t, result.Valid)
	assert.True(t, result.NeedsRefresh)

	// The same aged token matched against the stored copy also signals.
	result = codec.Validate(token, token)
	assert.True(t, result.Valid)
	assert.True(t, result.NeedsRefresh)
}

func TestCSRFCodec_LegacyEqualityWithUnparsableToken(t *testing.T) {
	codec := NewCSRFCodec("test-secret")

	// An opaque legacy token that matches the stored value is accepted
	// without a refresh signal.
	result := codec.Validate("legacy-opaque-token", "legacy-opaque-token")
	assert.True(t, result.Valid)
	assert.False(t, result.NeedsRefresh)
}

// issueWithAge fabricates a correctly signed token whose embedded
// timestamp lies the given duration in the past.
func issueWithAge(codec *CSRFCodec, age time.Duration) string {
	nonce := strings.Repeat("ab", 32)
	timestamp := strconv.FormatInt(time.Now().Add(-age).UnixMilli(), 10)
	return nonce + "." + timestamp + "." + codec.sign(nonce, timestamp)
}
