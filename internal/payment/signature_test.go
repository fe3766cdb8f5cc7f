package payment

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundtrip(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	header := Sign(body, "whsec_test", time.Now())

	require.NoError(t, Verify(body, header, "whsec_test", 5*time.Minute))
}

func TestVerifyWrongSecret(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	header := Sign(body, "whsec_one", time.Now())

	err := Verify(body, header, "whsec_other", 5*time.Minute)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyTamperedBody(t *testing.T) {
	header := Sign([]byte(`{"amount":100}`), "whsec_test", time.Now())

	err := Verify([]byte(`{"amount":999}`), header, "whsec_test", 5*time.Minute)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyStaleTimestamp(t *testing.T) {
	body := []byte(`{}`)
	header := Sign(body, "whsec_test", time.Now().Add(-10*time.Minute))

	err := Verify(body, header, "whsec_test", 5*time.Minute)
	assert.ErrorIs(t, err, ErrStaleTimestamp)
}

func TestVerifyFutureTimestamp(t *testing.T) {
	body := []byte(`{}`)
	header := Sign(body, "whsec_test", time.Now().Add(10*time.Minute))

	err := Verify(body, header, "whsec_test", 5*time.Minute)
	assert.ErrorIs(t, err, ErrStaleTimestamp)
}

func TestVerifyZeroToleranceSkipsFreshnessCheck(t *testing.T) {
	body := []byte(`{}`)
	header := Sign(body, "whsec_test", time.Now().Add(-24*time.Hour))

	require.NoError(t, Verify(body, header, "whsec_test", 0))
}

func TestVerifyRotatedSecrets(t *testing.T) {
	// During rotation the sender emits two v1 entries; either one
	// matching must pass.
	body := []byte(`{"id":"evt_2"}`)
	now := time.Now()
	old := Sign(body, "whsec_old", now)
	fresh := Sign(body, "whsec_new", now)

	// Rebuild a single header carrying both signatures.
	header := old + fresh[strings.Index(fresh, ",v1="):]
	require.NoError(t, Verify(body, header, "whsec_old", 5*time.Minute))
	require.NoError(t, Verify(body, header, "whsec_new", 5*time.Minute))
}

func TestVerifyMalformedHeaders(t *testing.T) {
	body := []byte(`{}`)
	cases := []string{
		"",
		"garbage",
		"t=notanumber,v1=abcd",
		"v1=abcd",
		"t=1700000000",
	}
	for _, header := range cases {
		assert.ErrorIs(t, Verify(body, header, "whsec_test", 0), ErrMalformedSignature, "header %q", header)
	}
}

func TestVerifyNonHexSignatureRejected(t *testing.T) {
	header := fmt.Sprintf("t=%d,v1=zzzz", time.Now().Unix())
	err := Verify([]byte(`{}`), header, "whsec_test", 0)
	assert.ErrorIs(t, err, ErrBadSignature)
}
