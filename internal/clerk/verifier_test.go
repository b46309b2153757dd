package clerk_test

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meseeks-ai/meseeks/internal/clerk"
)

var (
	testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-signing-key"))
	testBody   = []byte(`{"type":"user.created","object":"event","data":{"id":"user_1"}}`)
)

func newVerifier(t *testing.T) *clerk.Verifier {
	t.Helper()
	v, err := clerk.NewVerifier(testSecret)
	require.NoError(t, err)
	return v
}

func signedHeader(t *testing.T, v *clerk.Verifier, id string, ts time.Time, body []byte) http.Header {
	t.Helper()
	sig, err := v.Sign(id, ts, body)
	require.NoError(t, err)

	h := http.Header{}
	h.Set(clerk.HeaderID, id)
	h.Set(clerk.HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	h.Set(clerk.HeaderSignature, sig)
	return h
}

func TestVerify_ValidSignature(t *testing.T) {
	t.Parallel()
	v := newVerifier(t)

	err := v.Verify(signedHeader(t, v, "msg_1", time.Now(), testBody), testBody)
	assert.NoError(t, err)
}

func TestVerify_MultipleSignaturesOneMatches(t *testing.T) {
	t.Parallel()
	v := newVerifier(t)

	h := signedHeader(t, v, "msg_1", time.Now(), testBody)
	h.Set(clerk.HeaderSignature, "v1,bm90LXRoZS1zaWduYXR1cmU= "+h.Get(clerk.HeaderSignature))

	assert.NoError(t, v.Verify(h, testBody))
}

func TestVerify_TamperedBody(t *testing.T) {
	t.Parallel()
	v := newVerifier(t)

	h := signedHeader(t, v, "msg_1", time.Now(), testBody)
	tampered := []byte(`{"type":"user.created","object":"event","data":{"id":"user_2"}}`)

	assert.ErrorIs(t, v.Verify(h, tampered), clerk.ErrInvalidSignature)
}

func TestVerify_ReserializedBodyFails(t *testing.T) {
	t.Parallel()
	v := newVerifier(t)

	h := signedHeader(t, v, "msg_1", time.Now(), testBody)
	reformatted := []byte(`{"type": "user.created", "object": "event", "data": {"id": "user_1"}}`)

	assert.ErrorIs(t, v.Verify(h, reformatted), clerk.ErrInvalidSignature)
}

func TestVerify_MissingHeaders(t *testing.T) {
	t.Parallel()
	v := newVerifier(t)

	for _, missing := range []string{clerk.HeaderID, clerk.HeaderTimestamp, clerk.HeaderSignature} {
		t.Run(missing, func(t *testing.T) {
			h := signedHeader(t, v, "msg_1", time.Now(), testBody)
			h.Del(missing)
			assert.ErrorIs(t, v.Verify(h, testBody), clerk.ErrMissingHeaders)
		})
	}
}

func TestVerify_TimestampOutsideReplayWindow(t *testing.T) {
	t.Parallel()
	v := newVerifier(t)

	old := time.Now().Add(-10 * time.Minute)
	assert.ErrorIs(t, v.Verify(signedHeader(t, v, "msg_1", old, testBody), testBody), clerk.ErrInvalidSignature)

	future := time.Now().Add(10 * time.Minute)
	assert.ErrorIs(t, v.Verify(signedHeader(t, v, "msg_1", future, testBody), testBody), clerk.ErrInvalidSignature)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()
	v := newVerifier(t)

	other, err := clerk.NewVerifier("whsec_" + base64.StdEncoding.EncodeToString([]byte("another-key")))
	require.NoError(t, err)

	h := signedHeader(t, other, "msg_1", time.Now(), testBody)
	assert.ErrorIs(t, v.Verify(h, testBody), clerk.ErrInvalidSignature)
}

func TestVerify_MissingSecret(t *testing.T) {
	t.Parallel()

	v, err := clerk.NewVerifier("")
	require.NoError(t, err)

	assert.ErrorIs(t, v.Verify(http.Header{}, testBody), clerk.ErrMissingSecret)

	_, err = v.Sign("msg_1", time.Now(), testBody)
	assert.ErrorIs(t, err, clerk.ErrMissingSecret)
}

func TestNewVerifier_InvalidSecret(t *testing.T) {
	t.Parallel()

	_, err := clerk.NewVerifier("whsec_***not-base64***")
	assert.Error(t, err)
}
