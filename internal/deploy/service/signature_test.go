package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuskeep/statuskeep/internal/errs"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"service":"checkout","status":"completed"}`)

	t.Run("prefixed header accepted", func(t *testing.T) {
		assert.NoError(t, VerifySignature(secret, body, "sha256="+sign(secret, body)))
	})

	t.Run("bare hex accepted", func(t *testing.T) {
		assert.NoError(t, VerifySignature(secret, body, sign(secret, body)))
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		err := VerifySignature(secret, body, "sha256="+sign("other", body))
		var a *errs.AuthError
		require.ErrorAs(t, err, &a)
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		sig := sign(secret, body)
		err := VerifySignature(secret, []byte(`{"service":"evil"}`), "sha256="+sig)
		var a *errs.AuthError
		require.ErrorAs(t, err, &a)
	})

	t.Run("missing signature with stored secret rejected", func(t *testing.T) {
		err := VerifySignature(secret, body, "")
		var a *errs.AuthError
		require.ErrorAs(t, err, &a)
	})

	t.Run("malformed hex rejected", func(t *testing.T) {
		err := VerifySignature(secret, body, "sha256=zzzz")
		var a *errs.AuthError
		require.ErrorAs(t, err, &a)
	})

	t.Run("no stored secret accepts anything", func(t *testing.T) {
		assert.NoError(t, VerifySignature("", body, ""))
		assert.NoError(t, VerifySignature("", body, "sha256=deadbeef"))
	})
}
