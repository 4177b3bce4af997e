package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/statuskeep/statuskeep/internal/errs"
)

// VerifySignature checks the webhook HMAC-SHA256 signature over the raw
// request body. The header value is either "sha256=<hex>" or bare hex.
// A webhook with no stored secret accepts everything; a webhook with a secret
// rejects requests with a missing or wrong signature.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return nil
	}
	if header == "" {
		return errs.Auth("missing webhook signature")
	}

	presented := strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	presentedMAC, err := hex.DecodeString(presented)
	if err != nil {
		return errs.Auth("malformed webhook signature")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(presentedMAC, mac.Sum(nil)) {
		return errs.Auth("invalid webhook signature")
	}
	return nil
}
